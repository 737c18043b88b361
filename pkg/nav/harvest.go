// Package nav harvests navigation anchors from fetched pages and synthesizes
// them into a site-wide navigation report. Harvesting runs on the raw DOM,
// before the content filter strips navigation regions, so enabling the
// navigation preset never costs anchors.
package nav

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"site-crawler/pkg/content"
	"site-crawler/pkg/models"
	"site-crawler/pkg/parse"
)

// assetExtensions are link targets that are never navigation destinations.
var assetExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".css": true, ".js": true, ".ico": true, ".svg": true, ".webp": true,
}

// Harvest walks the navigation selector list in priority order and collects
// every anchor under a matching region. A region claimed by a high-priority
// selector is not revisited when a lower-priority selector also matches it.
// An anchor is identified by its normalized target URL: the first occurrence
// wins, including its display text. Results are ordered by selector priority
// then document order.
func Harvest(doc *goquery.Document, pageURL *url.URL) []models.Anchor {
	var anchors []models.Anchor
	claimed := make(map[*html.Node]bool)
	seen := make(map[string]bool)

	for _, sel := range content.NavigationSelectors() {
		doc.Find(sel).Each(func(_ int, region *goquery.Selection) {
			root := region.Get(0)
			if claimed[root] {
				return
			}
			claimed[root] = true

			region.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
				href, _ := link.Attr("href")
				text := strings.TrimSpace(link.Text())
				if href == "" || text == "" {
					return
				}
				absolute, normalized, ok := parse.Resolve(pageURL, href)
				if !ok || assetExtensions[strings.ToLower(path.Ext(normalized))] {
					return
				}
				if seen[normalized] {
					return
				}
				seen[normalized] = true
				anchors = append(anchors, models.Anchor{
					URL:           absolute,
					NormalizedURL: normalized,
					Text:          text,
					Level:         linkLevel(link.Get(0), root),
					Selector:      sel,
				})
			})
		})
	}
	return anchors
}

// linkLevel counts nested list ancestors between the anchor and its
// navigation root: a link in the region's outermost list is level 0, each
// enclosing sub-list adds one.
func linkLevel(link, root *html.Node) int {
	lists := 0
	for n := link.Parent; n != nil && n != root; n = n.Parent {
		if n.Type == html.ElementNode && (n.Data == "ul" || n.Data == "ol") {
			lists++
		}
	}
	if lists > 0 {
		return lists - 1
	}
	return 0
}
