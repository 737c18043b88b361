// Package content implements the boilerplate-removal pipeline: preset-driven
// structural removal plus keyword heuristics, applied to HTML before markdown
// conversion. Filtering is a pure function of (input, config); running it
// twice yields the same document as running it once.
package content

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"site-crawler/pkg/config"
	"site-crawler/pkg/utils"
)

const (
	// Nodes whose text carries a trigger keyword are only removed when the
	// text is short; long text is flagged, never cut, so article bodies that
	// merely mention "copyright" survive.
	maxRemovableNodeChars = 200
	// Same principle for plain-text lines.
	maxRemovableLineChars = 100
)

// customCategory is the stats key for user-supplied selectors and keywords.
const customCategory = "custom"

// category pairs a stats key with its selector and keyword tables.
type category struct {
	name      string
	selectors []string
	keywords  []string
}

// Stats records what one filtering pass removed, keyed by category name.
type Stats struct {
	RemovedNodes  map[string]int // Structural + keyword node removals from HTML
	RemovedBlocks map[string]int // Line removals from plain text
	FlaggedLong   int            // Keyword matches left in place because the text was long
}

func newStats() Stats {
	return Stats{
		RemovedNodes:  make(map[string]int),
		RemovedBlocks: make(map[string]int),
	}
}

// TotalRemoved sums node removals across categories.
func (s Stats) TotalRemoved() int {
	n := 0
	for _, c := range s.RemovedNodes {
		n += c
	}
	return n
}

// Pipeline applies an ordered category list. Category order follows preset
// declaration order, with the custom category last, so multi-category matches
// are always attributed the same way.
type Pipeline struct {
	categories []category
}

// NewPipeline resolves preset names into their tables and appends any custom
// selectors/keywords. Unknown preset names were rejected at config validation;
// they are skipped here rather than failing mid-crawl.
func NewPipeline(cfg config.ContentFilterConfig) *Pipeline {
	names := cfg.Presets
	if len(names) == 0 && len(cfg.CustomSelectors) == 0 && len(cfg.CustomKeywords) == 0 {
		names = DefaultPresets()
	}

	p := &Pipeline{}
	for _, preset := range presets {
		for _, name := range names {
			if name == preset.Name {
				p.categories = append(p.categories, category{
					name:      preset.Name,
					selectors: preset.Selectors,
					keywords:  preset.Keywords,
				})
				break
			}
		}
	}
	if len(cfg.CustomSelectors) > 0 || len(cfg.CustomKeywords) > 0 {
		p.categories = append(p.categories, category{
			name:      customCategory,
			selectors: cfg.CustomSelectors,
			keywords:  cfg.CustomKeywords,
		})
	}
	return p
}

// Categories returns the active category names in evaluation order.
func (p *Pipeline) Categories() []string {
	names := make([]string, len(p.categories))
	for i, c := range p.categories {
		names[i] = c.name
	}
	return names
}

// FilterHTML removes every node matching an active category's selectors, then
// applies the keyword heuristic to what remains. A node matching several
// categories is removed once and attributed to the first category in order.
func (p *Pipeline) FilterHTML(rawHTML string) (string, Stats, error) {
	stats := newStats()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", stats, fmt.Errorf("%w: parsing HTML for content filtering: %v", utils.ErrParsing, err)
	}

	// Structural pass. Removal detaches the node, so a later category's
	// selector can no longer match it: first match wins in the stats.
	for _, cat := range p.categories {
		for _, sel := range cat.selectors {
			matched := doc.Find(sel)
			if n := matched.Length(); n > 0 {
				matched.Remove()
				stats.RemovedNodes[cat.name] += n
			}
		}
	}

	// Keyword pass over surviving elements. Only elements that directly
	// contain the keyword in a text child are candidates; short ones are
	// removed, long ones removed only when the keyword also appears in the
	// element's class or id. Removing a short child can shrink a long,
	// merely-flagged ancestor below the threshold, so the pass repeats until
	// nothing moves: the output is a fixed point and refiltering it is a
	// no-op. FlaggedLong is recounted each round so it describes the final
	// document.
	for {
		stats.FlaggedLong = 0
		removed := 0
		for _, cat := range p.categories {
			if len(cat.keywords) == 0 {
				continue
			}
			removed += p.removeKeywordNodes(doc, cat, &stats)
		}
		if removed == 0 {
			break
		}
	}

	out, err := doc.Html()
	if err != nil {
		return "", stats, fmt.Errorf("%w: serializing filtered HTML: %v", utils.ErrParsing, err)
	}
	return out, stats, nil
}

func (p *Pipeline) removeKeywordNodes(doc *goquery.Document, cat category, stats *Stats) (removed int) {
	var doomed []*goquery.Selection

	doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node.Data == "script" || node.Data == "style" {
			return
		}
		direct := directText(node)
		if direct == "" {
			return
		}
		for _, kw := range cat.keywords {
			if !containsFold(direct, kw) {
				continue
			}
			full := strings.TrimSpace(s.Text())
			if len([]rune(full)) < maxRemovableNodeChars {
				doomed = append(doomed, s)
				return
			}
			class, _ := s.Attr("class")
			id, _ := s.Attr("id")
			if containsFold(class, kw) || containsFold(id, kw) {
				doomed = append(doomed, s)
				return
			}
			stats.FlaggedLong++
			return
		}
	})

	// Removal is deferred so the traversal order above stays stable. A node
	// inside an already-removed ancestor is detached with it; Remove on an
	// orphan is a no-op and the count still reflects the match.
	for _, s := range doomed {
		s.Remove()
		stats.RemovedNodes[cat.name]++
		removed++
	}
	return removed
}

// FilterText drops short lines carrying a trigger keyword from plain text or
// markdown. Long lines with a keyword are counted as flagged but kept.
func (p *Pipeline) FilterText(text string) (string, Stats) {
	stats := newStats()

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		cat, matched := p.matchKeyword(trimmed)
		if !matched {
			kept = append(kept, line)
			continue
		}
		if len([]rune(trimmed)) < maxRemovableLineChars {
			stats.RemovedBlocks[cat]++
			continue
		}
		stats.FlaggedLong++
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n"), stats
}

// matchKeyword returns the first category (in order) with a keyword present
// in the line.
func (p *Pipeline) matchKeyword(line string) (string, bool) {
	if line == "" {
		return "", false
	}
	for _, cat := range p.categories {
		for _, kw := range cat.keywords {
			if containsFold(line, kw) {
				return cat.name, true
			}
		}
	}
	return "", false
}

// directText concatenates the immediate text children of a node, ignoring
// text nested in child elements.
func directText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
