package nav

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"site-crawler/pkg/models"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing test HTML: %v", err)
	}
	return doc
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parsing %q: %v", raw, err)
	}
	return u
}

func TestHarvestBasic(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<nav>
			<a href="/docs">Docs</a>
			<a href="https://example.com/blog/">Blog</a>
			<a href="mailto:x@example.com">Mail</a>
			<a href="/logo.png">Logo</a>
			<a href="/empty"> </a>
		</nav>
		<main><a href="/not-nav">Body link</a></main>
	</body></html>`)

	anchors := Harvest(doc, mustURL(t, "https://example.com/welcome"))

	if len(anchors) != 2 {
		t.Fatalf("got %d anchors, want 2: %+v", len(anchors), anchors)
	}
	if anchors[0].Text != "Docs" || anchors[0].NormalizedURL != "https://example.com/docs" {
		t.Errorf("anchor[0] = %+v", anchors[0])
	}
	if anchors[1].Text != "Blog" || anchors[1].NormalizedURL != "https://example.com/blog" {
		t.Errorf("anchor[1] = %+v", anchors[1])
	}
}

func TestHarvestRegionClaimedOnce(t *testing.T) {
	// The element matches both nav[role="navigation"] and the bare nav
	// selector; its links must be attributed to the higher-priority selector
	// and not collected twice.
	doc := parseDoc(t, `<html><body>
		<nav role="navigation"><a href="/a">A</a></nav>
	</body></html>`)

	anchors := Harvest(doc, mustURL(t, "https://example.com/"))
	if len(anchors) != 1 {
		t.Fatalf("got %d anchors, want 1", len(anchors))
	}
	if anchors[0].Selector != `nav[role="navigation"]` {
		t.Errorf("Selector = %q, want the high-priority selector", anchors[0].Selector)
	}
}

func TestHarvestLevels(t *testing.T) {
	doc := parseDoc(t, `<html><body><nav>
		<ul>
			<li><a href="/top">Top</a>
				<ul><li><a href="/top/sub">Sub</a></li></ul>
			</li>
		</ul>
	</nav></body></html>`)

	anchors := Harvest(doc, mustURL(t, "https://example.com/"))
	byText := map[string]int{}
	for _, a := range anchors {
		byText[a.Text] = a.Level
	}
	if byText["Top"] != 0 {
		t.Errorf("Top level = %d, want 0", byText["Top"])
	}
	if byText["Sub"] != 1 {
		t.Errorf("Sub level = %d, want 1", byText["Sub"])
	}
}

func TestHarvestDeterministic(t *testing.T) {
	html := `<html><body>
		<nav class="navbar"><a href="/a">A</a><a href="/b">B</a></nav>
		<div class="menu"><a href="/b">B</a><a href="/c">C</a></div>
	</body></html>`
	base := mustURL(t, "https://example.com/")

	first := Harvest(parseDoc(t, html), base)
	for i := 0; i < 5; i++ {
		again := Harvest(parseDoc(t, html), base)
		if len(again) != len(first) {
			t.Fatalf("run %d: %d anchors, first run had %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d anchor %d = %+v, first run had %+v", i, j, again[j], first[j])
			}
		}
	}
	// B appears in both regions: deduped by target URL.
	if len(first) != 3 {
		t.Fatalf("got %d anchors, want 3 (A, B, C): %+v", len(first), first)
	}
}

func TestHarvestDeduplicatesByTargetURL(t *testing.T) {
	// The same destination under two labels is one navigation link; the text
	// seen first sticks.
	doc := parseDoc(t, `<html><body>
		<nav><a href="/docs">Docs</a></nav>
		<div class="menu"><a href="/docs/">Documentation</a></div>
	</body></html>`)

	anchors := Harvest(doc, mustURL(t, "https://example.com/"))
	if len(anchors) != 1 {
		t.Fatalf("got %d anchors, want 1: %+v", len(anchors), anchors)
	}
	if anchors[0].Text != "Docs" {
		t.Errorf("Text = %q, want the first-seen label", anchors[0].Text)
	}
}

func TestSynthesizerMergesAndCounts(t *testing.T) {
	s := NewSynthesizer("https://example.com")

	a := models.Anchor{URL: "https://example.com/docs", NormalizedURL: "https://example.com/docs", Text: "Docs"}
	b := models.Anchor{URL: "https://example.com/blog", NormalizedURL: "https://example.com/blog", Text: "Blog"}
	// Same target as a, labeled differently on another page.
	relabeled := models.Anchor{URL: "https://example.com/docs", NormalizedURL: "https://example.com/docs", Text: "Documentation"}

	if added := s.Ingest([]models.Anchor{a, b}); added != 2 {
		t.Errorf("first ingest added %d, want 2", added)
	}
	if added := s.Ingest([]models.Anchor{a, relabeled}); added != 0 {
		t.Errorf("repeat ingest added %d, want 0", added)
	}
	s.Ingest(nil) // page without navigation

	r := s.Report()
	if r.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", r.TotalPages)
	}
	if r.PagesWithNav != 2 {
		t.Errorf("PagesWithNav = %d, want 2", r.PagesWithNav)
	}
	if len(r.Links) != 2 {
		t.Errorf("Links = %d, want 2: %+v", len(r.Links), r.Links)
	}
	if r.Links[0].Text != "Docs" {
		t.Errorf("first link = %+v, want first-ingested text to stay", r.Links[0])
	}
}

func TestBuildTree(t *testing.T) {
	links := []models.Anchor{
		{URL: "https://example.com/docs/install", NormalizedURL: "https://example.com/docs/install", Text: "Install"},
		{URL: "https://example.com/docs", NormalizedURL: "https://example.com/docs", Text: "Docs"},
		{URL: "https://example.com/blog", NormalizedURL: "https://example.com/blog", Text: "Blog"},
	}

	tree := BuildTree(links)
	if tree == nil || len(tree.Children) != 1 {
		t.Fatalf("tree = %+v, want one host child", tree)
	}
	host := tree.Children[0]
	if host.Segment != "example.com" {
		t.Fatalf("host segment = %q", host.Segment)
	}
	// docs was created first (by the install link), blog after.
	if len(host.Children) != 2 || host.Children[0].Segment != "docs" || host.Children[1].Segment != "blog" {
		t.Fatalf("host children = %+v", host.Children)
	}
	docs := host.Children[0]
	if docs.Text != "Docs" {
		t.Errorf("docs node text = %q, want Docs", docs.Text)
	}
	if len(docs.Children) != 1 || docs.Children[0].Segment != "install" {
		t.Fatalf("docs children = %+v", docs.Children)
	}

	if BuildTree(nil) != nil {
		t.Error("BuildTree(nil) should be nil")
	}
}

func TestBuildTreeKeepsFirstSeenOrder(t *testing.T) {
	links := []models.Anchor{
		{URL: "https://example.com/zebra", NormalizedURL: "https://example.com/zebra", Text: "Zebra"},
		{URL: "https://example.com/alpha", NormalizedURL: "https://example.com/alpha", Text: "Alpha"},
	}

	host := BuildTree(links).Children[0]
	if len(host.Children) != 2 {
		t.Fatalf("host children = %+v", host.Children)
	}
	if host.Children[0].Segment != "zebra" || host.Children[1].Segment != "alpha" {
		t.Errorf("children reordered: %+v", host.Children)
	}
}

func TestRenderMarkdown(t *testing.T) {
	s := NewSynthesizer("https://example.com")
	s.Ingest([]models.Anchor{
		{URL: "https://example.com/docs", NormalizedURL: "https://example.com/docs", Text: "Docs", Level: 0},
		{URL: "https://example.com/docs/api", NormalizedURL: "https://example.com/docs/api", Text: "API", Level: 1},
	})

	out := RenderMarkdown(s.Report())
	for _, want := range []string{
		"# Navigation Report",
		"Pages crawled: 1",
		"Pages with navigation: 1",
		"Unique navigation links: 2",
		"- [Docs](https://example.com/docs)",
		"  - [API](https://example.com/docs/api)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
