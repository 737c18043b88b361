package content

import (
	"strings"
	"testing"

	"site-crawler/pkg/config"
)

func TestFilterHTMLRemovesFooter(t *testing.T) {
	p := NewPipeline(config.ContentFilterConfig{Presets: []string{"footer"}})

	in := `<html><body><footer>© 2025 Example Corp</footer><main>Body text</main></body></html>`
	out, stats, err := p.FilterHTML(in)
	if err != nil {
		t.Fatalf("FilterHTML: %v", err)
	}
	if strings.Contains(out, "Example Corp") {
		t.Errorf("footer content survived filtering: %q", out)
	}
	if !strings.Contains(out, "Body text") {
		t.Errorf("main content was removed: %q", out)
	}
	if got := stats.RemovedNodes["footer"]; got != 1 {
		t.Errorf("RemovedNodes[footer] = %d, want 1", got)
	}
}

func TestFilterHTMLIdempotent(t *testing.T) {
	p := NewPipeline(config.ContentFilterConfig{Presets: []string{"footer", "ads", "navigation"}})

	in := `<html><body>
		<nav class="navbar"><a href="/a">A</a></nav>
		<div class="ad-container">Buy things</div>
		<main><p>Real content long enough to matter.</p></main>
		<footer>版权所有</footer>
	</body></html>`

	once, stats1, err := p.FilterHTML(in)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if stats1.TotalRemoved() == 0 {
		t.Fatal("first pass removed nothing")
	}

	twice, stats2, err := p.FilterHTML(once)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if twice != once {
		t.Errorf("second pass changed output:\nfirst:  %q\nsecond: %q", once, twice)
	}
	if stats2.TotalRemoved() != 0 {
		t.Errorf("second pass removed %d nodes, want 0", stats2.TotalRemoved())
	}
}

func TestFilterHTMLKeywordCascadeIsIdempotent(t *testing.T) {
	p := NewPipeline(config.ContentFilterConfig{Presets: []string{"footer"}})

	// The div's full text is over the threshold only because of its children:
	// once the short copyright paragraph is cut, the div itself drops under
	// the threshold and must be cut in the same filtering call, not left for
	// a hypothetical second one.
	filler := strings.Repeat("filler ", 25)
	in := `<html><body><main>keep</main>` +
		`<div>copyright notice<span>` + filler + `</span><p>Copyright 2025 Example</p></div>` +
		`</body></html>`

	once, stats1, err := p.FilterHTML(in)
	if err != nil {
		t.Fatalf("FilterHTML: %v", err)
	}
	if strings.Contains(once, "copyright notice") || strings.Contains(once, "filler") {
		t.Errorf("shrunken ancestor survived: %q", once)
	}
	if !strings.Contains(once, "keep") {
		t.Errorf("main content was removed: %q", once)
	}
	if got := stats1.RemovedNodes["footer"]; got != 2 {
		t.Errorf("RemovedNodes[footer] = %d, want 2 (paragraph then ancestor)", got)
	}
	if stats1.FlaggedLong != 0 {
		t.Errorf("FlaggedLong = %d, want 0 once the cascade settles", stats1.FlaggedLong)
	}

	twice, stats2, err := p.FilterHTML(once)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if twice != once {
		t.Errorf("not idempotent:\nfirst:  %q\nsecond: %q", once, twice)
	}
	if stats2.TotalRemoved() != 0 {
		t.Errorf("second pass removed %d nodes, want 0", stats2.TotalRemoved())
	}
}

func TestFilterHTMLKeywordHeuristic(t *testing.T) {
	p := NewPipeline(config.ContentFilterConfig{Presets: []string{"footer"}})

	long := strings.Repeat("This sentence pads the node well past the removal threshold. ", 8)

	tests := []struct {
		name        string
		html        string
		wantRemoved int
		wantFlagged int
		wantGone    string
		wantKept    string
	}{
		{
			name:        "short node with keyword removed",
			html:        `<html><body><main>keep</main><div>Copyright 2025 Example</div></body></html>`,
			wantRemoved: 1,
			wantGone:    "Copyright 2025",
			wantKept:    "keep",
		},
		{
			name:        "long node with keyword kept and flagged",
			html:        `<html><body><p>` + long + ` copyright notice inside.</p></body></html>`,
			wantFlagged: 1,
			wantKept:    "pads the node",
		},
		{
			name:        "long node removed when keyword in class",
			html:        `<html><body><div class="copyright-block">` + long + ` copyright.</div></body></html>`,
			wantRemoved: 1,
			wantGone:    "pads the node",
		},
		{
			name:     "keyword-free content untouched",
			html:     `<html><body><p>Nothing to trigger here.</p></body></html>`,
			wantKept: "Nothing to trigger",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, stats, err := p.FilterHTML(tt.html)
			if err != nil {
				t.Fatalf("FilterHTML: %v", err)
			}
			if got := stats.RemovedNodes["footer"]; got != tt.wantRemoved {
				t.Errorf("removed = %d, want %d", got, tt.wantRemoved)
			}
			if stats.FlaggedLong != tt.wantFlagged {
				t.Errorf("flagged = %d, want %d", stats.FlaggedLong, tt.wantFlagged)
			}
			if tt.wantGone != "" && strings.Contains(out, tt.wantGone) {
				t.Errorf("expected %q to be removed, output: %q", tt.wantGone, out)
			}
			if tt.wantKept != "" && !strings.Contains(out, tt.wantKept) {
				t.Errorf("expected %q to survive, output: %q", tt.wantKept, out)
			}
		})
	}
}

func TestFilterHTMLFirstCategoryWinsAttribution(t *testing.T) {
	// A nav styled as a sidebar matches both the navigation and sidebar
	// category. Navigation comes first in declaration order regardless of the
	// order presets were requested in.
	p := NewPipeline(config.ContentFilterConfig{Presets: []string{"sidebar", "navigation"}})

	in := `<html><body><nav class="sidebar">links</nav><main>ok</main></body></html>`
	_, stats, err := p.FilterHTML(in)
	if err != nil {
		t.Fatalf("FilterHTML: %v", err)
	}
	if got := stats.RemovedNodes["navigation"]; got != 1 {
		t.Errorf("RemovedNodes[navigation] = %d, want 1", got)
	}
	if got := stats.RemovedNodes["sidebar"]; got != 0 {
		t.Errorf("RemovedNodes[sidebar] = %d, want 0 (already detached)", got)
	}
}

func TestFilterHTMLCustomSelectorsAndKeywords(t *testing.T) {
	p := NewPipeline(config.ContentFilterConfig{
		CustomSelectors: []string{".cookie-banner"},
		CustomKeywords:  []string{"newsletter"},
	})

	in := `<html><body>
		<div class="cookie-banner">We use cookies</div>
		<div>Subscribe to our newsletter!</div>
		<main>Article</main>
	</body></html>`

	out, stats, err := p.FilterHTML(in)
	if err != nil {
		t.Fatalf("FilterHTML: %v", err)
	}
	if strings.Contains(out, "cookies") || strings.Contains(out, "newsletter") {
		t.Errorf("custom rules did not apply: %q", out)
	}
	if got := stats.RemovedNodes[customCategory]; got != 2 {
		t.Errorf("RemovedNodes[custom] = %d, want 2", got)
	}
}

func TestFilterText(t *testing.T) {
	p := NewPipeline(config.ContentFilterConfig{Presets: []string{"footer", "social"}})

	long := strings.Repeat("word ", 30) + "copyright"
	in := strings.Join([]string{
		"# Title",
		"© 2025 Example",
		"Real paragraph content.",
		"分享",
		long,
	}, "\n")

	out, stats := p.FilterText(in)

	if strings.Contains(out, "© 2025") {
		t.Error("short copyright line survived")
	}
	if strings.Contains(out, "分享") {
		t.Error("short share line survived")
	}
	if !strings.Contains(out, "Real paragraph content.") {
		t.Error("content line was dropped")
	}
	if !strings.Contains(out, long) {
		t.Error("long keyword line should be kept")
	}
	if got := stats.RemovedBlocks["footer"]; got != 1 {
		t.Errorf("RemovedBlocks[footer] = %d, want 1", got)
	}
	if got := stats.RemovedBlocks["social"]; got != 1 {
		t.Errorf("RemovedBlocks[social] = %d, want 1", got)
	}
	if stats.FlaggedLong != 1 {
		t.Errorf("FlaggedLong = %d, want 1", stats.FlaggedLong)
	}
}

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline(config.ContentFilterConfig{})
	got := p.Categories()
	want := DefaultPresets()
	if len(got) != len(want) {
		t.Fatalf("default categories = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("default categories = %v, want %v", got, want)
		}
	}
}

func TestPresetNamesMatchConfigValidation(t *testing.T) {
	names := PresetNames()
	if len(names) != len(config.KnownPresets) {
		t.Fatalf("preset tables (%v) and config.KnownPresets (%v) diverge", names, config.KnownPresets)
	}
	for i, n := range names {
		if config.KnownPresets[i] != n {
			t.Fatalf("preset tables (%v) and config.KnownPresets (%v) diverge", names, config.KnownPresets)
		}
	}
}
