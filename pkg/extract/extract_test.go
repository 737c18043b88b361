package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"site-crawler/pkg/config"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing test HTML: %v", err)
	}
	return doc
}

func TestNewReturnsNilForModeNone(t *testing.T) {
	e, err := New(config.ExtractionConfig{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e != nil {
		t.Fatal("mode none should yield a nil extractor")
	}
}

func TestCSSExtractor(t *testing.T) {
	doc := docFrom(t, `<html><head>
		<title>Page Title</title>
		<meta name="description" content="desc here">
	</head><body>
		<h1>Main</h1>
		<h2>Section</h2>
		<article><p>Body</p></article>
		<img src="/hero.png" alt="Hero">
	</body></html>`)

	fields := []config.ExtractionField{
		{Name: "title", Selector: "title", Type: config.FieldTypeText},
		{Name: "description", Selector: `meta[name="description"]`, Type: config.FieldTypeAttribute, Attribute: "content"},
		{Name: "headings", Selector: "h1, h2", Type: config.FieldTypeText},
		{Name: "body", Selector: "article", Type: config.FieldTypeHTML},
		{Name: "hero_alt", Selector: "img", Type: config.FieldTypeAttribute, Attribute: "alt"},
		{Name: "missing", Selector: ".nope", Type: config.FieldTypeText},
	}

	e, err := New(config.ExtractionConfig{Mode: config.ExtractionModeCSS, Fields: fields}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := e.Extract(context.Background(), Page{URL: "https://example.com", Doc: doc})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := map[string]string{
		"title":       "Page Title",
		"description": "desc here",
		"headings":    "Main\nSection",
		"hero_alt":    "Hero",
		"missing":     "",
	}
	for name, expected := range want {
		if got[name] != expected {
			t.Errorf("%s = %q, want %q", name, got[name], expected)
		}
	}
	if !strings.Contains(got["body"], "<article>") || !strings.Contains(got["body"], "<p>Body</p>") {
		t.Errorf("body = %q, want outer article HTML", got["body"])
	}
}

func TestCSSExtractorDefaultSchema(t *testing.T) {
	doc := docFrom(t, `<html><head><title>T</title></head><body>
		<nav><a href="/a">A</a></nav>
		<main><p>Content</p></main>
	</body></html>`)

	e, err := New(config.ExtractionConfig{Mode: config.ExtractionModeCSS}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := e.Extract(context.Background(), Page{Doc: doc})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	for _, f := range DefaultFields() {
		if _, present := got[f.Name]; !present {
			t.Errorf("default field %q missing from result", f.Name)
		}
	}
	if got["title"] != "T" {
		t.Errorf("title = %q", got["title"])
	}
	if !strings.Contains(got["navigation"], `href="/a"`) {
		t.Errorf("navigation = %q", got["navigation"])
	}
}

func TestParseJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     map[string]string
		wantErr  bool
	}{
		{
			name:     "plain object",
			response: `{"title": "Hi", "count": 3}`,
			want:     map[string]string{"title": "Hi", "count": "3"},
		},
		{
			name:     "fenced object",
			response: "Here you go:\n```json\n{\"a\": \"b\"}\n```",
			want:     map[string]string{"a": "b"},
		},
		{
			name:     "null value",
			response: `{"a": null}`,
			want:     map[string]string{"a": ""},
		},
		{
			name:     "no object",
			response: "sorry, I cannot do that",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseJSONObject(tt.response)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseJSONObject: %v", err)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}
