// Package extract pulls structured fields out of fetched pages. Two engines
// exist: selector-driven (css) and semantic (llm). Extraction failures never
// fail the page; the orchestrator stores empty fields and logs the error.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"site-crawler/pkg/config"
	"site-crawler/pkg/utils"
)

// Page is the material one extraction call works on.
type Page struct {
	URL      string
	Doc      *goquery.Document
	Markdown string
}

// Extractor produces named field values for one page.
type Extractor interface {
	Extract(ctx context.Context, page Page) (map[string]string, error)
}

// New builds the extractor for a validated config. Mode none yields nil:
// callers skip extraction entirely.
func New(cfg config.ExtractionConfig, log *logrus.Entry) (Extractor, error) {
	switch cfg.Mode {
	case config.ExtractionModeNone:
		return nil, nil
	case config.ExtractionModeCSS:
		fields := cfg.Fields
		if len(fields) == 0 {
			fields = DefaultFields()
		}
		return &cssExtractor{fields: fields}, nil
	case config.ExtractionModeLLM:
		return newLLMExtractor(cfg, log)
	default:
		return nil, fmt.Errorf("%w: unknown extraction mode '%s'", utils.ErrConfigValidation, cfg.Mode)
	}
}

// DefaultFields is the page schema used when css mode is enabled without an
// explicit field list.
func DefaultFields() []config.ExtractionField {
	return []config.ExtractionField{
		{Name: "title", Selector: "title", Type: config.FieldTypeText},
		{Name: "description", Selector: `meta[name="description"]`, Type: config.FieldTypeAttribute, Attribute: "content"},
		{Name: "headings", Selector: "h1, h2, h3", Type: config.FieldTypeText},
		{Name: "main_content", Selector: "main, article, .content", Type: config.FieldTypeHTML},
		{Name: "navigation", Selector: "nav", Type: config.FieldTypeHTML},
	}
}

// cssExtractor reads each field from the first matching node. A selector with
// no match yields an empty value rather than an error.
type cssExtractor struct {
	fields []config.ExtractionField
}

func (e *cssExtractor) Extract(_ context.Context, page Page) (map[string]string, error) {
	if page.Doc == nil {
		return nil, fmt.Errorf("%w: no document for %s", utils.ErrExtraction, page.URL)
	}

	out := make(map[string]string, len(e.fields))
	for _, f := range e.fields {
		sel := page.Doc.Find(f.Selector)
		if sel.Length() == 0 {
			out[f.Name] = ""
			continue
		}
		switch f.Type {
		case config.FieldTypeText:
			var parts []string
			sel.Each(func(_ int, s *goquery.Selection) {
				if txt := strings.TrimSpace(s.Text()); txt != "" {
					parts = append(parts, txt)
				}
			})
			out[f.Name] = strings.Join(parts, "\n")
		case config.FieldTypeHTML:
			html, err := goquery.OuterHtml(sel.First())
			if err != nil {
				return nil, fmt.Errorf("%w: rendering field '%s': %v", utils.ErrExtraction, f.Name, err)
			}
			out[f.Name] = html
		case config.FieldTypeAttribute:
			val, _ := sel.First().Attr(f.Attribute)
			out[f.Name] = strings.TrimSpace(val)
		}
	}
	return out, nil
}
