package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"site-crawler/pkg/config"
	"site-crawler/pkg/utils"
)

// maxPromptChars bounds how much page markdown goes into one prompt.
const maxPromptChars = 24000

// llmExtractor asks a model to fill the configured fields from the page
// markdown, expecting a flat JSON object back.
type llmExtractor struct {
	model       llms.Model
	instruction string
	fieldNames  []string
	log         *logrus.Entry
}

func newLLMExtractor(cfg config.ExtractionConfig, log *logrus.Entry) (*llmExtractor, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case "", "openai":
		var opts []openai.Option
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		model, err = openai.New(opts...)
	case "anthropic":
		var opts []anthropic.Option
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		model, err = anthropic.New(opts...)
	default:
		return nil, fmt.Errorf("%w: unknown llm provider '%s'", utils.ErrConfigValidation, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: initializing llm provider: %v", utils.ErrConfigValidation, err)
	}

	var names []string
	for _, f := range cfg.Fields {
		names = append(names, f.Name)
	}
	return &llmExtractor{
		model:       model,
		instruction: cfg.Instruction,
		fieldNames:  names,
		log:         log,
	}, nil
}

func (e *llmExtractor) Extract(ctx context.Context, page Page) (map[string]string, error) {
	content := page.Markdown
	if len(content) > maxPromptChars {
		content = content[:maxPromptChars]
	}

	prompt := e.buildPrompt(page.URL, content)
	response, err := llms.GenerateFromSinglePrompt(ctx, e.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: llm call for %s: %v", utils.ErrExtraction, page.URL, err)
	}

	fields, err := parseJSONObject(response)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing llm response for %s: %v", utils.ErrExtraction, page.URL, err)
	}

	// Unrequested keys are dropped; requested but missing keys become empty.
	if len(e.fieldNames) > 0 {
		out := make(map[string]string, len(e.fieldNames))
		for _, name := range e.fieldNames {
			out[name] = fields[name]
		}
		return out, nil
	}
	return fields, nil
}

func (e *llmExtractor) buildPrompt(url, content string) string {
	var b strings.Builder
	b.WriteString("Extract structured data from the following web page content.\n\n")
	fmt.Fprintf(&b, "Instruction: %s\n", e.instruction)
	if len(e.fieldNames) > 0 {
		fmt.Fprintf(&b, "Return a JSON object with exactly these string fields: %s\n", strings.Join(e.fieldNames, ", "))
	} else {
		b.WriteString("Return a flat JSON object of string fields.\n")
	}
	b.WriteString("Respond with JSON only, no surrounding text.\n\n")
	fmt.Fprintf(&b, "Page URL: %s\n\nPage content:\n%s\n", url, content)
	return b.String()
}

// parseJSONObject tolerates models that wrap the object in a markdown code
// fence or leading prose.
func parseJSONObject(response string) (map[string]string, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				return nil, err
			}
			out[k] = string(encoded)
		}
	}
	return out, nil
}
