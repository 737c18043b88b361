package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-crawler/pkg/utils"
)

func containsWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestAppConfig_Validate_Defaults(t *testing.T) {
	cfg := AppConfig{} // Zero value
	warnings, err := cfg.Validate()

	require.NoError(t, err)

	assert.Equal(t, "site-crawler/1.0", cfg.DefaultUserAgent)
	assert.Equal(t, "./crawler_state", cfg.StateDir)
	assert.Equal(t, "./crawl_results", cfg.OutputDir)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 1*time.Second, cfg.InitialRetryDelay)
	assert.Equal(t, 30*time.Second, cfg.MaxRetryDelay)
	assert.Equal(t, int64(10<<20), cfg.MaxPageSizeBytes)
	assert.Equal(t, 50, cfg.RetainTasks)

	// HTTP client defaults
	assert.Equal(t, 45*time.Second, cfg.HTTPClientSettings.Timeout)
	assert.Equal(t, 100, cfg.HTTPClientSettings.MaxIdleConns)
	assert.Equal(t, 2, cfg.HTTPClientSettings.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, cfg.HTTPClientSettings.IdleConnTimeout)

	assert.True(t, containsWarning(warnings, "state_dir is empty"))
	assert.True(t, containsWarning(warnings, "output_dir is empty"))
}

func TestTaskConfig_Validate_Defaults(t *testing.T) {
	cfg := TaskConfig{SeedURL: "https://example.com/docs"}
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxDepth)
	assert.Equal(t, 100, cfg.MaxPages)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, StrategyBFS, cfg.Strategy)
	assert.Equal(t, CacheModeBypass, cfg.CacheMode)
	assert.True(t, containsWarning(warnings, "max_pages"))
	assert.True(t, containsWarning(warnings, "batch_size"))
}

func TestTaskConfig_Validate_SeedURL(t *testing.T) {
	tests := []struct {
		name string
		seed string
	}{
		{"empty", ""},
		{"relative", "/docs/index.html"},
		{"ftp scheme", "ftp://example.com/"},
		{"missing host", "https:///path"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := TaskConfig{SeedURL: tc.seed}
			_, err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, utils.ErrConfigValidation), "error should wrap ErrConfigValidation: %v", err)
		})
	}
}

func TestTaskConfig_Validate_LinksOnlyCapsDepth(t *testing.T) {
	cfg := TaskConfig{
		SeedURL:   "https://example.com/",
		Strategy:  StrategyLinksOnly,
		MaxDepth:  5,
		MaxPages:  10,
		BatchSize: 2,
	}
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MaxDepth)
	assert.True(t, containsWarning(warnings, "links-only"))
}

func TestTaskConfig_Validate_UnknownStrategy(t *testing.T) {
	cfg := TaskConfig{SeedURL: "https://example.com/", Strategy: "spiral"}
	_, err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spiral")
}

func TestTaskConfig_Validate_UnknownPreset(t *testing.T) {
	cfg := TaskConfig{
		SeedURL:       "https://example.com/",
		ContentFilter: ContentFilterConfig{Presets: []string{"footer", "banner"}},
	}
	_, err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "banner")
}

func TestTaskConfig_Validate_BlankExcludePattern(t *testing.T) {
	cfg := TaskConfig{
		SeedURL: "https://example.com/",
		Filters: FilterChainConfig{ExcludePatterns: []string{"*/admin/*", "   "}},
	}
	_, err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrConfigValidation))
}

func TestExtractionConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ExtractionConfig
		wantErr string
	}{
		{
			name: "valid css fields",
			cfg: ExtractionConfig{
				Mode: ExtractionModeCSS,
				Fields: []ExtractionField{
					{Name: "title", Selector: "h1", Type: FieldTypeText},
					{Name: "canonical", Selector: `link[rel="canonical"]`, Type: FieldTypeAttribute, Attribute: "href"},
				},
			},
		},
		{
			name:    "unknown mode",
			cfg:     ExtractionConfig{Mode: "regex"},
			wantErr: "unknown extraction mode",
		},
		{
			name:    "llm without instruction",
			cfg:     ExtractionConfig{Mode: ExtractionModeLLM},
			wantErr: "requires an instruction",
		},
		{
			name: "duplicate field names",
			cfg: ExtractionConfig{
				Mode: ExtractionModeCSS,
				Fields: []ExtractionField{
					{Name: "title", Selector: "h1", Type: FieldTypeText},
					{Name: "title", Selector: "h2", Type: FieldTypeText},
				},
			},
			wantErr: "duplicate extraction field",
		},
		{
			name: "attribute type without attribute",
			cfg: ExtractionConfig{
				Mode:   ExtractionModeCSS,
				Fields: []ExtractionField{{Name: "link", Selector: "a", Type: FieldTypeAttribute}},
			},
			wantErr: "needs an attribute name",
		},
		{
			name: "attribute set on text type",
			cfg: ExtractionConfig{
				Mode:   ExtractionModeCSS,
				Fields: []ExtractionField{{Name: "title", Selector: "h1", Type: FieldTypeText, Attribute: "id"}},
			},
			wantErr: "sets attribute but type",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRobotsEnabled(t *testing.T) {
	cfg := TaskConfig{}
	assert.True(t, cfg.RobotsEnabled(), "nil means enabled")

	off := false
	cfg.RespectRobots = &off
	assert.False(t, cfg.RobotsEnabled())

	on := true
	cfg.RespectRobots = &on
	assert.True(t, cfg.RobotsEnabled())
}
