package config

import (
	"fmt"
	"net/url"
	"time"

	"site-crawler/pkg/utils"
)

// KnownPresets is the canonical set of content-filter preset names.
var KnownPresets = []string{
	"footer", "header", "navigation", "ads", "social", "comments", "sidebar", "popup",
}

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.DefaultUserAgent == "" {
		c.DefaultUserAgent = "site-crawler/1.0"
	}

	if c.StateDir == "" {
		warnings = append(warnings, "state_dir is empty, defaulting to './crawler_state'")
		c.StateDir = "./crawler_state"
	}
	if c.OutputDir == "" {
		warnings = append(warnings, "output_dir is empty, defaulting to './crawl_results'")
		c.OutputDir = "./crawl_results"
	}

	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}
	if c.MaxRetries == 0 && c.InitialRetryDelay == 0 {
		c.MaxRetries = 3
	}
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 1 * time.Second
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 30 * time.Second
		}
	}
	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	if c.MaxPageSizeBytes <= 0 {
		c.MaxPageSizeBytes = 10 << 20 // 10 MiB
	}

	if c.RetainTasks <= 0 {
		c.RetainTasks = 50
	}

	c.validateHTTPClientSettings()

	return warnings, nil // AppConfig validation never fails fatally
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}

// Validate checks TaskConfig fields and applies defaults. A fatal error here
// is a ConfigurationError: the task must transition to failed before any
// fetch is performed and before any stats increment.
// Modifies receiver in place to apply defaults.
func (c *TaskConfig) Validate() (warnings []string, err error) {
	// Required: seed URL, absolute http(s)
	if c.SeedURL == "" {
		return nil, fmt.Errorf("%w: task needs seed_url", utils.ErrConfigValidation)
	}
	parsed, parseErr := url.ParseRequestURI(c.SeedURL)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: invalid seed_url '%s': %v", utils.ErrConfigValidation, c.SeedURL, parseErr)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: seed_url '%s' must be http or https", utils.ErrConfigValidation, c.SeedURL)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: seed_url '%s' missing host", utils.ErrConfigValidation, c.SeedURL)
	}

	if c.MaxDepth < 0 {
		warnings = append(warnings, "max_depth cannot be negative, defaulting to 3")
		c.MaxDepth = 3
	} else if c.MaxDepth == 0 {
		c.MaxDepth = 3
	}

	if c.MaxPages <= 0 {
		warnings = append(warnings, "max_pages should be > 0, defaulting to 100")
		c.MaxPages = 100
	}

	if c.BatchSize <= 0 {
		warnings = append(warnings, "batch_size should be > 0, defaulting to 10")
		c.BatchSize = 10
	}

	switch c.Strategy {
	case StrategyBFS, StrategyDFS, StrategyLinksOnly:
	case "":
		c.Strategy = StrategyBFS
	default:
		return nil, fmt.Errorf("%w: unknown strategy '%s'", utils.ErrConfigValidation, c.Strategy)
	}
	// Links-only never recurses past the seed's own link set.
	if c.Strategy == StrategyLinksOnly && c.MaxDepth > 1 {
		warnings = append(warnings, "links-only strategy caps max_depth at 1")
		c.MaxDepth = 1
	}

	switch c.CacheMode {
	case CacheModeEnabled, CacheModeBypass:
	case "":
		c.CacheMode = CacheModeBypass
	default:
		return nil, fmt.Errorf("%w: unknown cache_mode '%s'", utils.ErrConfigValidation, c.CacheMode)
	}

	// Exclude patterns must compile (checked once here, reused by the chain).
	if _, patErr := utils.CompileWildcardPatterns(c.Filters.ExcludePatterns); patErr != nil {
		return nil, patErr
	}

	for _, preset := range c.ContentFilter.Presets {
		if !isKnownPreset(preset) {
			return nil, fmt.Errorf("%w: unknown content filter preset '%s' (available: %v)",
				utils.ErrConfigValidation, preset, KnownPresets)
		}
	}

	if err := c.Extraction.validate(); err != nil {
		return nil, err
	}

	if c.PerPageTimeout < 0 {
		warnings = append(warnings, "per_page_timeout cannot be negative, disabling timeout")
		c.PerPageTimeout = 0
	}
	if c.DelayPerHost < 0 {
		warnings = append(warnings, "delay_per_host cannot be negative, disabling delay")
		c.DelayPerHost = 0
	}

	return warnings, nil
}

func (e *ExtractionConfig) validate() error {
	switch e.Mode {
	case ExtractionModeNone, ExtractionModeCSS, ExtractionModeLLM:
	default:
		return fmt.Errorf("%w: unknown extraction mode '%s'", utils.ErrConfigValidation, e.Mode)
	}

	if e.Mode == ExtractionModeLLM && e.Instruction == "" {
		return fmt.Errorf("%w: extraction mode 'llm' requires an instruction", utils.ErrConfigValidation)
	}

	seen := make(map[string]bool, len(e.Fields))
	for i, f := range e.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: extraction field %d missing name", utils.ErrConfigValidation, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate extraction field '%s'", utils.ErrConfigValidation, f.Name)
		}
		seen[f.Name] = true
		if f.Selector == "" {
			return fmt.Errorf("%w: extraction field '%s' missing selector", utils.ErrConfigValidation, f.Name)
		}
		switch f.Type {
		case FieldTypeText, FieldTypeHTML:
			if f.Attribute != "" {
				return fmt.Errorf("%w: extraction field '%s' sets attribute but type is '%s'",
					utils.ErrConfigValidation, f.Name, f.Type)
			}
		case FieldTypeAttribute:
			if f.Attribute == "" {
				return fmt.Errorf("%w: extraction field '%s' of type attribute needs an attribute name",
					utils.ErrConfigValidation, f.Name)
			}
		default:
			return fmt.Errorf("%w: extraction field '%s' has unknown type '%s'",
				utils.ErrConfigValidation, f.Name, f.Type)
		}
	}
	return nil
}

func isKnownPreset(name string) bool {
	for _, p := range KnownPresets {
		if p == name {
			return true
		}
	}
	return false
}
