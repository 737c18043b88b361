package config

import "time"

// Strategy selects the frontier's visit ordering.
type Strategy string

const (
	StrategyBFS       Strategy = "bfs"        // Breadth-first, strict depth order
	StrategyDFS       Strategy = "dfs"        // Most-recently-discovered first
	StrategyLinksOnly Strategy = "links-only" // Seed page plus its own links, no recursion
)

// CacheMode controls whether the fetcher may serve previously stored pages.
type CacheMode string

const (
	CacheModeEnabled CacheMode = "enabled" // Reuse stored results for known URLs
	CacheModeBypass  CacheMode = "bypass"  // Always refetch
)

// FilterChainConfig is the ordered URL-admission rule set. A URL is admitted
// iff it passes every enabled rule; the first failing rule is the one
// attributed in logs and on the URLRecord.
type FilterChainConfig struct {
	ExcludeExternal bool     `yaml:"exclude_external"`
	ExcludeSocial   bool     `yaml:"exclude_social"`
	ExcludeDomains  []string `yaml:"exclude_domains,omitempty"`
	ExcludePatterns []string `yaml:"exclude_patterns,omitempty"` // Wildcard patterns against the full URL
	ExcludeImages   bool     `yaml:"exclude_images"`
}

// ContentFilterConfig selects boilerplate-removal behavior.
type ContentFilterConfig struct {
	Presets         []string `yaml:"presets,omitempty"` // Subset of content.PresetNames()
	CustomSelectors []string `yaml:"custom_selectors,omitempty"`
	CustomKeywords  []string `yaml:"custom_keywords,omitempty"`
}

// ExtractionFieldType enumerates how an extraction field reads its selection.
type ExtractionFieldType string

const (
	FieldTypeText      ExtractionFieldType = "text"
	FieldTypeHTML      ExtractionFieldType = "html"
	FieldTypeAttribute ExtractionFieldType = "attribute"
)

// ExtractionField describes one structured field pulled from each page.
type ExtractionField struct {
	Name      string              `yaml:"name"`
	Selector  string              `yaml:"selector"`
	Type      ExtractionFieldType `yaml:"type"`
	Attribute string              `yaml:"attribute,omitempty"` // Required iff Type == attribute
}

// ExtractionMode selects the structured-extraction engine.
type ExtractionMode string

const (
	ExtractionModeNone ExtractionMode = ""    // Structured extraction disabled
	ExtractionModeCSS  ExtractionMode = "css" // Selector-driven field extraction
	ExtractionModeLLM  ExtractionMode = "llm" // Semantic extraction via an LLM provider
)

// ExtractionConfig configures per-page structured extraction.
type ExtractionConfig struct {
	Mode        ExtractionMode    `yaml:"mode,omitempty"`
	Fields      []ExtractionField `yaml:"fields,omitempty"`
	Instruction string            `yaml:"instruction,omitempty"` // LLM mode only
	Provider    string            `yaml:"provider,omitempty"`    // LLM mode only (e.g. "openai")
	Model       string            `yaml:"model,omitempty"`       // LLM mode only
}

// TaskConfig is the immutable per-task configuration snapshot. It is
// validated once at submission; a task never observes config mutation.
type TaskConfig struct {
	SeedURL        string              `yaml:"seed_url"`
	MaxDepth       int                 `yaml:"max_depth"`
	MaxPages       int                 `yaml:"max_pages"`
	BatchSize      int                 `yaml:"batch_size"` // Logical concurrency budget
	Strategy       Strategy            `yaml:"strategy"`
	CacheMode      CacheMode           `yaml:"cache_mode,omitempty"`
	Filters        FilterChainConfig   `yaml:"filters"`
	ContentFilter  ContentFilterConfig `yaml:"content_filter"`
	Extraction     ExtractionConfig    `yaml:"extraction,omitempty"`
	UserAgent      string              `yaml:"user_agent,omitempty"`
	DelayPerHost   time.Duration       `yaml:"delay_per_host,omitempty"`
	PerPageTimeout time.Duration       `yaml:"per_page_timeout,omitempty"` // 0 = no timeout
	RespectRobots  *bool               `yaml:"respect_robots,omitempty"`   // nil = true
}

// RobotsEnabled resolves the tri-state RespectRobots flag.
func (c *TaskConfig) RobotsEnabled() bool {
	return c.RespectRobots == nil || *c.RespectRobots
}

// AppConfig holds process-wide settings shared by all tasks.
type AppConfig struct {
	DefaultUserAgent    string           `yaml:"default_user_agent,omitempty"`
	StateDir            string           `yaml:"state_dir,omitempty"`  // Badger store location
	OutputDir           string           `yaml:"output_dir,omitempty"` // Report/file output location
	MaxRetries          int              `yaml:"max_retries,omitempty"`
	InitialRetryDelay   time.Duration    `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay       time.Duration    `yaml:"max_retry_delay,omitempty"`
	MaxPageSizeBytes    int64            `yaml:"max_page_size_bytes,omitempty"`
	EnableTokenCounting bool             `yaml:"enable_token_counting,omitempty"`
	TokenizerEncoding   string           `yaml:"tokenizer_encoding,omitempty"`
	RetainTasks         int              `yaml:"retain_tasks,omitempty"` // Terminal tasks kept in the registry
	HTTPClientSettings  HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"`
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"`
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"` // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`
}
