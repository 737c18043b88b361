package models

import "time"

// URLRecord tracks one discovered URL through its lifetime in the frontier.
// The frontier owns exactly one record per normalized URL per task.
type URLRecord struct {
	URL           string    `json:"url"`              // URL as discovered (pre-normalization)
	NormalizedURL string    `json:"normalized_url"`   // Uniqueness key
	Depth         int       `json:"depth"`            // Discovery depth (seed = 0)
	Parent        string    `json:"parent,omitempty"` // Normalized URL of the discovering page
	Status        URLStatus `json:"status"`
	DiscoveredAt  time.Time `json:"discovered_at"`
	FilteredBy    string    `json:"filtered_by,omitempty"` // Name of the rejecting filter rule
	Error         string    `json:"error,omitempty"`       // Captured fetch error message
}

// Anchor is a single navigation link harvested from a page.
type Anchor struct {
	URL           string `json:"url"`
	NormalizedURL string `json:"normalized_url"`
	Text          string `json:"text"`
	Level         int    `json:"level"`    // Nesting level within the nav region
	Selector      string `json:"selector"` // Selector that matched the containing region
}

// PageResult holds everything produced for one successfully fetched URL.
// Immutable after creation; owned by the orchestrator's result set.
type PageResult struct {
	URL           string            `json:"url"`
	NormalizedURL string            `json:"normalized_url"`
	Title         string            `json:"title,omitempty"`
	Description   string            `json:"description,omitempty"`
	RawHTML       string            `json:"raw_html,omitempty"`
	FilteredHTML  string            `json:"filtered_html,omitempty"`
	Markdown      string            `json:"markdown,omitempty"`
	TokenCount    int               `json:"token_count,omitempty"` // -1 when the tokenizer is unavailable
	Extracted     map[string]string `json:"extracted,omitempty"`   // Structured fields by name
	Links         []string          `json:"links,omitempty"`       // Outbound links, raw and pre-filter
	Anchors       []Anchor          `json:"anchors,omitempty"`
	StatusCode    int               `json:"status_code"`
	Depth         int               `json:"depth"`
	FetchedAt     time.Time         `json:"fetched_at"`
	RemovedNodes  map[string]int    `json:"removed_nodes,omitempty"` // Content-filter removals per category
}

// Stats is the mutable per-task counter set. Mutation is serialized by the
// orchestrator; observers only ever see copies.
type Stats struct {
	Discovered  int64          `json:"discovered"` // Offered links admitted past dedup, filters and budgets
	Queued      int64          `json:"queued"`
	Fetched     int64          `json:"fetched"`
	Failed      int64          `json:"failed"`
	FilteredOut int64          `json:"filtered_out"`
	InFlight    int64          `json:"in_flight"`
	Removed     map[string]int `json:"removed,omitempty"` // Aggregated content-filter removals
	StartTime   time.Time      `json:"start_time,omitempty"`
	EndTime     time.Time      `json:"end_time,omitempty"`
}

// SuccessRate returns fetched / (fetched + failed), or 0 before any attempt.
func (s *Stats) SuccessRate() float64 {
	attempted := s.Fetched + s.Failed
	if attempted == 0 {
		return 0
	}
	return float64(s.Fetched) / float64(attempted)
}

// Duration returns the elapsed crawl time, using the current time for tasks
// that have not finished yet.
func (s *Stats) Duration() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartTime)
}

// TaskSummary is the persisted record of a terminal task.
type TaskSummary struct {
	TaskID      string        `json:"task_id"`
	SeedURL     string        `json:"seed_url"`
	Status      TaskStatus    `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	Discovered  int64         `json:"discovered"`
	Fetched     int64         `json:"fetched"`
	Failed      int64         `json:"failed"`
	FilteredOut int64         `json:"filtered_out"`
	SuccessRate float64       `json:"success_rate"`
	Duration    time.Duration `json:"duration"`
	FinishedAt  time.Time     `json:"finished_at"`
}
