package nav

import (
	"net/url"
	"sync"

	"site-crawler/pkg/models"
)

// Report is the site-wide navigation summary assembled after a crawl.
type Report struct {
	SeedURL      string          `json:"seed_url"`
	TotalPages   int             `json:"total_pages"`
	PagesWithNav int             `json:"pages_with_navigation"`
	Links        []models.Anchor `json:"unique_navigation_links"`
	Tree         *TreeNode       `json:"navigation_tree,omitempty"`
}

// Synthesizer accumulates harvested anchors across pages. Safe for use from
// concurrent page workers; the merged link set keeps first-ingestion order so
// the final report is deterministic for a deterministic crawl order.
type Synthesizer struct {
	mu           sync.Mutex
	seedURL      string
	seen         map[string]bool
	links        []models.Anchor
	totalPages   int
	pagesWithNav int
}

func NewSynthesizer(seedURL string) *Synthesizer {
	return &Synthesizer{
		seedURL: seedURL,
		seen:    make(map[string]bool),
	}
}

// Ingest merges one page's harvested anchors into the site-wide set and
// returns how many were new. A link is identified by its normalized target
// URL; the first-ingested display text wins when pages label the same target
// differently. Pages with no anchors still count toward the page total.
func (s *Synthesizer) Ingest(anchors []models.Anchor) (added int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalPages++
	if len(anchors) > 0 {
		s.pagesWithNav++
	}
	for _, a := range anchors {
		if s.seen[a.NormalizedURL] {
			continue
		}
		s.seen[a.NormalizedURL] = true
		s.links = append(s.links, a)
		added++
	}
	return added
}

// LinkCount returns the current number of unique navigation links.
func (s *Synthesizer) LinkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

// Report snapshots the accumulated state and builds the path-segment tree.
func (s *Synthesizer) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	links := make([]models.Anchor, len(s.links))
	copy(links, s.links)

	return Report{
		SeedURL:      s.seedURL,
		TotalPages:   s.totalPages,
		PagesWithNav: s.pagesWithNav,
		Links:        links,
		Tree:         BuildTree(links),
	}
}

// hostAndSegments splits a normalized URL into its host and path segments.
func hostAndSegments(normalized string) (string, []string) {
	u, err := url.Parse(normalized)
	if err != nil {
		return normalized, nil
	}
	var segments []string
	for _, seg := range splitPath(u.Path) {
		segments = append(segments, seg)
	}
	return u.Host, segments
}

func splitPath(p string) []string {
	var out []string
	start := -1
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if start >= 0 {
				out = append(out, p[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	return out
}
