package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"site-crawler/pkg/config"
	"site-crawler/pkg/parse"
	"site-crawler/pkg/utils"
)

// Result is one successfully retrieved and parsed page.
type Result struct {
	StatusCode  int
	FinalURL    *url.URL // After redirects
	HTML        string
	Doc         *goquery.Document
	Title       string
	Description string
	Links       []string // Absolute outbound hrefs in document order, pre-filter
}

// PageFetcher retrieves one URL into a parsed page. Implementations must be
// safe for concurrent use; the dispatcher calls them from batch_size workers.
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string, taskCfg *config.TaskConfig) (*Result, error)
}

// HTTPPageFetcher is the production PageFetcher: robots check, per-host
// delay, retrying GET, bounded body read, DOM parse.
type HTTPPageFetcher struct {
	fetcher     *Fetcher
	robots      *RobotsHandler
	rateLimiter *RateLimiter
	cfg         *config.AppConfig
	log         *logrus.Entry
}

func NewHTTPPageFetcher(fetcher *Fetcher, robots *RobotsHandler, rateLimiter *RateLimiter, cfg *config.AppConfig, log *logrus.Entry) *HTTPPageFetcher {
	return &HTTPPageFetcher{
		fetcher:     fetcher,
		robots:      robots,
		rateLimiter: rateLimiter,
		cfg:         cfg,
		log:         log,
	}
}

func (pf *HTTPPageFetcher) FetchPage(ctx context.Context, rawURL string, taskCfg *config.TaskConfig) (*Result, error) {
	if taskCfg.PerPageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, taskCfg.PerPageTimeout)
		defer cancel()
	}

	target, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing '%s': %v", utils.ErrRequestCreation, rawURL, err)
	}

	userAgent := taskCfg.UserAgent
	if userAgent == "" {
		userAgent = pf.cfg.DefaultUserAgent
	}

	if taskCfg.RobotsEnabled() && !pf.robots.TestAgent(ctx, target, userAgent) {
		return nil, fmt.Errorf("%w: %s", utils.ErrRobotsDisallowed, rawURL)
	}

	pf.rateLimiter.ApplyDelay(target.Hostname(), taskCfg.DelayPerHost)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrRequestCreation, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := pf.fetcher.FetchWithRetry(ctx, req)
	pf.rateLimiter.UpdateLastRequestTime(target.Hostname())
	if err != nil {
		if resp != nil {
			drain(resp)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("%w: unsupported content type '%s' for %s", utils.ErrParsing, ct, rawURL)
	}

	// Read at most MaxPageSizeBytes; one extra byte detects oversize.
	limited := io.LimitReader(resp.Body, pf.cfg.MaxPageSizeBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrResponseBodyRead, err)
	}
	if int64(len(body)) > pf.cfg.MaxPageSizeBytes {
		return nil, fmt.Errorf("%w: page exceeds %d bytes", utils.ErrResponseBodyRead, pf.cfg.MaxPageSizeBytes)
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrParsing, err)
	}

	result := &Result{
		StatusCode:  resp.StatusCode,
		FinalURL:    finalURL,
		HTML:        string(body),
		Doc:         doc,
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: metaDescription(doc),
		Links:       harvestLinks(doc, finalURL),
	}
	return result, nil
}

func metaDescription(doc *goquery.Document) string {
	desc, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	return strings.TrimSpace(desc)
}

// harvestLinks collects every outbound http(s) href, resolved absolute, in
// document order. Duplicates survive here; the frontier deduplicates.
func harvestLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if absolute, _, ok := parse.Resolve(base, href); ok {
			links = append(links, absolute)
		}
	})
	return links
}
