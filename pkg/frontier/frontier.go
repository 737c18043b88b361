// Package frontier tracks every URL a crawl has seen and schedules which one
// is fetched next. All admission decisions (dedup, filter chain, depth and
// page budgets) happen when a URL is offered, so the queue only ever holds
// records that are actually going to be fetched.
package frontier

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"site-crawler/pkg/config"
	"site-crawler/pkg/filter"
	"site-crawler/pkg/models"
	"site-crawler/pkg/parse"
	"site-crawler/pkg/queue"
)

// Rejection reasons recorded on URLRecords that were seen but never queued.
const (
	reasonMaxDepth   = "max-depth"
	reasonPageBudget = "page-budget"
	reasonInvalidURL = "invalid-url"
)

// Frontier is safe for concurrent use by the dispatcher's workers.
type Frontier struct {
	cfg   *config.TaskConfig
	chain *filter.Chain
	log   *logrus.Entry

	mu       sync.Mutex
	cond     *sync.Cond
	records  map[string]*models.URLRecord // Keyed by normalized URL
	q        *queue.URLQueue
	inFlight map[string]int // Normalized URL -> depth
	admitted int            // URLs ever queued; admitted + filtered-out is charged against MaxPages
	nextSeq  int64
	closed   bool

	stats models.Stats
}

// New builds a frontier for one task and seeds it with the task's seed URL.
// The config must already be validated; an unparsable seed here is a bug.
func New(cfg *config.TaskConfig, chain *filter.Chain, log *logrus.Entry) (*Frontier, error) {
	f := &Frontier{
		cfg:      cfg,
		chain:    chain,
		log:      log,
		records:  make(map[string]*models.URLRecord),
		q:        queue.NewURLQueue(),
		inFlight: make(map[string]int),
	}
	f.cond = sync.NewCond(&f.mu)
	f.stats.StartTime = time.Now()

	normalized, _, err := parse.ParseAndNormalize(cfg.SeedURL)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	rec := &models.URLRecord{
		URL:           cfg.SeedURL,
		NormalizedURL: normalized,
		Depth:         0,
		Status:        models.URLStatusDiscovered,
		DiscoveredAt:  time.Now(),
	}
	f.records[normalized] = rec
	f.enqueueLocked(rec)
	f.mu.Unlock()

	return f, nil
}

// Offer runs every link discovered on a fetched page through dedup, the
// filter chain and the budgets, queueing the survivors. Only survivors count
// as discovered; the seed, duplicates and rejected links do not. Returns how
// many links were queued. Duplicate offers of a known URL are silently
// ignored regardless of the outcome recorded for it.
func (f *Frontier) Offer(parent *models.URLRecord, links []string) (queued int) {
	depth := parent.Depth + 1

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0
	}

	for _, link := range links {
		normalized, parsed, err := parse.ParseAndNormalize(link)
		if err != nil {
			continue
		}
		if _, known := f.records[normalized]; known {
			continue
		}

		rec := &models.URLRecord{
			URL:           link,
			NormalizedURL: normalized,
			Depth:         depth,
			Parent:        parent.NormalizedURL,
			Status:        models.URLStatusDiscovered,
			DiscoveredAt:  time.Now(),
		}
		f.records[normalized] = rec

		if admitted, failedRule := f.chain.Admit(parsed); !admitted {
			rec.Status = models.URLStatusFilteredOut
			rec.FilteredBy = failedRule
			f.stats.FilteredOut++
			f.log.WithFields(logrus.Fields{"url": link, "rule": failedRule}).
				Debug("URL rejected by filter chain")
			continue
		}

		if depth > f.cfg.MaxDepth {
			rec.FilteredBy = reasonMaxDepth
			continue
		}
		// Every queued URL ends up fetched or failed, so admitted stands in
		// for their eventual terminal count: the crawl stops once terminal
		// outcomes would reach MaxPages.
		if f.admitted+int(f.stats.FilteredOut) >= f.cfg.MaxPages {
			rec.FilteredBy = reasonPageBudget
			continue
		}

		f.stats.Discovered++
		f.enqueueLocked(rec)
		queued++
	}

	if queued > 0 {
		f.cond.Broadcast()
	}
	return queued
}

// enqueueLocked moves a discovered record into the queue. Caller holds f.mu.
func (f *Frontier) enqueueLocked(rec *models.URLRecord) {
	rec.Status = models.URLStatusQueued
	f.admitted++
	f.stats.Queued++
	f.q.Push(rec, f.priority(rec))
	f.nextSeq++
}

// priority maps a record to its queue priority. BFS and links-only pop in
// strict depth order (FIFO within a depth); DFS pops the most recently
// discovered record first.
func (f *Frontier) priority(rec *models.URLRecord) int64 {
	if f.cfg.Strategy == config.StrategyDFS {
		return -f.nextSeq
	}
	return int64(rec.Depth)
}

// Next blocks until a record is ready to fetch, the crawl is exhausted, or
// ctx is cancelled. Under BFS a record at depth N+1 is withheld while any
// record at depth <= N is still queued or in flight, so link discovery at the
// shallower level can finish first.
func (f *Frontier) Next(ctx context.Context) (*models.URLRecord, bool) {
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.closed || ctx.Err() != nil {
			return nil, false
		}
		if f.exhaustedLocked() {
			return nil, false
		}
		if rec, ok := f.takeLocked(); ok {
			return rec, true
		}
		f.cond.Wait()
	}
}

// takeLocked pops the head record if scheduling allows it. Caller holds f.mu.
func (f *Frontier) takeLocked() (*models.URLRecord, bool) {
	head, ok := f.q.PeekPriority()
	if !ok {
		return nil, false
	}

	if f.cfg.Strategy != config.StrategyDFS {
		for _, depth := range f.inFlight {
			if int64(depth) < head {
				return nil, false
			}
		}
	}

	rec, ok := f.q.TryPop()
	if !ok {
		return nil, false
	}
	rec.Status = models.URLStatusFetching
	f.inFlight[rec.NormalizedURL] = rec.Depth
	f.stats.Queued--
	f.stats.InFlight++
	return rec, true
}

// MarkFetched records a successful fetch and releases the in-flight slot.
func (f *Frontier) MarkFetched(rec *models.URLRecord) {
	f.finish(rec, models.URLStatusFetched, nil)
}

// MarkFailed records a permanently failed fetch. The URL is not re-queued;
// retries live inside the fetcher.
func (f *Frontier) MarkFailed(rec *models.URLRecord, err error) {
	f.finish(rec, models.URLStatusFailed, err)
}

func (f *Frontier) finish(rec *models.URLRecord, status models.URLStatus, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec.Status = status
	if err != nil {
		rec.Error = err.Error()
		f.stats.Failed++
	} else {
		f.stats.Fetched++
	}
	delete(f.inFlight, rec.NormalizedURL)
	f.stats.InFlight--
	f.cond.Broadcast()
}

// Exhausted reports whether no work remains: nothing queued, nothing in
// flight. Offers cannot revive an exhausted frontier because offers only
// happen while a page is in flight.
func (f *Frontier) Exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exhaustedLocked()
}

func (f *Frontier) exhaustedLocked() bool {
	return f.q.Len() == 0 && len(f.inFlight) == 0
}

// Close aborts scheduling: queued records stay in their current state and
// every blocked Next call returns false.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.q.Close()
		f.cond.Broadcast()
	}
}

// Snapshot copies the current counters.
func (f *Frontier) Snapshot() models.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// Records returns every URLRecord the crawl has seen, for the final
// URL-to-outcome report. Sorted by discovery via the record map is not
// guaranteed; callers sort as needed.
func (f *Frontier) Records() []models.URLRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.URLRecord, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, *rec)
	}
	return out
}

// RejectionReason exposes why a URL was never fetched, for logs and reports.
func RejectionReason(rec models.URLRecord) string {
	switch {
	case rec.Status == models.URLStatusFilteredOut:
		return "filter:" + rec.FilteredBy
	case rec.FilteredBy != "":
		return rec.FilteredBy
	default:
		return ""
	}
}
