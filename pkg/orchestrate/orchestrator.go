// Package orchestrate runs crawl tasks end to end: it validates and registers
// submissions, drives the per-page pipeline through the dispatcher, emits
// task events, and persists results and reports when a task reaches a
// terminal state.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"site-crawler/pkg/config"
	"site-crawler/pkg/content"
	"site-crawler/pkg/dispatch"
	"site-crawler/pkg/extract"
	"site-crawler/pkg/fetch"
	"site-crawler/pkg/filter"
	"site-crawler/pkg/frontier"
	"site-crawler/pkg/models"
	"site-crawler/pkg/nav"
	"site-crawler/pkg/report"
	"site-crawler/pkg/storage"
	"site-crawler/pkg/tasks"
	"site-crawler/pkg/utils"
)

// Orchestrator owns the process-wide crawl machinery shared by all tasks.
type Orchestrator struct {
	appCfg   *config.AppConfig
	registry *tasks.Registry
	store    storage.ResultStore
	fetcher  fetch.PageFetcher
	reporter *report.Writer
	log      *logrus.Logger
}

func New(appCfg *config.AppConfig, registry *tasks.Registry, store storage.ResultStore, fetcher fetch.PageFetcher, reporter *report.Writer, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		appCfg:   appCfg,
		registry: registry,
		store:    store,
		fetcher:  fetcher,
		reporter: reporter,
		log:      log,
	}
}

// Submit validates a task config and registers the task. A validation error
// still produces a task so callers can observe the failure through the
// normal status and event surface: the task lands in failed with zero
// fetches and a done event carrying the error.
func (o *Orchestrator) Submit(cfg config.TaskConfig) (*tasks.Task, error) {
	warnings, err := cfg.Validate()

	task := o.registry.Create(&cfg)
	taskLog := o.taskLog(task)

	for _, warning := range warnings {
		taskLog.Warn(warning)
		task.Events.Append(models.TaskEvent{Kind: models.EventLog, Level: "warning", Message: warning})
	}

	if err != nil {
		taskLog.Errorf("Task configuration rejected: %v", err)
		o.finishTask(task, models.TaskStatusFailed, err.Error(), nil, models.Stats{})
		return task, err
	}

	taskLog.WithField("seed", cfg.SeedURL).Info("Task submitted")
	return task, nil
}

// RunAsync starts a submitted task in the background.
func (o *Orchestrator) RunAsync(task *tasks.Task) {
	go o.Run(task)
}

// Run executes one task to its terminal state. Calling Run on a task that is
// not pending (already running, finished, or cancelled before start) is a
// no-op.
func (o *Orchestrator) Run(task *tasks.Task) {
	if !o.registry.MarkRunning(task.ID) {
		return
	}
	taskLog := o.taskLog(task)
	ctx := o.registry.Context(task.ID)

	run, err := o.newTaskRun(task, taskLog)
	if err != nil {
		// Pre-flight failure: nothing was fetched, no stats moved.
		taskLog.Errorf("Task start-up failed: %v", err)
		o.finishTask(task, models.TaskStatusFailed, err.Error(), nil, models.Stats{})
		return
	}

	task.Events.Append(models.TaskEvent{
		Kind:       models.EventProgress,
		StatusText: "crawl started",
		Stats:      statsPtr(run.frontier.Snapshot()),
	})

	runErr := dispatch.Run(ctx, run.frontier, int64(task.Config.BatchSize), run.handlePage, taskLog)

	stats := run.finalStats()
	status := models.TaskStatusCompleted
	reason := ""
	switch {
	case errors.Is(runErr, context.Canceled):
		status = models.TaskStatusCancelled
		reason = "cancelled"
	case stats.Fetched == 0 && stats.Failed > 0:
		// Not a single page made it; the seed itself was unreachable.
		status = models.TaskStatusFailed
		reason = "no pages fetched"
	}

	o.writeArtifacts(task, run, stats, status, reason, taskLog)
	o.finishTask(task, status, reason, statsPtr(stats), stats)
	taskLog.WithFields(logrus.Fields{
		"status":  status,
		"fetched": stats.Fetched,
		"failed":  stats.Failed,
	}).Info("Task finished")
}

// taskRun is the per-task machinery assembled at start.
type taskRun struct {
	o         *Orchestrator
	task      *tasks.Task
	log       *logrus.Entry
	frontier  *frontier.Frontier
	pipeline  *content.Pipeline
	synth     *nav.Synthesizer
	extractor extract.Extractor

	removedMu sync.Mutex
	removed   map[string]int
}

// newTaskRun builds the frontier, filter chain, content pipeline and
// extractor for one task. Any error here is a configuration error: the task
// must fail before a single fetch.
func (o *Orchestrator) newTaskRun(task *tasks.Task, taskLog *logrus.Entry) (*taskRun, error) {
	seed, err := url.ParseRequestURI(task.Config.SeedURL)
	if err != nil {
		return nil, fmt.Errorf("parsing seed URL: %w", err)
	}
	chain, err := filter.NewChain(task.Config.Filters, seed)
	if err != nil {
		return nil, err
	}
	f, err := frontier.New(task.Config, chain, taskLog)
	if err != nil {
		return nil, err
	}
	extractor, err := extract.New(task.Config.Extraction, taskLog)
	if err != nil {
		return nil, err
	}

	return &taskRun{
		o:         o,
		task:      task,
		log:       taskLog,
		frontier:  f,
		pipeline:  content.NewPipeline(task.Config.ContentFilter),
		synth:     nav.NewSynthesizer(task.Config.SeedURL),
		extractor: extractor,
		removed:   make(map[string]int),
	}, nil
}

// handlePage is the per-page pipeline: fetch (or cache hit), harvest
// navigation, feed links back to the frontier, filter content, convert to
// markdown, extract fields, persist, emit events. A failure in any stage
// fails only this page.
func (r *taskRun) handlePage(ctx context.Context, rec *models.URLRecord) {
	pageLog := r.log.WithFields(logrus.Fields{"url": rec.URL, "depth": rec.Depth})

	if r.task.Config.CacheMode == config.CacheModeEnabled {
		if cached, found, err := r.o.store.GetCached(rec.NormalizedURL); err == nil && found {
			pageLog.Debug("Serving page from cache")
			// The cached entry may come from another task at another depth.
			cached.URL = rec.URL
			cached.Depth = rec.Depth
			r.completePage(rec, cached, pageLog)
			return
		}
	}

	result, err := r.o.fetcher.FetchPage(ctx, rec.URL, r.task.Config)
	if err != nil {
		pageLog.WithField("error_category", utils.CategorizeError(err)).
			Warnf("Fetch failed: %v", err)
		r.frontier.MarkFailed(rec, err)
		r.task.Events.Append(models.TaskEvent{
			Kind:       models.EventPage,
			PageURL:    rec.URL,
			PageStatus: models.URLStatusFailed,
			Message:    err.Error(),
		})
		r.emitProgress()
		return
	}

	page := r.buildPageResult(ctx, rec, result, pageLog)
	r.completePage(rec, page, pageLog)
}

// buildPageResult runs the post-fetch stages over a fresh fetch.
func (r *taskRun) buildPageResult(ctx context.Context, rec *models.URLRecord, result *fetch.Result, pageLog *logrus.Entry) *models.PageResult {
	anchors := nav.Harvest(result.Doc, result.FinalURL)

	page := &models.PageResult{
		URL:           rec.URL,
		NormalizedURL: rec.NormalizedURL,
		Title:         result.Title,
		Description:   result.Description,
		RawHTML:       result.HTML,
		Links:         result.Links,
		Anchors:       anchors,
		StatusCode:    result.StatusCode,
		Depth:         rec.Depth,
		FetchedAt:     time.Now(),
	}

	filtered, filterStats, err := r.pipeline.FilterHTML(result.HTML)
	if err != nil {
		// Keep the page; markdown falls back to the raw document.
		pageLog.Warnf("Content filtering failed: %v", err)
		filtered = result.HTML
	}
	page.FilteredHTML = filtered
	page.RemovedNodes = filterStats.RemovedNodes

	markdown, err := content.ToMarkdown(filtered)
	if err != nil {
		pageLog.Warnf("Markdown conversion failed: %v", err)
	} else {
		markdown, _ = r.pipeline.FilterText(markdown)
		page.Markdown = markdown
	}

	if r.o.appCfg.EnableTokenCounting {
		page.TokenCount = content.CountTokens(page.Markdown)
	}

	if r.extractor != nil {
		fields, err := r.extractor.Extract(ctx, extract.Page{
			URL:      rec.URL,
			Doc:      result.Doc,
			Markdown: page.Markdown,
		})
		if err != nil {
			// Extraction failure degrades to empty fields, never fails the page.
			pageLog.Warnf("Extraction failed: %v", err)
			fields = map[string]string{}
		}
		page.Extracted = fields
	}
	return page
}

// completePage is shared by fresh fetches and cache hits.
func (r *taskRun) completePage(rec *models.URLRecord, page *models.PageResult, pageLog *logrus.Entry) {
	r.synth.Ingest(page.Anchors)
	queued := r.frontier.Offer(rec, page.Links)

	r.removedMu.Lock()
	for category, n := range page.RemovedNodes {
		r.removed[category] += n
	}
	r.removedMu.Unlock()

	if err := r.o.store.PutPage(r.task.ID, page); err != nil {
		pageLog.Errorf("Storing page result failed: %v", err)
	}
	r.frontier.MarkFetched(rec)

	pageLog.WithFields(logrus.Fields{"status_code": page.StatusCode, "links_queued": queued}).
		Debug("Page processed")
	r.task.Events.Append(models.TaskEvent{
		Kind:       models.EventPage,
		PageURL:    rec.URL,
		PageStatus: models.URLStatusFetched,
	})
	r.emitProgress()
}

// emitProgress appends a progress event and refreshes the registry snapshot.
func (r *taskRun) emitProgress() {
	stats := r.frontier.Snapshot()
	done := stats.Fetched + stats.Failed
	total := done + stats.Queued + stats.InFlight

	var progress float64
	if total > 0 {
		progress = float64(done) / float64(total) * 100
	}

	r.o.registry.UpdateStats(r.task.ID, stats)
	r.task.Events.Append(models.TaskEvent{
		Kind:     models.EventProgress,
		Progress: progress,
		Stats:    statsPtr(stats),
	})
}

// finalStats stamps the end time and folds the aggregated content-filter
// removals into the frontier counters.
func (r *taskRun) finalStats() models.Stats {
	stats := r.frontier.Snapshot()
	stats.EndTime = time.Now()

	r.removedMu.Lock()
	if len(r.removed) > 0 {
		stats.Removed = make(map[string]int, len(r.removed))
		for category, n := range r.removed {
			stats.Removed[category] = n
		}
	}
	r.removedMu.Unlock()
	return stats
}

// writeArtifacts persists the summary and renders the report files. Artifact
// failures are logged; the task outcome is already decided.
func (o *Orchestrator) writeArtifacts(task *tasks.Task, run *taskRun, stats models.Stats, status models.TaskStatus, reason string, taskLog *logrus.Entry) {
	summary := buildSummary(task, stats, status, reason)

	if err := o.store.PutSummary(&summary); err != nil {
		taskLog.Errorf("Storing task summary failed: %v", err)
	}

	pages, err := o.store.ListPages(task.ID)
	if err != nil {
		taskLog.Errorf("Loading pages for report failed: %v", err)
	}
	if o.reporter != nil {
		err = o.reporter.Write(report.Input{
			TaskID:  task.ID,
			Config:  task.Config,
			Summary: summary,
			Pages:   pages,
			Records: run.frontier.Records(),
			Nav:     run.synth.Report(),
		})
		if err != nil {
			taskLog.Errorf("Writing report failed: %v", err)
		}
	}
}

// finishTask is the single exit point into a terminal status: stats
// snapshot, done event, registry transition, event log close.
func (o *Orchestrator) finishTask(task *tasks.Task, status models.TaskStatus, reason string, stats *models.Stats, snapshot models.Stats) {
	o.registry.UpdateStats(task.ID, snapshot)
	task.Events.Append(models.TaskEvent{
		Kind:        models.EventDone,
		FinalStatus: status,
		StatusText:  reason,
		Stats:       stats,
	})
	o.registry.MarkTerminal(task.ID, status, reason)
	task.Events.Close()
}

func buildSummary(task *tasks.Task, stats models.Stats, status models.TaskStatus, reason string) models.TaskSummary {
	return models.TaskSummary{
		TaskID:      task.ID,
		SeedURL:     task.Config.SeedURL,
		Status:      status,
		Reason:      reason,
		Discovered:  stats.Discovered,
		Fetched:     stats.Fetched,
		Failed:      stats.Failed,
		FilteredOut: stats.FilteredOut,
		SuccessRate: stats.SuccessRate(),
		Duration:    stats.Duration(),
		FinishedAt:  stats.EndTime,
	}
}

func (o *Orchestrator) taskLog(task *tasks.Task) *logrus.Entry {
	return o.log.WithField("task_id", task.ID)
}

func statsPtr(s models.Stats) *models.Stats {
	copied := s
	return &copied
}
