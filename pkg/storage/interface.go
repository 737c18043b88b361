// Package storage persists crawl output: per-task page results, a cross-task
// page cache, and terminal task summaries.
package storage

import (
	"context"
	"time"

	"site-crawler/pkg/models"
)

// PageResultStore handles per-task page results.
type PageResultStore interface {
	// PutPage stores one page result under its task. Successful pages also
	// refresh the cross-task cache entry for their normalized URL.
	PutPage(taskID string, page *models.PageResult) error

	// GetPage retrieves one page result by task and normalized URL.
	GetPage(taskID, normalizedURL string) (page *models.PageResult, found bool, err error)

	// ListPages returns every stored page for a task, ordered by key.
	ListPages(taskID string) ([]models.PageResult, error)

	// GetCached returns the most recent page result stored for a normalized
	// URL by any task. Used when cache_mode is enabled.
	GetCached(normalizedURL string) (page *models.PageResult, found bool, err error)
}

// SummaryStore handles terminal task summaries.
type SummaryStore interface {
	PutSummary(summary *models.TaskSummary) error
	ListSummaries() ([]models.TaskSummary, error)
}

// StoreAdmin handles lifecycle operations.
type StoreAdmin interface {
	// DeleteTask removes every page result stored for a task.
	DeleteTask(taskID string) error

	// RunGC runs periodic value-log garbage collection until ctx is done.
	// Run in a goroutine.
	RunGC(ctx context.Context, interval time.Duration)

	Close() error
}

// ResultStore combines the store interfaces for components needing full
// access.
type ResultStore interface {
	PageResultStore
	SummaryStore
	StoreAdmin
}
