// Package dispatch runs the fetch loop: it pulls records from the frontier
// and hands them to a page handler, admitting at most batch_size pages at a
// time through a weighted semaphore.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"site-crawler/pkg/frontier"
	"site-crawler/pkg/models"
)

// Handler processes one admitted record end to end. It is responsible for
// marking the record fetched or failed on the frontier; the dispatcher only
// steps in when the handler panics.
type Handler func(ctx context.Context, rec *models.URLRecord)

// Run drives the crawl until the frontier is exhausted or ctx is cancelled.
// A slot is acquired before asking the frontier for work, so at most
// batchSize records are ever in flight and a full gate blocks admission
// rather than queueing handlers.
func Run(ctx context.Context, f *frontier.Frontier, batchSize int64, handler Handler, log *logrus.Entry) error {
	if batchSize <= 0 {
		batchSize = 1
	}
	gate := semaphore.NewWeighted(batchSize)
	var wg sync.WaitGroup

	for {
		if err := gate.Acquire(ctx, 1); err != nil {
			break
		}

		rec, ok := f.Next(ctx)
		if !ok {
			gate.Release(1)
			break
		}

		wg.Add(1)
		go func(rec *models.URLRecord) {
			defer wg.Done()
			defer gate.Release(1)
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(logrus.Fields{"url": rec.URL, "panic": r}).
						Error("Page handler panicked")
					f.MarkFailed(rec, fmt.Errorf("handler panic: %v", r))
				}
			}()
			handler(ctx, rec)
		}(rec)
	}

	wg.Wait()
	return ctx.Err()
}
