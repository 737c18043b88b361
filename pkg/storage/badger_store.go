package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"site-crawler/pkg/log"
	"site-crawler/pkg/models"
	"site-crawler/pkg/utils"
)

const (
	resultKeyPrefix  = "result:"  // result:<taskID>:<normalizedURL>
	cacheKeyPrefix   = "cache:"   // cache:<normalizedURL>
	summaryKeyPrefix = "summary:" // summary:<taskID>
	resultsDBDir     = "results_db"
)

// BadgerStore implements ResultStore on BadgerDB.
type BadgerStore struct {
	db  *badger.DB
	log *logrus.Entry
}

// NewBadgerStore opens (or creates) the results database under stateDir.
func NewBadgerStore(stateDir string, logger *logrus.Entry) (*BadgerStore, error) {
	dbPath := filepath.Join(stateDir, resultsDBDir)
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	logger.Infof("Initializing results database at: %s", dbPath)
	opts := badger.DefaultOptions(dbPath).
		WithLogger(log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}
	return &BadgerStore{db: db, log: logger}, nil
}

const maxConflictRetries = 10

// dbUpdate retries BadgerDB transaction conflicts; concurrent MVCC
// transactions on overlapping keys resolve in microseconds.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := 0; i < maxConflictRetries; i++ {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

func resultKey(taskID, normalizedURL string) []byte {
	return []byte(resultKeyPrefix + taskID + ":" + normalizedURL)
}

// PutPage implements PageResultStore.
func (s *BadgerStore) PutPage(taskID string, page *models.PageResult) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("%w: marshalling page result for '%s': %w", utils.ErrParsing, page.NormalizedURL, err)
	}

	err = s.dbUpdate(func(txn *badger.Txn) error {
		if err := txn.SetEntry(badger.NewEntry(resultKey(taskID, page.NormalizedURL), data)); err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry([]byte(cacheKeyPrefix+page.NormalizedURL), data))
	})
	if err != nil {
		return fmt.Errorf("%w: storing page result for '%s': %w", utils.ErrDatabase, page.NormalizedURL, err)
	}
	return nil
}

// GetPage implements PageResultStore.
func (s *BadgerStore) GetPage(taskID, normalizedURL string) (*models.PageResult, bool, error) {
	return s.getResult(resultKey(taskID, normalizedURL))
}

// GetCached implements PageResultStore.
func (s *BadgerStore) GetCached(normalizedURL string) (*models.PageResult, bool, error) {
	return s.getResult([]byte(cacheKeyPrefix + normalizedURL))
}

func (s *BadgerStore) getResult(key []byte) (*models.PageResult, bool, error) {
	var page *models.PageResult
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decoded models.PageResult
			if err := json.Unmarshal(val, &decoded); err != nil {
				s.log.Warnf("Failed to unmarshal page result for key '%s': %v", string(key), err)
				return nil // Treat a corrupt entry as absent
			}
			page = &decoded
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	return page, page != nil, nil
}

// ListPages implements PageResultStore.
func (s *BadgerStore) ListPages(taskID string) ([]models.PageResult, error) {
	var pages []models.PageResult
	prefix := []byte(resultKeyPrefix + taskID + ":")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var decoded models.PageResult
				if err := json.Unmarshal(val, &decoded); err != nil {
					s.log.Warnf("Skipping undecodable page result under task %s: %v", taskID, err)
					return nil
				}
				pages = append(pages, decoded)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing pages for task '%s': %w", utils.ErrDatabase, taskID, err)
	}
	return pages, nil
}

// PutSummary implements SummaryStore.
func (s *BadgerStore) PutSummary(summary *models.TaskSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("%w: marshalling summary for task '%s': %w", utils.ErrParsing, summary.TaskID, err)
	}
	err = s.dbUpdate(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(summaryKeyPrefix+summary.TaskID), data))
	})
	if err != nil {
		return fmt.Errorf("%w: storing summary for task '%s': %w", utils.ErrDatabase, summary.TaskID, err)
	}
	return nil
}

// ListSummaries implements SummaryStore.
func (s *BadgerStore) ListSummaries() ([]models.TaskSummary, error) {
	var summaries []models.TaskSummary
	prefix := []byte(summaryKeyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var decoded models.TaskSummary
				if err := json.Unmarshal(val, &decoded); err != nil {
					s.log.Warnf("Skipping undecodable task summary: %v", err)
					return nil
				}
				summaries = append(summaries, decoded)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing task summaries: %w", utils.ErrDatabase, err)
	}
	return summaries, nil
}

// DeleteTask implements StoreAdmin. Cache entries are left in place; they are
// keyed by URL, not task.
func (s *BadgerStore) DeleteTask(taskID string) error {
	prefix := []byte(resultKeyPrefix + taskID + ":")

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: scanning task '%s' for deletion: %w", utils.ErrDatabase, taskID, err)
	}
	keys = append(keys, []byte(summaryKeyPrefix+taskID))

	err = s.dbUpdate(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: deleting task '%s': %w", utils.ErrDatabase, taskID, err)
	}
	return nil
}

// RunGC implements StoreAdmin.
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("BadgerDB GC goroutine started.")
	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				continue
			}
			var err error
			for {
				// Rewrite value logs that are at least half reclaimable.
				if err = s.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
			if errors.Is(err, badger.ErrNoRewrite) {
				s.log.Debug("BadgerDB GC finished (no rewrite needed).")
			} else {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}
		case <-ctx.Done():
			s.log.Infof("Stopping BadgerDB GC goroutine: %v", ctx.Err())
			return
		}
	}
}

// Close implements StoreAdmin.
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		s.log.Info("Closing results DB...")
		return s.db.Close()
	}
	return nil
}
