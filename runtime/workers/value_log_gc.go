package workers

import (
	"chat-gateway/errors"
	"chat-gateway/metrics"
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	DefaultGCInterval = 10 * time.Minute
	gcDiscardRatio    = 0.5
)

// ValueLogGCWorker periodically reclaims space in badger's value log.
// Messages are never deleted, so there is usually little to rewrite;
// superseded group heads are what accumulates.
type ValueLogGCWorker struct {
	db       *badger.DB
	log      *slog.Logger
	interval time.Duration
}

func NewValueLogGCWorker(db *badger.DB, log *slog.Logger, interval time.Duration) *ValueLogGCWorker {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	return &ValueLogGCWorker{db: db, log: log, interval: interval}
}

func (w *ValueLogGCWorker) Run(ctx context.Context) error {
	if w.db.Opts().InMemory {
		w.log.Info("Value log GC disabled for in-memory store")
		return nil
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.collect(ctx); err != nil {
				return err
			}
		}
	}
}

// collect rewrites value log files until badger reports nothing left to do.
func (w *ValueLogGCWorker) collect(ctx context.Context) error {
	rewritten := 0
	for ctx.Err() == nil {
		err := w.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return err
		}
		rewritten++
	}
	if rewritten > 0 {
		metrics.StoreValueLogGCRuns.WithLabelValues("rewritten").Add(float64(rewritten))
		w.log.Debug("Value log compacted", "files", rewritten)
	} else {
		metrics.StoreValueLogGCRuns.WithLabelValues("noop").Inc()
	}
	return nil
}
