package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const DefaultProbeInterval = 2 * time.Second

// StatusReporter receives the outcome of each store probe.
type StatusReporter interface {
	SetServing(serving bool)
}

// StoreProbeWorker reports the store as serving while the badger database is open.
type StoreProbeWorker struct {
	db       *badger.DB
	reporter StatusReporter
	log      *slog.Logger
	interval time.Duration
}

func NewStoreProbeWorker(db *badger.DB, reporter StatusReporter, log *slog.Logger, interval time.Duration) *StoreProbeWorker {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &StoreProbeWorker{db: db, reporter: reporter, log: log, interval: interval}
}

func (w *StoreProbeWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	serving := w.probe()
	w.reporter.SetServing(serving)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := w.probe()
			if now != serving {
				w.log.Warn("Store health changed", "serving", now)
			}
			serving = now
			w.reporter.SetServing(serving)
		}
	}
}

func (w *StoreProbeWorker) probe() bool {
	if w.db.IsClosed() {
		return false
	}
	return w.db.View(func(txn *badger.Txn) error { return nil }) == nil
}
