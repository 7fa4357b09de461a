// Package worker imports records from the upstream source (Google Sheets or
// Postgres) into the local SQLite store the dashboard reads from.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taichinh/internal/amqp"
	"taichinh/internal/core"
	applog "taichinh/internal/log"
	"taichinh/internal/source"
)

const DefaultBatchSize = 50

// Store is the local side of an import.
type Store interface {
	source.TransactionWriter
	ReplaceUnits(ctx context.Context, names []string) error
	PruneTransactions(ctx context.Context, keep []string) (int, error)
}

// ImportStats summarises one import run.
type ImportStats struct {
	Read     int
	Imported int
	Skipped  int
	Removed  int
	Units    int
}

// ImportWorker copies every upstream record into the store. Runs are
// serialized; a request arriving during a run waits for it.
type ImportWorker struct {
	upstream  source.Reader
	store     Store
	batchSize int
	logger    *applog.Logger

	mu      sync.Mutex
	lastRun time.Time
}

func NewImportWorker(upstream source.Reader, store Store, batchSize int, logger *applog.Logger) *ImportWorker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &ImportWorker{
		upstream:  upstream,
		store:     store,
		batchSize: batchSize,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleSyncRequest processes one sync request from AMQP.
func (w *ImportWorker) HandleSyncRequest(ctx context.Context, msg *amqp.SyncRequestMessage) error {
	w.logger.InfoContext(ctx, "Processing sync request",
		"id", msg.ID,
		applog.FieldReason, msg.Reason,
		applog.FieldUser, msg.RequestedBy)

	_, err := w.Import(ctx, msg.Reason)
	return err
}

// Import makes the store mirror upstream: invalid records are skipped, the
// rest are upserted in batches, then every stored record upstream no longer
// has as a valid record is removed.
func (w *ImportWorker) Import(ctx context.Context, reason string) (ImportStats, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	var stats ImportStats

	units, err := w.upstream.ListUnits(ctx)
	if err != nil {
		return stats, fmt.Errorf("read upstream units: %w", err)
	}
	txs, err := w.upstream.ListTransactions(ctx)
	if err != nil {
		return stats, fmt.Errorf("read upstream transactions: %w", err)
	}
	stats.Read = len(txs)

	// An upstream without a unit list keeps the units already registered.
	if len(units) > 0 {
		if err := w.store.ReplaceUnits(ctx, units); err != nil {
			return stats, fmt.Errorf("replace units: %w", err)
		}
		stats.Units = len(units)
	}

	keep := make([]string, 0, len(txs))
	batch := make([]core.Transaction, 0, w.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := w.store.UpsertTransactions(ctx, batch)
		if err != nil {
			return fmt.Errorf("upsert batch: %w", err)
		}
		stats.Imported += n
		batch = batch[:0]
		return nil
	}

	for _, t := range txs {
		if err := t.Validate(); err != nil {
			stats.Skipped++
			w.logger.WarnContext(ctx, "Skipping invalid upstream record",
				applog.FieldCode, t.Code,
				applog.FieldReason, err.Error())
			continue
		}
		keep = append(keep, t.Code)
		batch = append(batch, t)
		if len(batch) == w.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	removed, err := w.store.PruneTransactions(ctx, keep)
	if err != nil {
		return stats, fmt.Errorf("prune removed records: %w", err)
	}
	stats.Removed = removed

	w.lastRun = time.Now()
	w.logger.InfoContext(ctx, "Import completed",
		applog.FieldReason, reason,
		applog.FieldRecordCount, stats.Imported,
		applog.FieldSkippedCount, stats.Skipped,
		"removed", stats.Removed,
		"units", stats.Units,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return stats, nil
}

// LastRun returns when the last successful import finished.
func (w *ImportWorker) LastRun() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun
}

// RunPeriodic imports every interval until ctx is done. Failed runs are
// logged and retried on the next tick.
func (w *ImportWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Import(ctx, amqp.ReasonSchedule); err != nil {
				if errors.Is(err, context.Canceled) {
					return ctx.Err()
				}
				w.logger.ErrorContext(ctx, "Scheduled import failed", applog.FieldError, err)
			}
		}
	}
}
