package adapters

import (
	"context"
	"errors"
	"fmt"

	"taichinh/internal/amqp"
	"taichinh/internal/core"
	"taichinh/internal/storage"
)

// ErrSyncUnavailable is returned by RequestSync when no broker is configured.
var ErrSyncUnavailable = errors.New("sync is not available")

// SyncPublisher publishes import requests to the worker.
type SyncPublisher interface {
	PublishSyncRequest(ctx context.Context, reason, requestedBy string) error
	Close() error
}

// SQLiteAdapter serves reports from the local SQLite copy and forwards sync
// requests to the import worker over AMQP.
type SQLiteAdapter struct {
	storage   *storage.SQLiteRepository
	publisher SyncPublisher
}

// NewSQLiteAdapter wraps repo. publisher may be nil.
func NewSQLiteAdapter(repo *storage.SQLiteRepository, publisher SyncPublisher) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage:   repo,
		publisher: publisher,
	}
}

// ListTransactions implements source.TransactionReader
func (a *SQLiteAdapter) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return a.storage.ListTransactions(ctx)
}

// ListUnits implements source.UnitReader
func (a *SQLiteAdapter) ListUnits(ctx context.Context) ([]string, error) {
	return a.storage.ListUnits(ctx)
}

// Ping checks the database.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}

// RequestSync asks the worker to import the upstream records.
func (a *SQLiteAdapter) RequestSync(ctx context.Context, requestedBy string) error {
	if a.publisher == nil {
		return ErrSyncUnavailable
	}
	if err := a.publisher.PublishSyncRequest(ctx, amqp.ReasonManual, requestedBy); err != nil {
		if errors.Is(err, amqp.ErrCircuitOpen) {
			return fmt.Errorf("%w: %v", ErrSyncUnavailable, err)
		}
		return fmt.Errorf("request sync: %w", err)
	}
	return nil
}

func (a *SQLiteAdapter) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	errs = append(errs, a.storage.Close())
	return errors.Join(errs...)
}
