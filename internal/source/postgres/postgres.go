// Package postgres reads records from the hosted finance tables.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taichinh/internal/core"
	applog "taichinh/internal/log"
	"taichinh/internal/source"
)

var (
	_ source.TransactionReader = (*Repo)(nil)
	_ source.UnitReader        = (*Repo)(nil)
)

const (
	listTransactionsSQL = `SELECT code, date_text, COALESCE(category, ''), amount::text,
		COALESCE(description, ''), COALESCE(business_unit, ''), kind
	 FROM transactions
	 ORDER BY id`

	listUnitsSQL = `SELECT name FROM business_units ORDER BY position, name`
)

type Repo struct {
	Pool   *pgxpool.Pool
	logger *applog.Logger
}

// Open connects a pool and verifies it with a ping.
func Open(ctx context.Context, dsn string, logger *applog.Logger) (*Repo, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Repo{Pool: pool, logger: logger.WithComponent(applog.ComponentPostgres)}, nil
}

func (r *Repo) Close() {
	if r.Pool != nil {
		r.Pool.Close()
	}
}

// ListTransactions returns every readable row of the transactions table.
// Rows with a bad amount or kind are logged and left out.
func (r *Repo) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.Pool.Query(ctx, listTransactionsSQL)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var recs []record
	for rows.Next() {
		var row record
		if err := rows.Scan(&row.Code, &row.Date, &row.Category, &row.Amount, &row.Description, &row.Unit, &row.Kind); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		recs = append(recs, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}

	out, rejected := parseRecords(recs)
	for _, rej := range rejected {
		r.logger.WarnContext(ctx, "Postgres row rejected",
			applog.FieldCode, rej.Code, applog.FieldReason, rej.Reason)
	}
	return out, nil
}

// ListUnits returns the registered business units.
func (r *Repo) ListUnits(ctx context.Context) ([]string, error) {
	rows, err := r.Pool.Query(ctx, listUnitsSQL)
	if err != nil {
		return nil, fmt.Errorf("query business units: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan business units: %w", err)
	}
	return names, nil
}

type record struct {
	Code        string
	Date        string
	Category    string
	Amount      string
	Description string
	Unit        string
	Kind        string
}

type rejectedRecord struct {
	Code   string
	Reason string
}

// parseRecords converts scanned rows, keeping the good ones and reporting
// the rest.
func parseRecords(recs []record) ([]core.Transaction, []rejectedRecord) {
	var (
		out      []core.Transaction
		rejected []rejectedRecord
	)
	for _, rec := range recs {
		t, err := rec.transaction()
		if err != nil {
			rejected = append(rejected, rejectedRecord{Code: strings.TrimSpace(rec.Code), Reason: err.Error()})
			continue
		}
		out = append(out, t)
	}
	return out, rejected
}

func (r record) transaction() (core.Transaction, error) {
	amount, err := core.ParseAmount(r.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("record %s: %w", r.Code, err)
	}
	kind, err := core.ParseKind(r.Kind)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("record %s: %w", r.Code, err)
	}
	return core.Transaction{
		Code:         strings.TrimSpace(r.Code),
		Date:         strings.TrimSpace(r.Date),
		Category:     r.Category,
		Amount:       amount,
		Description:  r.Description,
		BusinessUnit: strings.TrimSpace(r.Unit),
		Kind:         kind,
	}, nil
}
