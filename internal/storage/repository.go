package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"taichinh/internal/core"
	"taichinh/internal/session"
	"taichinh/internal/source"
)

var (
	_ source.TransactionReader = (*SQLiteRepository)(nil)
	_ source.UnitReader        = (*SQLiteRepository)(nil)
	_ source.TransactionWriter = (*SQLiteRepository)(nil)
	_ session.Store            = (*SessionStore)(nil)
)

const (
	listTransactionsSQL = `SELECT code, date, category, amount, description, business_unit, kind
		FROM transactions ORDER BY id`

	upsertTransactionSQL = `INSERT INTO transactions (code, date, category, amount, description, business_unit, kind, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(code) DO UPDATE SET
			date = excluded.date,
			category = excluded.category,
			amount = excluded.amount,
			description = excluded.description,
			business_unit = excluded.business_unit,
			kind = excluded.kind,
			updated_at = CURRENT_TIMESTAMP`

	insertUnitSQL = `INSERT INTO business_units (name, position)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM business_units))
		ON CONFLICT(name) DO NOTHING`
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Sessions returns the session store backed by this database.
func (r *SQLiteRepository) Sessions() *SessionStore {
	return &SessionStore{db: r.db, now: time.Now}
}

// ListTransactions implements source.TransactionReader.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, listTransactionsSQL)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t      core.Transaction
			amount string
			kind   string
		)
		if err := rows.Scan(&t.Code, &t.Date, &t.Category, &amount, &t.Description, &t.BusinessUnit, &kind); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.Code, core.ErrInvalidAmount)
		}
		t.Kind = core.Kind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListUnits implements source.UnitReader.
func (r *SQLiteRepository) ListUnits(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM business_units ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("query business units: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan business unit: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// UpsertTransactions implements source.TransactionWriter. The batch is
// written in one transaction; units seen for the first time are registered.
func (r *SQLiteRepository) UpsertTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	for _, t := range txs {
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("transaction %s: %w", t.Code, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, t := range txs {
		if _, err := tx.ExecContext(ctx, upsertTransactionSQL,
			strings.TrimSpace(t.Code), t.Date, t.Category, t.Amount.String(),
			t.Description, strings.TrimSpace(t.BusinessUnit), string(t.Kind)); err != nil {
			return 0, fmt.Errorf("upsert transaction %s: %w", t.Code, err)
		}
		if unit := strings.TrimSpace(t.BusinessUnit); unit != "" {
			if _, err := tx.ExecContext(ctx, insertUnitSQL, unit); err != nil {
				return 0, fmt.Errorf("register business unit %s: %w", unit, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(txs), nil
}

// PruneTransactions deletes every stored record whose code is not in keep
// and returns how many were removed.
func (r *SQLiteRepository) PruneTransactions(ctx context.Context, keep []string) (int, error) {
	wanted := make(map[string]struct{}, len(keep))
	for _, code := range keep {
		wanted[strings.TrimSpace(code)] = struct{}{}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT code FROM transactions`)
	if err != nil {
		return 0, fmt.Errorf("list transaction codes: %w", err)
	}
	var stale []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan transaction code: %w", err)
		}
		if _, ok := wanted[code]; !ok {
			stale = append(stale, code)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("list transaction codes: %w", err)
	}

	for _, code := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE code = ?`, code); err != nil {
			return 0, fmt.Errorf("delete transaction %s: %w", code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(stale), nil
}

// ReplaceUnits makes names the registered units, in that order.
func (r *SQLiteRepository) ReplaceUnits(ctx context.Context, names []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM business_units`); err != nil {
		return fmt.Errorf("clear business units: %w", err)
	}
	pos := 0
	for _, name := range names {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		pos++
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO business_units (name, position) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
			name, pos); err != nil {
			return fmt.Errorf("insert business unit %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// CountTransactions returns the number of stored records.
func (r *SQLiteRepository) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

var _ session.ExpiringStore = (*SessionStore)(nil)

// SessionStore implements session.Store on the sessions table.
type SessionStore struct {
	db  *sql.DB
	now func() time.Time
}

func (s *SessionStore) Save(ctx context.Context, sess session.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, email, name, role, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET expires_at = excluded.expires_at`,
		sess.ID, sess.Email, sess.Name, sess.Role, formatTime(sess.CreatedAt), formatTime(sess.ExpiresAt))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns a stored session. Expired sessions count as missing.
func (s *SessionStore) Load(ctx context.Context, id string) (session.Session, error) {
	var (
		sess               session.Session
		created, expiresAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, created_at, expires_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.Email, &sess.Name, &sess.Role, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, session.ErrSessionNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}
	if sess.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return session.Session{}, fmt.Errorf("session created_at: %w", err)
	}
	if sess.ExpiresAt, err = time.Parse(timeLayout, expiresAt); err != nil {
		return session.Session{}, fmt.Errorf("session expires_at: %w", err)
	}
	if !s.now().Before(sess.ExpiresAt) {
		return session.Session{}, session.ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions expired at now and returns how many went.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// timeLayout has fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
