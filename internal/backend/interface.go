package backend

import (
	"context"

	"taichinh/internal/session"
	"taichinh/internal/source"
)

// Backend is the read side every report is built from.
type Backend interface {
	source.Reader
}

// SyncRequester is implemented by backends that can ask the import worker
// to refresh the local store.
type SyncRequester interface {
	RequestSync(ctx context.Context, requestedBy string) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	// Sessions is the session store that lives next to the backend, when it
	// has one. Nil means sessions are kept in memory.
	Sessions session.Store
	Cleanup  CleanupFunc
}

// Close runs Cleanup if set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Postgres specific
	DatabaseURL string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetNames         []string
	GoogleUnitsSheetName     string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenJSON     string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	SheetsBackend   BackendType = "sheets"
	MemoryBackend   BackendType = "memory"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
