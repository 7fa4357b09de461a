package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"taichinh/internal/adapters"
	"taichinh/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{
		DataBackend:         "sheets",
		GoogleSpreadsheetID: "sheet-id",
		GoogleSheetName:     "Thu, Chi",
		DataDir:             "/srv/data",
	})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SheetsBackend {
		t.Errorf("Type = %q, want sheets", cfg.Type)
	}
	if len(cfg.GoogleSheetNames) != 2 || cfg.GoogleSheetNames[1] != "Chi" {
		t.Errorf("GoogleSheetNames = %v, want [Thu Chi]", cfg.GoogleSheetNames)
	}
	if cfg.DataDirectory != "/srv/data" {
		t.Errorf("DataDirectory = %q", cfg.DataDirectory)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "mongo"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"sheets service account", Config{
			Type:                     SheetsBackend,
			GoogleSpreadsheetID:      "id",
			GoogleSheetNames:         []string{"Transactions"},
			GoogleServiceAccountJSON: "{}",
		}, false},
		{"sheets oauth without token", Config{
			Type:                  SheetsBackend,
			GoogleSpreadsheetID:   "id",
			GoogleSheetNames:      []string{"Transactions"},
			GoogleOAuthClientJSON: "{}",
		}, true},
		{"sheets without sheet names", Config{
			Type:                     SheetsBackend,
			GoogleSpreadsheetID:      "id",
			GoogleServiceAccountJSON: "{}",
		}, true},
		{"unknown", Config{Type: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Close()

	units, err := res.Backend.ListUnits(context.Background())
	if err != nil {
		t.Fatalf("ListUnits() error = %v", err)
	}
	if len(units) == 0 {
		t.Error("demo dataset should register units")
	}
	if res.Sessions != nil {
		t.Error("memory backend should not provide a session store")
	}
	if _, ok := res.Backend.(SyncRequester); ok {
		t.Error("memory backend should not support sync")
	}
}

func TestCreateSQLiteBackendWithoutAMQP(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "taichinh.db")

	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Close()

	if res.Sessions == nil {
		t.Error("sqlite backend should provide a session store")
	}
	txs, err := res.Backend.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("fresh database has %d records", len(txs))
	}

	syncer, ok := res.Backend.(SyncRequester)
	if !ok {
		t.Fatal("sqlite backend should implement SyncRequester")
	}
	if err := syncer.RequestSync(ctx, "admin@taichinh.vn"); !errors.Is(err, adapters.ErrSyncUnavailable) {
		t.Errorf("RequestSync() error = %v, want ErrSyncUnavailable", err)
	}
}
