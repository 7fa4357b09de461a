package adapters

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"taichinh/internal/amqp"
	"taichinh/internal/storage"
)

type fakePublisher struct {
	err     error
	reasons []string
	users   []string
	closed  bool
}

func (f *fakePublisher) PublishSyncRequest(_ context.Context, reason, requestedBy string) error {
	if f.err != nil {
		return f.err
	}
	f.reasons = append(f.reasons, reason)
	f.users = append(f.users, requestedBy)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	return repo
}

func TestRequestSync(t *testing.T) {
	tests := []struct {
		name      string
		publisher *fakePublisher
		wantErr   error
	}{
		{"publishes manual request", &fakePublisher{}, nil},
		{"circuit open is unavailable", &fakePublisher{err: fmt.Errorf("publish: %w", amqp.ErrCircuitOpen)}, ErrSyncUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewSQLiteAdapter(newRepo(t), tt.publisher)
			defer a.Close()

			err := a.RequestSync(context.Background(), "ketoan@taichinh.vn")
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("RequestSync() error = %v", err)
				}
				if len(tt.publisher.reasons) != 1 || tt.publisher.reasons[0] != amqp.ReasonManual {
					t.Errorf("published reasons = %v", tt.publisher.reasons)
				}
				if tt.publisher.users[0] != "ketoan@taichinh.vn" {
					t.Errorf("requestedBy = %q", tt.publisher.users[0])
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RequestSync() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequestSyncWithoutPublisher(t *testing.T) {
	a := NewSQLiteAdapter(newRepo(t), nil)
	defer a.Close()

	if err := a.RequestSync(context.Background(), ""); !errors.Is(err, ErrSyncUnavailable) {
		t.Errorf("RequestSync() error = %v, want ErrSyncUnavailable", err)
	}
}

func TestCloseClosesPublisher(t *testing.T) {
	pub := &fakePublisher{}
	a := NewSQLiteAdapter(newRepo(t), pub)
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !pub.closed {
		t.Error("publisher was not closed")
	}
}
