package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"taichinh/internal/amqp"
	"taichinh/internal/core"
	"taichinh/internal/source/memory"
	"taichinh/internal/storage"
)

type recordingStore struct {
	batches [][]core.Transaction
	units   []string
	kept    []string
	err     error
}

func (s *recordingStore) UpsertTransactions(_ context.Context, txs []core.Transaction) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.batches = append(s.batches, append([]core.Transaction(nil), txs...))
	return len(txs), nil
}

func (s *recordingStore) ReplaceUnits(_ context.Context, names []string) error {
	s.units = names
	return nil
}

func (s *recordingStore) PruneTransactions(_ context.Context, keep []string) (int, error) {
	s.kept = append([]string(nil), keep...)
	return 0, nil
}

func record(code, date string, kind core.Kind) core.Transaction {
	return core.Transaction{
		Code:         code,
		Date:         date,
		Category:     "Dịch vụ",
		Amount:       decimal.NewFromInt(100),
		BusinessUnit: "BlueBolt Software",
		Kind:         kind,
	}
}

func TestImportBatchesAndSkipsInvalid(t *testing.T) {
	var txs []core.Transaction
	for i := 1; i <= 5; i++ {
		txs = append(txs, record(fmt.Sprintf("T%d", i), fmt.Sprintf("%d/1/2026", i), core.Income))
	}
	txs = append(txs,
		record("", "6/1/2026", core.Income),
		record("BAD", "31/2/2026", core.Expense),
	)
	upstream := memory.New([]string{"BlueBolt Software", "Green Leaf Farm"}, txs)
	store := &recordingStore{}

	stats, err := NewImportWorker(upstream, store, 2, nil).Import(context.Background(), amqp.ReasonManual)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if stats.Imported != 5 || stats.Skipped != 2 {
		t.Errorf("stats = %+v, want 5 imported, 2 skipped", stats)
	}
	sizes := make([]int, len(store.batches))
	for i, b := range store.batches {
		sizes[i] = len(b)
	}
	if fmt.Sprint(sizes) != "[2 2 1]" {
		t.Errorf("batch sizes = %v, want [2 2 1]", sizes)
	}
	if len(store.units) != 2 || store.units[1] != "Green Leaf Farm" {
		t.Errorf("units = %v", store.units)
	}
	if fmt.Sprint(store.kept) != "[T1 T2 T3 T4 T5]" {
		t.Errorf("kept codes = %v, want only the valid records", store.kept)
	}
}

func TestImportStoreError(t *testing.T) {
	upstream := memory.New(nil, []core.Transaction{record("T1", "1/1/2026", core.Income)})
	store := &recordingStore{err: errors.New("disk full")}

	w := NewImportWorker(upstream, store, 10, nil)
	if _, err := w.Import(context.Background(), amqp.ReasonManual); err == nil {
		t.Fatal("Import() should fail when the store fails")
	}
	if !w.LastRun().IsZero() {
		t.Error("a failed import should not update LastRun")
	}
}

func TestHandleSyncRequestIntoSQLite(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	defer repo.Close()

	upstream := memory.New(memory.DemoUnits(), memory.DemoTransactions())
	w := NewImportWorker(upstream, repo, 3, nil)

	// Running twice must not duplicate records.
	for i := 0; i < 2; i++ {
		if err := w.HandleSyncRequest(ctx, amqp.NewSyncRequestMessage(amqp.ReasonManual, "test")); err != nil {
			t.Fatalf("HandleSyncRequest() error = %v", err)
		}
	}

	n, err := repo.CountTransactions(ctx)
	if err != nil {
		t.Fatalf("CountTransactions() error = %v", err)
	}
	if int(n) != len(memory.DemoTransactions()) {
		t.Errorf("stored %d records, want %d", n, len(memory.DemoTransactions()))
	}
	units, err := repo.ListUnits(ctx)
	if err != nil {
		t.Fatalf("ListUnits() error = %v", err)
	}
	if len(units) == 0 || units[0] != memory.DemoUnits()[0] {
		t.Errorf("units = %v, want demo order", units)
	}
	if w.LastRun().IsZero() {
		t.Error("LastRun should be set after a successful import")
	}
}

func TestImportRemovesRecordsGoneUpstream(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	defer repo.Close()

	a := record("A", "1/1/2026", core.Income)
	b := record("B", "2/1/2026", core.Expense)
	if _, err := NewImportWorker(memory.New(nil, []core.Transaction{a, b}), repo, 10, nil).Import(ctx, amqp.ReasonManual); err != nil {
		t.Fatalf("first Import() error = %v", err)
	}

	tests := []struct {
		name     string
		upstream []core.Transaction
		want     []string
	}{
		{"deleted upstream", []core.Transaction{a}, []string{"A"}},
		{"edited into an invalid state", []core.Transaction{a, record("B", "31/2/2026", core.Expense)}, []string{"A"}},
		{"upstream emptied", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := repo.UpsertTransactions(ctx, []core.Transaction{a, b}); err != nil {
				t.Fatal(err)
			}
			stats, err := NewImportWorker(memory.New(nil, tt.upstream), repo, 10, nil).Import(ctx, amqp.ReasonManual)
			if err != nil {
				t.Fatalf("Import() error = %v", err)
			}
			got, err := repo.ListTransactions(ctx)
			if err != nil {
				t.Fatal(err)
			}
			var codes []string
			for _, tx := range got {
				codes = append(codes, tx.Code)
			}
			if fmt.Sprint(codes) != fmt.Sprint(tt.want) {
				t.Errorf("stored codes = %v, want %v", codes, tt.want)
			}
			if stats.Removed != 2-len(tt.want) {
				t.Errorf("Removed = %d, want %d", stats.Removed, 2-len(tt.want))
			}
		})
	}
}

func TestRunPeriodicStopsOnCancel(t *testing.T) {
	upstream := memory.New(nil, []core.Transaction{record("T1", "1/1/2026", core.Income)})
	store := &recordingStore{}
	w := NewImportWorker(upstream, store, 10, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := w.RunPeriodic(ctx, 20*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RunPeriodic() error = %v, want DeadlineExceeded", err)
	}
	if len(store.batches) == 0 {
		t.Error("RunPeriodic should have imported at least once")
	}
}
