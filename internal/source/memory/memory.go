// Package memory is an in-process record store seeded with demo data or a
// CSV file. It backs local development and tests.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"taichinh/internal/core"
	"taichinh/internal/source"
)

var (
	_ source.TransactionReader = (*Store)(nil)
	_ source.UnitReader        = (*Store)(nil)
	_ source.TransactionWriter = (*Store)(nil)
)

// SeedFile is looked up in the data directory by NewFromDir.
const SeedFile = "transactions.csv"

type Store struct {
	mu    sync.RWMutex
	units []string
	items []core.Transaction
	index map[string]int
}

func New(units []string, txs []core.Transaction) *Store {
	s := &Store{units: dedupe(units), index: map[string]int{}}
	s.put(txs)
	return s
}

// NewFromDir seeds the store from dir/transactions.csv, falling back to the
// built-in demo dataset when the file is missing or empty.
func NewFromDir(dir string) (*Store, error) {
	if dir != "" {
		f, err := os.Open(filepath.Join(dir, SeedFile))
		switch {
		case err == nil:
			defer f.Close()
			txs, units, err := ReadCSV(f)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", SeedFile, err)
			}
			if len(txs) > 0 {
				return New(units, txs), nil
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("open %s: %w", SeedFile, err)
		}
	}
	return New(DemoUnits(), DemoTransactions()), nil
}

// ListTransactions returns a copy of every stored record.
func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.items...), nil
}

// ListUnits returns the registered units.
func (s *Store) ListUnits(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.units...), nil
}

// UpsertTransactions validates and stores records, replacing any with the same code.
func (s *Store) UpsertTransactions(_ context.Context, txs []core.Transaction) (int, error) {
	for _, t := range txs {
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("record %s: %w", t.Code, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(txs)
	return len(txs), nil
}

func (s *Store) put(txs []core.Transaction) {
	for _, t := range txs {
		if i, ok := s.index[t.Code]; ok {
			s.items[i] = t
			continue
		}
		s.index[t.Code] = len(s.items)
		s.items = append(s.items, t)
	}
}

// ReadCSV parses a seed file with the header
// code,date,category,amount,description,business_unit,kind. Units are
// collected in first-seen order.
func ReadCSV(r io.Reader) ([]core.Transaction, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		txs   []core.Transaction
		units []string
	)
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "code") {
			continue
		}
		if len(rec) < 7 {
			return nil, nil, fmt.Errorf("line %d: expected 7 fields, got %d", line, len(rec))
		}
		amount, err := core.ParseAmount(rec[3])
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		kind, err := core.ParseKind(rec[6])
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		t := core.Transaction{
			Code:         strings.TrimSpace(rec[0]),
			Date:         strings.TrimSpace(rec[1]),
			Category:     strings.TrimSpace(rec[2]),
			Amount:       amount,
			Description:  strings.TrimSpace(rec[4]),
			BusinessUnit: strings.TrimSpace(rec[5]),
			Kind:         kind,
		}
		txs = append(txs, t)
		if t.BusinessUnit != "" {
			units = append(units, t.BusinessUnit)
		}
	}
	return txs, dedupe(units), nil
}

// DemoUnits lists the demo business units.
func DemoUnits() []string {
	return []string{"BlueBolt Software", "Red Kite Retail", "Green Leaf Farm"}
}

// DemoTransactions is a small dataset covering every unit across 2025 and 2026.
func DemoTransactions() []core.Transaction {
	rows := []struct {
		code, date, category, amount, desc, unit string
		kind                                     core.Kind
	}{
		{"PT2601", "5/1/2026", "Dịch vụ phần mềm", "185000000", "Hợp đồng bảo trì", "BlueBolt Software", core.Income},
		{"PC2601", "20/1/2026", "Lương", "92000000", "Lương tháng 1", "BlueBolt Software", core.Expense},
		{"PC2602", "25/1/2026", "Hạ tầng", "14500000", "Máy chủ đám mây", "BlueBolt Software", core.Expense},
		{"PT2602", "12/2/2026", "Dịch vụ phần mềm", "210000000", "Triển khai ERP", "BlueBolt Software", core.Income},
		{"PC2603", "20/2/2026", "Lương", "92000000", "Lương tháng 2", "BlueBolt Software", core.Expense},
		{"PT2603", "8/1/2026", "Bán hàng", "320000000", "Doanh thu cửa hàng", "Red Kite Retail", core.Income},
		{"PC2604", "10/1/2026", "Giá vốn", "198000000", "Nhập hàng", "Red Kite Retail", core.Expense},
		{"PC2605", "15/1/2026", "Thuê mặt bằng", "45000000", "Tiền thuê tháng 1", "Red Kite Retail", core.Expense},
		{"PC2606", "28/1/2026", "Marketing", "18000000", "Quảng cáo", "Red Kite Retail", core.Expense},
		{"PT2604", "3/3/2026", "Bán hàng", "290000000", "Doanh thu cửa hàng", "Red Kite Retail", core.Income},
		{"PC2607", "2/2/2026", "Vật tư", "12000000", "Phân bón", "Green Leaf Farm", core.Expense},
		{"PC2608", "14/2/2026", "Điện nước", "3200000", "", "", core.Expense},
		{"PT2501", "18/11/2025", "Dịch vụ phần mềm", "150000000", "Hợp đồng năm 2025", "BlueBolt Software", core.Income},
		{"PC2501", "30/12/2025", "Thưởng", "60000000", "Thưởng cuối năm", "BlueBolt Software", core.Expense},
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.Transaction{
			Code:         r.code,
			Date:         r.date,
			Category:     r.category,
			Amount:       decimal.RequireFromString(r.amount),
			Description:  r.desc,
			BusinessUnit: r.unit,
			Kind:         r.kind,
		})
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
