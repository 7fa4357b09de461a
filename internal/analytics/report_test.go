package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"taichinh/internal/core"
)

func sampleTransactions() []core.Transaction {
	return []core.Transaction{
		tx("PT001", "5/1/2026", "BlueBolt Software", "Dịch vụ", core.Income, 1000),
		tx("PC001", "20/1/2026", "BlueBolt Software", "Lương", core.Expense, 400),
		tx("PC002", "3/2/2026", "BlueBolt Software", "Thuê", core.Expense, 100),
		tx("PT002", "7/1/2026", "Red Kite Retail", "Bán hàng", core.Income, 5000),
		tx("PC003", "8/1/2026", "Red Kite Retail", "Marketing", core.Expense, 2500),
		tx("PC004", "9/1/2026", "", "", core.Expense, 30),
		tx("PC005", "not a date", "Red Kite Retail", "Marketing", core.Expense, 77),
	}
}

func TestBuildSelectedUnit(t *testing.T) {
	r, err := Build(Input{
		Transactions: sampleTransactions(),
		Mode:         ModeYear,
		SelectedUnit: "BlueBolt Software",
		Now:          time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		Location:     time.UTC,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Units) != 1 || r.Units[0].Name != "BlueBolt Software" {
		t.Fatalf("expected only BlueBolt Software, got %+v", r.Units)
	}
	u := r.Units[0]
	if !r.Totals.Revenue.Equal(u.Revenue) || !r.Totals.Expense.Equal(u.Expense) || !r.Totals.Profit.Equal(u.Profit) {
		t.Fatalf("totals %+v differ from unit %+v", r.Totals, u)
	}
	if !r.Totals.Profit.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("profit: got %s", r.Totals.Profit)
	}
	for _, c := range r.Categories {
		if c.Name == "Marketing" || c.Name == core.Unassigned {
			t.Fatalf("category %q belongs to another unit", c.Name)
		}
	}
	jan := r.Monthly[0]
	if !jan.Income.Equal(decimal.NewFromInt(1000)) || !jan.Expense.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("january leaked other units: %+v", jan)
	}
	if len(r.Skipped) != 0 {
		t.Fatalf("skipped records of another unit: %+v", r.Skipped)
	}
}

func TestBuildAllUnits(t *testing.T) {
	r, err := Build(Input{
		Transactions: sampleTransactions(),
		Units:        []string{"Green Leaf Farm", "BlueBolt Software"},
		Mode:         ModeMonth,
		Now:          time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Location:     time.UTC,
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.SelectedUnit != AllUnits {
		t.Fatalf("expected %q, got %q", AllUnits, r.SelectedUnit)
	}

	var names []string
	for _, u := range r.Units {
		names = append(names, u.Name)
	}
	want := []string{"Green Leaf Farm", "BlueBolt Software", "Red Kite Retail", core.Unassigned}
	if len(names) != len(want) {
		t.Fatalf("got units %v want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got units %v want %v", names, want)
		}
	}

	if !r.Totals.Revenue.Equal(decimal.NewFromInt(6000)) || !r.Totals.Expense.Equal(decimal.NewFromInt(2930)) {
		t.Fatalf("unexpected totals %+v", r.Totals)
	}
	if len(r.Skipped) != 1 || r.Skipped[0].Code != "PC005" {
		t.Fatalf("expected PC005 skipped, got %+v", r.Skipped)
	}
	if len(r.Monthly) != 1 || r.Monthly[0].Label != "1/2026" {
		t.Fatalf("unexpected monthly series %+v", r.Monthly)
	}
	if r.Categories[0].Name != "Marketing" {
		t.Fatalf("expected Marketing first, got %+v", r.Categories)
	}
}

func TestBuildInvalidPeriod(t *testing.T) {
	_, err := Build(Input{Mode: ModeCustom, From: "2026-05-01", To: "2026-04-01", Location: time.UTC})
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}
