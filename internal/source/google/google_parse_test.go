package google

import (
	"testing"

	"github.com/shopspring/decimal"

	"taichinh/internal/core"
)

func TestParseTransactions(t *testing.T) {
	values := [][]interface{}{
		{"Mã", "Ngày", "Danh mục", "Số tiền", "Diễn giải", "Đơn vị", "Loại"},
		{"PT001", "5/1/2026", "Dịch vụ", 15000000.0, "Hợp đồng A", "BlueBolt Software", "thu"},
		{"PC001", "20/1/2026", "Lương", "4000000,5", "Lương tháng 1", "BlueBolt Software", "chi"},
		{"PC002", "bad", "", 100.0, "", "", "expense"},
		{},
		{"", "1/1/2026", "x", 1.0, "", "", "chi"},
		{"PC003", "1/1/2026", "x", "abc", "", "", "chi"},
		{"PC004", "1/1/2026", "x", 10.0, "", "", "refund"},
		{"PC005", "1/1/2026", "x", -5.0, "", "", "chi"},
	}

	txs, rejected := parseTransactions(values, "")
	if len(txs) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(txs), txs)
	}
	if txs[0].Kind != core.Income || !txs[0].Amount.Equal(decimal.NewFromInt(15000000)) {
		t.Errorf("unexpected first record %+v", txs[0])
	}
	if !txs[1].Amount.Equal(decimal.RequireFromString("4000000.5")) || txs[1].BusinessUnit != "BlueBolt Software" {
		t.Errorf("unexpected second record %+v", txs[1])
	}
	if txs[2].Date != "bad" || txs[2].Category != "" {
		t.Errorf("bad dates and empty categories should pass through, got %+v", txs[2])
	}
	if len(rejected) != 4 {
		t.Fatalf("expected 4 rejected rows, got %+v", rejected)
	}
	if rejected[0].Row != 6 || rejected[0].Reason != "missing code" {
		t.Errorf("unexpected first rejection %+v", rejected[0])
	}
}

func TestParseTransactionsKindFromSheet(t *testing.T) {
	values := [][]interface{}{
		{"PC001", "3/2/2026", "Thuê", 500.0, "", "Red Kite Retail"},
	}
	txs, rejected := parseTransactions(values, defaultKind("Chi"))
	if len(rejected) != 0 || len(txs) != 1 || txs[0].Kind != core.Expense {
		t.Fatalf("expected expense from sheet name, got %+v %+v", txs, rejected)
	}

	_, rejected = parseTransactions(values, defaultKind("Transactions"))
	if len(rejected) != 1 || rejected[0].Reason != "missing kind" {
		t.Fatalf("expected missing kind, got %+v", rejected)
	}
}

func TestParseUnits(t *testing.T) {
	values := [][]interface{}{{"BlueBolt Software"}, {""}, {"#archived"}, {"Red Kite Retail"}, {"BlueBolt Software"}, {}}
	got := parseUnits(values)
	want := []string{"BlueBolt Software", "Red Kite Retail"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSplitSheetNames(t *testing.T) {
	got := SplitSheetNames(" Thu, Chi ,,")
	if len(got) != 2 || got[0] != "Thu" || got[1] != "Chi" {
		t.Fatalf("unexpected sheet names %v", got)
	}
}
