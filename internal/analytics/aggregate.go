package analytics

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"taichinh/internal/core"
)

// AllUnits selects every business unit.
const AllUnits = "all"

type (
	// UnitSummary holds one business unit's figures for the window.
	UnitSummary struct {
		Name    string          `json:"name"`
		Revenue decimal.Decimal `json:"revenue"`
		Expense decimal.Decimal `json:"expense"`
		Profit  decimal.Decimal `json:"profit"`
		Margin  decimal.Decimal `json:"margin"`

		Income   []core.Transaction `json:"-"`
		Expenses []core.Transaction `json:"-"`
	}

	Totals struct {
		Revenue decimal.Decimal `json:"revenue"`
		Expense decimal.Decimal `json:"expense"`
		Profit  decimal.Decimal `json:"profit"`
		Margin  decimal.Decimal `json:"margin"`
	}

	UnitsResult struct {
		Units   []UnitSummary
		Totals  Totals
		Skipped []Skipped
	}
)

// IsAllUnits reports whether selected means no unit filter.
func IsAllUnits(selected string) bool {
	s := strings.TrimSpace(selected)
	return s == "" || strings.EqualFold(s, AllUnits)
}

// Margin returns profit as a percentage of revenue, zero when there is no revenue.
func Margin(profit, revenue decimal.Decimal) decimal.Decimal {
	return core.Percent(profit, revenue)
}

// AggregateUnits filters each unit's records to p and sums them. Grand totals
// are the sum of the per-unit figures.
func AggregateUnits(units []core.BusinessUnit, p Period, selected string, loc *time.Location) UnitsResult {
	var res UnitsResult
	all := IsAllUnits(selected)
	selected = strings.TrimSpace(selected)

	for _, u := range units {
		if !all && u.Name != selected {
			continue
		}
		income, skippedIncome := FilterByPeriod(u.Income, p, loc)
		expenses, skippedExpense := FilterByPeriod(u.Expenses, p, loc)
		res.Skipped = append(res.Skipped, skippedIncome...)
		res.Skipped = append(res.Skipped, skippedExpense...)

		s := UnitSummary{
			Name:     u.Name,
			Revenue:  sum(income),
			Expense:  sum(expenses),
			Income:   income,
			Expenses: expenses,
		}
		s.Profit = s.Revenue.Sub(s.Expense)
		s.Margin = Margin(s.Profit, s.Revenue)
		res.Units = append(res.Units, s)

		res.Totals.Revenue = res.Totals.Revenue.Add(s.Revenue)
		res.Totals.Expense = res.Totals.Expense.Add(s.Expense)
		res.Totals.Profit = res.Totals.Profit.Add(s.Profit)
	}
	res.Totals.Margin = Margin(res.Totals.Profit, res.Totals.Revenue)
	return res
}

func sum(txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}
