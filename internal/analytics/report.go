package analytics

import (
	"strings"
	"time"

	"taichinh/internal/core"
)

type (
	Input struct {
		Transactions  []core.Transaction
		Units         []string // registered business units, listed even without records
		Mode          Mode
		From          string
		To            string
		SelectedUnit  string
		Now           time.Time
		Location      *time.Location
		CategoryLimit int
	}

	Report struct {
		Period            Period          `json:"period"`
		SelectedUnit      string          `json:"selectedUnit"`
		Units             []UnitSummary   `json:"units"`
		Totals            Totals          `json:"totals"`
		Categories        []CategorySlice `json:"categories"`
		Monthly           []MonthBucket   `json:"monthly"`
		Skipped           []Skipped       `json:"skipped"`
		DroppedFromSeries int             `json:"droppedFromSeries"`
	}
)

// Build computes the full report for in. It only fails when the period
// cannot be resolved.
func Build(in Input) (Report, error) {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	p, err := ResolvePeriod(in.Mode, now, in.From, in.To, loc)
	if err != nil {
		return Report{}, err
	}

	selected := strings.TrimSpace(in.SelectedUnit)
	if IsAllUnits(selected) {
		selected = AllUnits
	}

	units := core.GroupByUnit(in.Transactions, in.Units)
	agg := AggregateUnits(units, p, selected, loc)

	var expenses []core.Transaction
	for _, u := range agg.Units {
		expenses = append(expenses, u.Expenses...)
	}
	monthly, dropped := MonthlySeries(p, agg.Units, loc)

	return Report{
		Period:            p,
		SelectedUnit:      selected,
		Units:             agg.Units,
		Totals:            agg.Totals,
		Categories:        CategoryBreakdown(expenses, in.CategoryLimit),
		Monthly:           monthly,
		Skipped:           agg.Skipped,
		DroppedFromSeries: dropped,
	}, nil
}
