package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"taichinh/internal/core"
)

// MonthBucket is one calendar month of the cash-flow chart.
type MonthBucket struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Profit  decimal.Decimal `json:"profit"`
}

// MonthlySeries builds one bucket per calendar month of p and adds every
// filtered record of units to the bucket of its own month. It also returns
// how many records matched no bucket.
func MonthlySeries(p Period, units []UnitSummary, loc *time.Location) ([]MonthBucket, int) {
	var buckets []MonthBucket
	index := make(map[string]int)

	start := core.NewDate(p.Start.Year(), int(p.Start.Month()), 1, p.Start.Location())
	for m := start.Time; !m.After(p.End); m = m.AddDate(0, 1, 0) {
		key := core.Date{Time: m}.MonthKey()
		index[key] = len(buckets)
		buckets = append(buckets, MonthBucket{Key: key, Label: monthLabel(p.Mode, m)})
	}

	dropped := 0
	add := func(t core.Transaction, income bool) {
		d, err := core.ParseDate(t.Date, loc)
		if err != nil {
			dropped++
			return
		}
		i, ok := index[d.MonthKey()]
		if !ok {
			dropped++
			return
		}
		if income {
			buckets[i].Income = buckets[i].Income.Add(t.Amount)
		} else {
			buckets[i].Expense = buckets[i].Expense.Add(t.Amount)
		}
	}
	for _, u := range units {
		for _, t := range u.Income {
			add(t, true)
		}
		for _, t := range u.Expenses {
			add(t, false)
		}
	}
	for i := range buckets {
		buckets[i].Profit = buckets[i].Income.Sub(buckets[i].Expense)
	}
	return buckets, dropped
}

func monthLabel(mode Mode, m time.Time) string {
	if mode == ModeYear {
		return fmt.Sprintf("T%d/%02d", int(m.Month()), m.Year()%100)
	}
	return fmt.Sprintf("%d/%d", int(m.Month()), m.Year())
}
