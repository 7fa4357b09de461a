package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"taichinh/internal/core"
)

// DefaultCategoryLimit is the number of slices shown on the expense chart.
const DefaultCategoryLimit = 5

// CategorySlice is one expense category and its share of all expenses.
type CategorySlice struct {
	Name       string          `json:"name"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
}

// CategoryBreakdown groups expenses by category and returns the largest limit
// groups. Percentages are taken over the total of every group, so with more
// than limit categories they add up to less than 100. The remainder is
// dropped, not folded into an extra slice.
func CategoryBreakdown(expenses []core.Transaction, limit int) []CategorySlice {
	if limit <= 0 {
		limit = DefaultCategoryLimit
	}

	totals := make(map[string]decimal.Decimal)
	var names []string
	grand := decimal.Zero
	for _, t := range expenses {
		name := t.CategoryName()
		v, ok := totals[name]
		if !ok {
			names = append(names, name)
		}
		totals[name] = v.Add(t.Amount)
		grand = grand.Add(t.Amount)
	}

	slices := make([]CategorySlice, 0, len(names))
	for _, name := range names {
		slices = append(slices, CategorySlice{
			Name:       name,
			Value:      totals[name],
			Percentage: core.Percent(totals[name], grand),
		})
	}
	sort.SliceStable(slices, func(i, j int) bool {
		if c := slices[i].Value.Cmp(slices[j].Value); c != 0 {
			return c > 0
		}
		return slices[i].Name < slices[j].Name
	})
	if len(slices) > limit {
		slices = slices[:limit]
	}
	return slices
}
