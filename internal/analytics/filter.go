package analytics

import (
	"time"

	"taichinh/internal/core"
)

// Skipped is a record left out of a report because its date could not be parsed.
type Skipped struct {
	Code         string `json:"code"`
	Date         string `json:"date"`
	BusinessUnit string `json:"businessUnit"`
	Reason       string `json:"reason"`
}

// FilterByPeriod keeps the records dated within p, both bounds included.
// Records with an unparseable date are returned in skipped instead of kept.
func FilterByPeriod(txs []core.Transaction, p Period, loc *time.Location) (kept []core.Transaction, skipped []Skipped) {
	for _, t := range txs {
		d, err := core.ParseDate(t.Date, loc)
		if err != nil {
			skipped = append(skipped, Skipped{
				Code:         t.Code,
				Date:         t.Date,
				BusinessUnit: t.UnitName(),
				Reason:       err.Error(),
			})
			continue
		}
		if p.Contains(d.Time) {
			kept = append(kept, t)
		}
	}
	return kept, skipped
}
