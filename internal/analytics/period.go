// Package analytics turns raw income/expense records into the dashboard report:
// per business unit totals, a monthly cash-flow series and the top expense
// categories for a reporting window.
//
// Every function here is pure. A report is recomputed from the full record
// list on each call; nothing is cached or updated incrementally.
package analytics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"taichinh/internal/core"
)

const (
	ModeMonth   Mode = "month"
	ModeQuarter Mode = "quarter"
	ModeYear    Mode = "year"
	ModeCustom  Mode = "custom"
)

var (
	ErrInvalidMode   = errors.New("invalid period mode")
	ErrInvalidPeriod = errors.New("invalid period")
)

// Mode selects how the reporting window is derived.
type Mode string

// Period is an inclusive window between two local midnights.
type Period struct {
	Mode  Mode      `json:"mode"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ParseMode parses a mode selector; empty means month.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeMonth, nil
	case ModeMonth, ModeQuarter, ModeYear, ModeCustom:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Contains reports whether t falls within the window, both ends included.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// ResolvePeriod derives the concrete window for mode relative to now.
//
// Custom mode parses from and to (YYYY-MM-DD or D/M/YYYY) and falls back to
// the current month when either one is empty.
func ResolvePeriod(mode Mode, now time.Time, from, to string, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	year, month := now.Year(), int(now.Month())

	switch mode {
	case ModeMonth, "":
		return monthPeriod(ModeMonth, year, month, loc), nil
	case ModeQuarter:
		first := (month-1)/3*3 + 1
		return Period{
			Mode:  ModeQuarter,
			Start: core.NewDate(year, first, 1, loc).Time,
			End:   core.NewDate(year, first+2, core.DaysIn(year, first+2), loc).Time,
		}, nil
	case ModeYear:
		return Period{
			Mode:  ModeYear,
			Start: core.NewDate(year, 1, 1, loc).Time,
			End:   core.NewDate(year, 12, 31, loc).Time,
		}, nil
	case ModeCustom:
		if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
			return monthPeriod(ModeCustom, year, month, loc), nil
		}
		start, err := parseBound(from, loc)
		if err != nil {
			return Period{}, fmt.Errorf("%w: from: %v", ErrInvalidPeriod, err)
		}
		end, err := parseBound(to, loc)
		if err != nil {
			return Period{}, fmt.Errorf("%w: to: %v", ErrInvalidPeriod, err)
		}
		if start.After(end) {
			return Period{}, fmt.Errorf("%w: from %s is after to %s", ErrInvalidPeriod, from, to)
		}
		return Period{Mode: ModeCustom, Start: start, End: end}, nil
	default:
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

func monthPeriod(mode Mode, year, month int, loc *time.Location) Period {
	return Period{
		Mode:  mode,
		Start: core.NewDate(year, month, 1, loc).Time,
		End:   core.NewDate(year, month, core.DaysIn(year, month), loc).Time,
	}
}

// parseBound accepts the date input format (YYYY-MM-DD) and the record format.
func parseBound(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	d, err := core.ParseDate(s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return d.Time, nil
}
