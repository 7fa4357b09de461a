package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid date")

// DateError describes why a record date could not be parsed.
type DateError struct {
	Input  string
	Reason string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date %q: %s", e.Input, e.Reason)
}

func (e *DateError) Unwrap() error { return ErrInvalidDate }

// NewDate creates a Date at midnight in loc.
func NewDate(year, month, day int, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)}
}

// ParseDate parses a day-first D/M/YYYY (or DD/MM/YYYY) string into local
// midnight of that calendar day. "5/1/2026" is 5 January 2026.
func ParseDate(s string, loc *time.Location) (Date, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return Date{}, &DateError{Input: s, Reason: "empty"}
	}
	parts := strings.Split(in, "/")
	if len(parts) != 3 {
		return Date{}, &DateError{Input: s, Reason: "expected D/M/YYYY"}
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return Date{}, &DateError{Input: s, Reason: "day is not a number"}
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return Date{}, &DateError{Input: s, Reason: "month is not a number"}
	}
	if len(parts[2]) != 4 {
		return Date{}, &DateError{Input: s, Reason: "year must have four digits"}
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return Date{}, &DateError{Input: s, Reason: "year is not a number"}
	}
	if month < 1 || month > 12 {
		return Date{}, &DateError{Input: s, Reason: "month out of range"}
	}
	if day < 1 || day > DaysIn(year, month) {
		return Date{}, &DateError{Input: s, Reason: "day out of range"}
	}
	return NewDate(year, month, day, loc), nil
}

// FormatDate renders t as D/M/YYYY without zero padding.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthKey returns the "M/YYYY" bucket key of the date.
func (d Date) MonthKey() string {
	return strconv.Itoa(int(d.Month())) + "/" + strconv.Itoa(d.Year())
}
