// Package core provides the record types shared by every layer.
//
// This file contains amount parsing and display helpers. Amounts are kept as
// decimal.Decimal end to end; floats only appear at the chart/export edge.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a decimal string into an amount.
//
// Both dot (1234.5) and comma (1234,5) decimal separators are accepted; thousands
// separators are not. Negative values and empty strings are rejected, zero is allowed.
//
// Examples:
//
//	ParseAmount("1500000")  -> 1500000, nil
//	ParseAmount("12,5")     -> 12.5, nil
//	ParseAmount("-1")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.Replace(s, ",", ".", 1)
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	dots := 0
	for _, r := range s {
		if r == '.' {
			dots++
			continue
		}
		if !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if dots > 1 || s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Percent returns part/whole*100, or zero when whole is not positive.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// FormatVND renders an amount rounded to whole dong with dot thousands
// separators, e.g. "1.234.567 ₫".
func FormatVND(d decimal.Decimal) string {
	neg := d.IsNegative()
	digits := d.Abs().Round(0).StringFixed(0)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String() + " ₫"
	}
	return b.String() + " ₫"
}
