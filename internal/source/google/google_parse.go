package google

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"taichinh/internal/core"
)

// Record sheet columns.
const (
	colCode = iota
	colDate
	colCategory
	colAmount
	colDescription
	colUnit
	colKind
)

type rowError struct {
	Row    int
	Reason string
}

// parseTransactions converts a values matrix into records. A leading header
// row is skipped. Rows without a code, with an unreadable amount or without a
// kind are rejected; dates are kept verbatim for the report to judge.
func parseTransactions(values [][]interface{}, fallback core.Kind) ([]core.Transaction, []rowError) {
	var (
		out      []core.Transaction
		rejected []rowError
	)
	for i, row := range values {
		cols := toStrings(row)
		if isBlank(cols) {
			continue
		}
		if i == 0 && isHeader(cols) {
			continue
		}
		rowNum := i + 1

		code := safeGet(cols, colCode)
		if code == "" {
			rejected = append(rejected, rowError{rowNum, "missing code"})
			continue
		}
		amount, err := parseCellAmount(row, colAmount)
		if err != nil {
			rejected = append(rejected, rowError{rowNum, err.Error()})
			continue
		}
		kind := fallback
		if raw := safeGet(cols, colKind); raw != "" {
			if kind, err = core.ParseKind(raw); err != nil {
				rejected = append(rejected, rowError{rowNum, err.Error()})
				continue
			}
		}
		if kind == "" {
			rejected = append(rejected, rowError{rowNum, "missing kind"})
			continue
		}

		out = append(out, core.Transaction{
			Code:         code,
			Date:         safeGet(cols, colDate),
			Category:     safeGet(cols, colCategory),
			Amount:       amount,
			Description:  safeGet(cols, colDescription),
			BusinessUnit: safeGet(cols, colUnit),
			Kind:         kind,
		})
	}
	return out, rejected
}

// parseCellAmount accepts numeric cells as returned with UNFORMATTED_VALUE
// and text cells in either decimal notation.
func parseCellAmount(row []interface{}, idx int) (decimal.Decimal, error) {
	if idx >= len(row) {
		return decimal.Zero, fmt.Errorf("%w: empty", core.ErrInvalidAmount)
	}
	switch v := row[idx].(type) {
	case float64:
		if v < 0 {
			return decimal.Zero, core.ErrInvalidAmount
		}
		return decimal.NewFromFloat(v), nil
	case int:
		if v < 0 {
			return decimal.Zero, core.ErrInvalidAmount
		}
		return decimal.NewFromInt(int64(v)), nil
	default:
		return core.ParseAmount(fmt.Sprint(v))
	}
}

func parseUnits(values [][]interface{}) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func isHeader(cols []string) bool {
	first := strings.ToLower(safeGet(cols, colCode))
	if first == "code" || first == "mã" || first == "ma" {
		return true
	}
	_, err := strconv.ParseFloat(strings.ReplaceAll(safeGet(cols, colAmount), ",", "."), 64)
	return err != nil
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
