package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// Unassigned is the business unit / category used for records that carry none.
const Unassigned = "Không phân bổ"

type (
	Kind string

	Date struct {
		time.Time
	}

	Transaction struct {
		Code         string
		Date         string // D/M/YYYY, day first
		Category     string
		Amount       decimal.Decimal
		Description  string
		BusinessUnit string
		Kind         Kind
	}

	BusinessUnit struct {
		Name     string
		Income   []Transaction
		Expenses []Transaction
	}
)

var (
	ErrEmptyCode        = errors.New("empty transaction code")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrDescriptionLimit = errors.New("description too long (max 500 characters)")
)

// ParseKind accepts the English kinds plus the Vietnamese labels used by the console.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "thu", "thu nhập", "doanh thu":
		return Income, nil
	case "expense", "chi", "chi phí":
		return Expense, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// Validate checks a record before it is written to a store. The aggregator never
// calls it: unparseable dates are skipped at report time instead.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Code) == "" {
		return ErrEmptyCode
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if _, err := ParseDate(t.Date, time.UTC); err != nil {
		return err
	}
	if len(t.Description) > 500 {
		return ErrDescriptionLimit
	}
	return nil
}

// UnitName returns the record's business unit or Unassigned.
func (t Transaction) UnitName() string {
	if name := strings.TrimSpace(t.BusinessUnit); name != "" {
		return name
	}
	return Unassigned
}

// CategoryName returns the record's category or Unassigned.
func (t Transaction) CategoryName() string {
	if t.Category == "" {
		return Unassigned
	}
	return t.Category
}

// GroupByUnit partitions a flat record list into business units. Registered
// units come first in the given order (even with no records), then any
// other unit in first-seen order.
func GroupByUnit(txs []Transaction, registered []string) []BusinessUnit {
	index := make(map[string]int, len(registered))
	units := make([]BusinessUnit, 0, len(registered))
	add := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		units = append(units, BusinessUnit{Name: name})
		index[name] = len(units) - 1
		return len(units) - 1
	}
	for _, name := range registered {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		add(name)
	}
	for _, t := range txs {
		i := add(t.UnitName())
		switch t.Kind {
		case Income:
			units[i].Income = append(units[i].Income, t)
		case Expense:
			units[i].Expenses = append(units[i].Expenses, t)
		}
	}
	return units
}
