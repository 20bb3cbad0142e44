package core

import (
	"fmt"
	"sort"
	"strings"
)

// ExpenseFilter selects expenses of a trip list. Zero fields match everything.
type ExpenseFilter struct {
	Kind     TransactionKind
	Category string
	PaidBy   string
	Search   string // case-insensitive substring of the description
}

// SortField names the attribute an expense list is ordered by.
type SortField string

const (
	SortByDate        SortField = "date"
	SortByAmount      SortField = "amount"
	SortByDescription SortField = "description"
)

// ParseSortField accepts the field names; empty means date.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return SortByDate, nil
	case SortByDate, SortByAmount, SortByDescription:
		return f, nil
	default:
		return "", fmt.Errorf("unknown sort field %q", s)
	}
}

func (f ExpenseFilter) Match(e Expense) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Category != "" && !strings.EqualFold(e.Category, f.Category) {
		return false
	}
	if f.PaidBy != "" && !strings.EqualFold(e.PaidBy, f.PaidBy) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(e.Description), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// FilterExpenses returns the matching expenses in their original order.
func FilterExpenses(expenses []Expense, f ExpenseFilter) []Expense {
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// SortExpenses orders expenses in place. Amounts compare by magnitude so
// incomes sort next to expenses of the same size. Ties keep input order.
func SortExpenses(expenses []Expense, field SortField, descending bool) {
	less := func(a, b Expense) bool {
		switch field {
		case SortByAmount:
			return a.Amount.Abs().Cents < b.Amount.Abs().Cents
		case SortByDescription:
			return strings.ToLower(a.Description) < strings.ToLower(b.Description)
		default:
			return a.Date.Before(b.Date.Time)
		}
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		if descending {
			return less(expenses[j], expenses[i])
		}
		return less(expenses[i], expenses[j])
	})
}
