// Package ledger declares the ports through which committed expenses are
// stored and read back. Backends live in ledger/memory and storage.
package ledger

import (
	"context"
	"errors"

	"viaggi/internal/core"
)

var ErrExpenseNotFound = errors.New("expense not found")

type (
	ExpenseWriter interface {
		// Append stores e and returns the reference it was stored under.
		Append(ctx context.Context, e core.Expense) (ref string, err error)
	}

	// ExpenseLister returns the ledger of one trip in insertion order.
	ExpenseLister interface {
		ListExpenses(ctx context.Context, tripID string) ([]core.Expense, error)
	}

	SummaryReader interface {
		ReadTripSummary(ctx context.Context, tripID string) (core.TripSummary, error)
	}

	// CategoryLister provides the categories the expense form offers.
	CategoryLister interface {
		ListCategories(ctx context.Context) ([]string, error)
	}

	Ledger interface {
		ExpenseWriter
		ExpenseLister
		SummaryReader
		CategoryLister
	}
)

// DefaultCategories seeds backends that have no category list of their own.
var DefaultCategories = []string{
	"Alloggio",
	"Cibo",
	"Trasporti",
	"Attività",
	"Shopping",
	"Altro",
}
