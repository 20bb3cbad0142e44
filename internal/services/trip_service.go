package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"viaggi/internal/core"
	"viaggi/internal/ledger"
)

// ListQuery filters and orders a trip's expense list.
type ListQuery struct {
	Filter     core.ExpenseFilter
	Sort       core.SortField
	Descending bool
}

// TripService answers read-side questions about a trip's ledger.
type TripService struct {
	ledger ledger.Ledger
	group  singleflight.Group
}

func NewTripService(l ledger.Ledger) *TripService {
	return &TripService{ledger: l}
}

func (t *TripService) ListExpenses(ctx context.Context, tripID string, q ListQuery) ([]core.Expense, error) {
	if tripID == "" {
		return nil, core.ErrEmptyTrip
	}
	all, err := t.ledger.ListExpenses(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := core.FilterExpenses(all, q.Filter)
	core.SortExpenses(out, q.Sort, q.Descending)
	return out, nil
}

// Summary reads a trip's totals. Concurrent requests for the same trip share
// one ledger read, which outlives any single caller giving up on it.
func (t *TripService) Summary(ctx context.Context, tripID string) (core.TripSummary, error) {
	if tripID == "" {
		return core.TripSummary{}, core.ErrEmptyTrip
	}
	shared := context.WithoutCancel(ctx)
	ch := t.group.DoChan(tripID, func() (any, error) {
		return t.ledger.ReadTripSummary(shared, tripID)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return core.TripSummary{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return core.TripSummary{}, fmt.Errorf("read trip summary: %w", res.Err)
	}
	sum := res.Val.(core.TripSummary)
	// Callers may reorder the slice; don't share it.
	sum.ByCategory = append([]core.CategoryAmount(nil), sum.ByCategory...)
	return sum, nil
}

func (t *TripService) Categories(ctx context.Context) ([]string, error) {
	return t.ledger.ListCategories(ctx)
}
