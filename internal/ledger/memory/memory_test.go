package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"viaggi/internal/core"
	"viaggi/internal/ledger"
)

func expense(trip, desc string, cents int64, kind core.TransactionKind, cat string) core.Expense {
	return core.Expense{
		TripID:      trip,
		Date:        core.NewDate(2025, 6, 1),
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Kind:        kind,
		Category:    cat,
	}
}

func TestStore_AppendAndList(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	ref, err := s.Append(ctx, expense("lisbon", "tram", 300, core.KindExpense, "Trasporti"))
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	if _, err := s.Append(ctx, expense("porto", "wine", 1500, core.KindExpense, "Cibo")); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.ListExpenses(ctx, "lisbon")
	if err != nil || len(got) != 1 || got[0].ID != "mem:1" || got[0].Description != "tram" {
		t.Fatalf("ListExpenses(lisbon) = %+v, %v", got, err)
	}
	if got, _ := s.ListExpenses(ctx, "madrid"); got == nil || len(got) != 0 {
		t.Fatalf("unknown trip should list empty, got %#v", got)
	}
}

func TestStore_AppendValidates(t *testing.T) {
	s := New(nil)
	_, err := s.Append(context.Background(), expense("lisbon", "refund", 500, core.KindIncome, "Altro"))
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("positive income should be rejected, got %v", err)
	}
}

func TestStore_ReadTripSummary(t *testing.T) {
	s := New(nil)
	ctx := context.Background()
	for _, e := range []core.Expense{
		expense("lisbon", "hotel", 20000, core.KindExpense, "Alloggio"),
		expense("lisbon", "dinner", 4500, core.KindExpense, "Cibo"),
		expense("lisbon", "lunch", 1500, core.KindExpense, "Cibo"),
		expense("lisbon", "refund", -2000, core.KindIncome, "Altro"),
		expense("lisbon", "to Ana", 1000, core.KindLoan, "Altro"),
	} {
		if _, err := s.Append(ctx, e); err != nil {
			t.Fatalf("append %s: %v", e.Description, err)
		}
	}

	sum, err := s.ReadTripSummary(ctx, "lisbon")
	if err != nil {
		t.Fatalf("ReadTripSummary: %v", err)
	}
	if sum.Spent.Cents != 26000 || sum.Income.Cents != 2000 || sum.Loans.Cents != 1000 || sum.Count != 5 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.ByCategory) != 2 || sum.ByCategory[0].Name != "Alloggio" || sum.ByCategory[1].Amount.Cents != 6000 {
		t.Fatalf("by category = %+v", sum.ByCategory)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()

	cats, _ := NewFromFiles(dir).ListCategories(context.Background())
	if len(cats) != len(ledger.DefaultCategories) {
		t.Fatalf("expected defaults when file missing, got %v", cats)
	}

	content := "# header\nCibo\nMusei\nCibo\n\n"
	if err := os.WriteFile(filepath.Join(dir, "categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cats, _ = NewFromFiles(dir).ListCategories(context.Background())
	if len(cats) != 2 || cats[0] != "Cibo" || cats[1] != "Musei" {
		t.Fatalf("unexpected cats: %v", cats)
	}
}
