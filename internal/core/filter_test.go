package core

import "testing"

func sampleExpenses() []Expense {
	return []Expense{
		{Description: "Pranzo", Date: NewDate(2025, 6, 2), Amount: Money{Cents: 2400}, Kind: KindExpense, Category: "Cibo", PaidBy: "anna"},
		{Description: "Treno", Date: NewDate(2025, 6, 1), Amount: Money{Cents: 4550}, Kind: KindExpense, Category: "Trasporti", PaidBy: "marco"},
		{Description: "Rimborso", Date: NewDate(2025, 6, 3), Amount: Money{Cents: -3000}, Kind: KindIncome, Category: "Altro", PaidBy: "anna"},
		{Description: "Cena", Date: NewDate(2025, 6, 2), Amount: Money{Cents: 3800}, Kind: KindExpense, Category: "cibo", PaidBy: "marco"},
	}
}

func TestFilterExpenses(t *testing.T) {
	tests := []struct {
		name   string
		filter ExpenseFilter
		want   []string
	}{
		{"empty filter", ExpenseFilter{}, []string{"Pranzo", "Treno", "Rimborso", "Cena"}},
		{"by kind", ExpenseFilter{Kind: KindIncome}, []string{"Rimborso"}},
		{"category ignores case", ExpenseFilter{Category: "CIBO"}, []string{"Pranzo", "Cena"}},
		{"payer and kind", ExpenseFilter{PaidBy: "anna", Kind: KindExpense}, []string{"Pranzo"}},
		{"search", ExpenseFilter{Search: "ren"}, []string{"Treno"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterExpenses(sampleExpenses(), tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d expenses, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.Description != tt.want[i] {
					t.Errorf("position %d = %q, want %q", i, e.Description, tt.want[i])
				}
			}
		})
	}
}

func TestSortExpenses(t *testing.T) {
	tests := []struct {
		field SortField
		desc  bool
		want  []string
	}{
		{SortByDate, false, []string{"Treno", "Pranzo", "Cena", "Rimborso"}},
		{SortByDate, true, []string{"Rimborso", "Pranzo", "Cena", "Treno"}},
		{SortByAmount, false, []string{"Pranzo", "Rimborso", "Cena", "Treno"}},
		{SortByDescription, false, []string{"Cena", "Pranzo", "Rimborso", "Treno"}},
	}
	for _, tt := range tests {
		es := sampleExpenses()
		SortExpenses(es, tt.field, tt.desc)
		for i, e := range es {
			if e.Description != tt.want[i] {
				t.Fatalf("%s desc=%v: position %d = %q, want %q", tt.field, tt.desc, i, e.Description, tt.want[i])
			}
		}
	}
}

func TestSummarize(t *testing.T) {
	sum := Summarize("t1", sampleExpenses())
	if sum.Count != 4 {
		t.Fatalf("Count = %d, want 4", sum.Count)
	}
	if sum.Spent.Cents != 10750 {
		t.Fatalf("Spent = %d, want 10750", sum.Spent.Cents)
	}
	if sum.Income.Cents != 3000 {
		t.Fatalf("Income = %d, want 3000", sum.Income.Cents)
	}
	if sum.Balance().Cents != 7750 {
		t.Fatalf("Balance = %d, want 7750", sum.Balance().Cents)
	}
	if len(sum.ByCategory) != 3 || sum.ByCategory[0].Name != "Trasporti" {
		t.Fatalf("unexpected categories: %+v", sum.ByCategory)
	}
}

func TestParseSortField(t *testing.T) {
	if f, err := ParseSortField(""); err != nil || f != SortByDate {
		t.Fatalf("empty should default to date, got %q %v", f, err)
	}
	if _, err := ParseSortField("price"); err == nil {
		t.Fatal("expected error for unknown field")
	}
}
