package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// TripSummary is a compact summary of a trip's ledger.
// Spent, Income and Loans are magnitudes; ByCategory covers expenses only.
type TripSummary struct {
	TripID     string
	Spent      Money
	Income     Money
	Loans      Money
	Count      int
	ByCategory []CategoryAmount
}

// Balance is what the trip cost net of income.
func (s TripSummary) Balance() Money {
	return Money{Cents: s.Spent.Cents - s.Income.Cents}
}

// Summarize aggregates expenses in memory.
func Summarize(tripID string, expenses []Expense) TripSummary {
	sum := TripSummary{TripID: tripID}
	byCat := map[string]int64{}
	for _, e := range expenses {
		sum.Count++
		switch e.Kind {
		case KindIncome:
			sum.Income.Cents += e.Amount.Abs().Cents
		case KindLoan:
			sum.Loans.Cents += e.Amount.Abs().Cents
		default:
			sum.Spent.Cents += e.Amount.Cents
			byCat[e.Category] += e.Amount.Cents
		}
	}
	for name, cents := range byCat {
		sum.ByCategory = append(sum.ByCategory, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	SortCategories(sum.ByCategory)
	return sum
}

// SortCategories orders by amount descending, then by name.
func SortCategories(cats []CategoryAmount) {
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Amount.Cents != cats[j].Amount.Cents {
			return cats[i].Amount.Cents > cats[j].Amount.Cents
		}
		return cats[i].Name < cats[j].Name
	})
}
