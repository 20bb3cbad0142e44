package storage

import "database/sql"

// Expense is a row of the expenses table.
type Expense struct {
	ID          int64
	TripID      string
	Date        string
	Description string
	AmountCents int64
	Kind        string
	Category    string
	PaidBy      string
	SplitWith   string
	CreatedAt   string
	ProcessedAt sql.NullString
}

type TripTotalRow struct {
	Kind        string
	Category    string
	TotalAmount int64
	Count       int64
}

// PendingExpense is a committed row the worker has not processed yet.
type PendingExpense struct {
	ID        int64
	TripID    string
	CreatedAt string
}
