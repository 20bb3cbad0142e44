package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const expenseColumns = `id, trip_id, date, description, amount_cents, kind, category, paid_by, split_with, created_at, processed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (Expense, error) {
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.TripID,
		&i.Date,
		&i.Description,
		&i.AmountCents,
		&i.Kind,
		&i.Category,
		&i.PaidBy,
		&i.SplitWith,
		&i.CreatedAt,
		&i.ProcessedAt,
	)
	return i, err
}

const createExpense = `
INSERT INTO expenses (trip_id, date, description, amount_cents, kind, category, paid_by, split_with)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + expenseColumns

type CreateExpenseParams struct {
	TripID      string
	Date        string
	Description string
	AmountCents int64
	Kind        string
	Category    string
	PaidBy      string
	SplitWith   string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.TripID,
		arg.Date,
		arg.Description,
		arg.AmountCents,
		arg.Kind,
		arg.Category,
		arg.PaidBy,
		arg.SplitWith,
	)
	return scanExpense(row)
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const listExpensesByTrip = `SELECT ` + expenseColumns + ` FROM expenses WHERE trip_id = ? ORDER BY id`

func (q *Queries) ListExpensesByTrip(ctx context.Context, tripID string) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesByTrip, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Expense{}
	for rows.Next() {
		i, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// getTripTotals adds the rows the worker has not folded in yet to the
// materialized totals, so a summary never lags behind the ledger.
const getTripTotals = `
SELECT kind, category, CAST(SUM(total) AS INTEGER), CAST(SUM(cnt) AS INTEGER)
FROM (
    SELECT kind, category, total_cents AS total, expense_count AS cnt
    FROM trip_totals
    WHERE trip_id = ?
    UNION ALL
    SELECT kind, category, amount_cents, 1
    FROM expenses
    WHERE trip_id = ? AND processed_at IS NULL
)
GROUP BY kind, category`

func (q *Queries) GetTripTotals(ctx context.Context, tripID string) ([]TripTotalRow, error) {
	rows, err := q.db.QueryContext(ctx, getTripTotals, tripID, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TripTotalRow
	for rows.Next() {
		var i TripTotalRow
		if err := rows.Scan(&i.Kind, &i.Category, &i.TotalAmount, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPendingExpenses = `
SELECT id, trip_id, created_at
FROM expenses
WHERE processed_at IS NULL
ORDER BY id
LIMIT ?`

func (q *Queries) ListPendingExpenses(ctx context.Context, limit int64) ([]PendingExpense, error) {
	rows, err := q.db.QueryContext(ctx, listPendingExpenses, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PendingExpense
	for rows.Next() {
		var i PendingExpense
		if err := rows.Scan(&i.ID, &i.TripID, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markExpenseProcessed = `
UPDATE expenses
SET processed_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
WHERE id = ? AND processed_at IS NULL`

func (q *Queries) MarkExpenseProcessed(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markExpenseProcessed, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const addToTripTotals = `
INSERT INTO trip_totals (trip_id, kind, category, total_cents, expense_count)
VALUES (?, ?, ?, ?, 1)
ON CONFLICT (trip_id, kind, category) DO UPDATE SET
    total_cents = total_cents + excluded.total_cents,
    expense_count = expense_count + 1`

type AddToTripTotalsParams struct {
	TripID      string
	Kind        string
	Category    string
	AmountCents int64
}

func (q *Queries) AddToTripTotals(ctx context.Context, arg AddToTripTotalsParams) error {
	_, err := q.db.ExecContext(ctx, addToTripTotals, arg.TripID, arg.Kind, arg.Category, arg.AmountCents)
	return err
}

const listCategories = `SELECT name FROM categories ORDER BY position, name`

func (q *Queries) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
