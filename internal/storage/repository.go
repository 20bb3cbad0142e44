// Package storage is the SQLite ledger. Its schema is managed by embedded
// golang-migrate migrations applied when the repository opens.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"viaggi/internal/core"
	"viaggi/internal/ledger"
	"viaggi/internal/log"
)

var _ ledger.Ledger = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite would otherwise report SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("SQLite ledger ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Append implements ledger.ExpenseWriter. The reference is the row id.
func (r *SQLiteRepository) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		TripID:      e.TripID,
		Date:        e.Date.String(),
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		Kind:        string(e.Kind),
		Category:    e.Category,
		PaidBy:      e.PaidBy,
		SplitWith:   strings.Join(e.SplitWith, ","),
	})
	if err != nil {
		return "", fmt.Errorf("create expense: %w", err)
	}

	r.logger.DebugContext(ctx, "Expense saved",
		log.NewFields().
			WithExpense(row.TripID, row.Kind, row.AmountCents, row.Category).
			WithOperation(log.OpAppend).
			ToSlice()...)

	return strconv.FormatInt(row.ID, 10), nil
}

// GetExpense loads the expense stored under ref.
func (r *SQLiteRepository) GetExpense(ctx context.Context, ref string) (core.Expense, error) {
	id, err := parseRef(ref)
	if err != nil {
		return core.Expense{}, err
	}
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("%w: %s", ledger.ErrExpenseNotFound, ref)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", ref, err)
	}
	return toCore(row)
}

// ListExpenses implements ledger.ExpenseLister
func (r *SQLiteRepository) ListExpenses(ctx context.Context, tripID string) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list expenses of trip %s: %w", tripID, err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := toCore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ReadTripSummary implements ledger.SummaryReader from the materialized trip
// totals plus the rows still pending.
func (r *SQLiteRepository) ReadTripSummary(ctx context.Context, tripID string) (core.TripSummary, error) {
	rows, err := r.queries.GetTripTotals(ctx, tripID)
	if err != nil {
		return core.TripSummary{}, fmt.Errorf("get trip totals: %w", err)
	}

	sum := core.TripSummary{TripID: tripID}
	for _, row := range rows {
		sum.Count += int(row.Count)
		switch core.TransactionKind(row.Kind) {
		case core.KindIncome:
			sum.Income.Cents -= row.TotalAmount
		case core.KindLoan:
			sum.Loans.Cents += row.TotalAmount
		default:
			sum.Spent.Cents += row.TotalAmount
			sum.ByCategory = append(sum.ByCategory, core.CategoryAmount{
				Name:   row.Category,
				Amount: core.Money{Cents: row.TotalAmount},
			})
		}
	}
	core.SortCategories(sum.ByCategory)
	return sum, nil
}

// ListCategories implements ledger.CategoryLister
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, error) {
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// PendingExpenses returns up to limit rows not yet processed, oldest first.
func (r *SQLiteRepository) PendingExpenses(ctx context.Context, limit int) ([]PendingExpense, error) {
	rows, err := r.queries.ListPendingExpenses(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending expenses: %w", err)
	}
	return rows, nil
}

// ApplyToTotals folds the row stored under ref into its trip's totals and
// flags it processed, in one transaction. It reports false when the row was
// already processed, which makes redelivered messages harmless.
func (r *SQLiteRepository) ApplyToTotals(ctx context.Context, ref string) (bool, error) {
	id, err := parseRef(ref)
	if err != nil {
		return false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	q := r.queries.WithTx(tx)

	row, err := q.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: %s", ledger.ErrExpenseNotFound, ref)
	}
	if err != nil {
		return false, fmt.Errorf("get expense %s: %w", ref, err)
	}
	n, err := q.MarkExpenseProcessed(ctx, id)
	if err != nil {
		return false, fmt.Errorf("mark expense %s processed: %w", ref, err)
	}
	if n == 0 {
		return false, nil
	}
	if err := q.AddToTripTotals(ctx, AddToTripTotalsParams{
		TripID:      row.TripID,
		Kind:        row.Kind,
		Category:    row.Category,
		AmountCents: row.AmountCents,
	}); err != nil {
		return false, fmt.Errorf("add expense %s to trip totals: %w", ref, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}

func parseRef(ref string) (int64, error) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: bad reference %q", ledger.ErrExpenseNotFound, ref)
	}
	return id, nil
}

func toCore(row Expense) (core.Expense, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has bad date %q: %w", row.ID, row.Date, err)
	}
	var split []string
	if row.SplitWith != "" {
		split = strings.Split(row.SplitWith, ",")
	}
	return core.Expense{
		ID:          strconv.FormatInt(row.ID, 10),
		TripID:      row.TripID,
		Date:        date,
		Description: row.Description,
		Amount:      core.Money{Cents: row.AmountCents},
		Kind:        core.TransactionKind(row.Kind),
		Category:    row.Category,
		PaidBy:      row.PaidBy,
		SplitWith:   split,
	}, nil
}
