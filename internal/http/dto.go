package http

import (
	"time"

	"viaggi/internal/core"
	"viaggi/internal/keypad"
	"viaggi/internal/session"
)

type openSessionRequest struct {
	TripID string `json:"trip_id"`
	Kind   string `json:"kind"`
	Seed   string `json:"seed"`
}

type pressKeysRequest struct {
	Keys []string `json:"keys"`
}

type commitRequest struct {
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Date        string   `json:"date"`
	PaidBy      string   `json:"paid_by"`
	SplitWith   []string `json:"split_with"`
}

type sessionResponse struct {
	ID       string               `json:"id"`
	TripID   string               `json:"trip_id"`
	Kind     core.TransactionKind `json:"kind"`
	OpenedAt time.Time            `json:"opened_at"`
	Display  string               `json:"display"`
	State    keypad.State         `json:"state"`
}

func newSessionResponse(s session.Snapshot) sessionResponse {
	return sessionResponse{
		ID:       s.ID,
		TripID:   s.TripID,
		Kind:     s.Kind,
		OpenedAt: s.OpenedAt,
		Display:  s.State.Display,
		State:    s.State,
	}
}

type stateResponse struct {
	ID      string       `json:"id"`
	Display string       `json:"display"`
	State   keypad.State `json:"state"`
}

type expenseResponse struct {
	ID          string               `json:"id"`
	TripID      string               `json:"trip_id"`
	Date        string               `json:"date"`
	Description string               `json:"description"`
	AmountCents int64                `json:"amount_cents"`
	Amount      string               `json:"amount"`
	Kind        core.TransactionKind `json:"kind"`
	Category    string               `json:"category"`
	PaidBy      string               `json:"paid_by,omitempty"`
	SplitWith   []string             `json:"split_with,omitempty"`
}

func newExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		TripID:      e.TripID,
		Date:        e.Date.String(),
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		Amount:      e.Amount.FormatEuros(),
		Kind:        e.Kind,
		Category:    e.Category,
		PaidBy:      e.PaidBy,
		SplitWith:   e.SplitWith,
	}
}

type commitResponse struct {
	Ref string `json:"ref"`
	// Committed is the keypad amount exactly as parsed, before rounding to
	// cents and applying the sign convention.
	Committed string          `json:"committed"`
	Expense   expenseResponse `json:"expense"`
}

type expenseListResponse struct {
	TripID   string            `json:"trip_id"`
	Count    int               `json:"count"`
	Expenses []expenseResponse `json:"expenses"`
}

type categoryTotal struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
}

type summaryResponse struct {
	TripID       string          `json:"trip_id"`
	Count        int             `json:"count"`
	SpentCents   int64           `json:"spent_cents"`
	Spent        string          `json:"spent"`
	IncomeCents  int64           `json:"income_cents"`
	Income       string          `json:"income"`
	LoansCents   int64           `json:"loans_cents"`
	Loans        string          `json:"loans"`
	BalanceCents int64           `json:"balance_cents"`
	Balance      string          `json:"balance"`
	ByCategory   []categoryTotal `json:"by_category"`
}

func newSummaryResponse(s core.TripSummary) summaryResponse {
	cats := make([]categoryTotal, 0, len(s.ByCategory))
	for _, c := range s.ByCategory {
		cats = append(cats, categoryTotal{Name: c.Name, AmountCents: c.Amount.Cents, Amount: c.Amount.FormatEuros()})
	}
	balance := s.Balance()
	return summaryResponse{
		TripID:       s.TripID,
		Count:        s.Count,
		SpentCents:   s.Spent.Cents,
		Spent:        s.Spent.FormatEuros(),
		IncomeCents:  s.Income.Cents,
		Income:       s.Income.FormatEuros(),
		LoansCents:   s.Loans.Cents,
		Loans:        s.Loans.FormatEuros(),
		BalanceCents: balance.Cents,
		Balance:      balance.FormatEuros(),
		ByCategory:   cats,
	}
}
