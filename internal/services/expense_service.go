package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"viaggi/internal/amqp"
	"viaggi/internal/core"
	"viaggi/internal/keypad"
	"viaggi/internal/ledger"
	"viaggi/internal/log"
	"viaggi/internal/session"
)

// Publisher announces committed expenses. *amqp.Client implements it.
type Publisher interface {
	PublishExpenseCommitted(ctx context.Context, msg *amqp.ExpenseCommittedMessage) error
}

// CommitObserver is told the outcome of every commit attempt.
type CommitObserver interface {
	Committed(outcome string)
}

// AmountObserver is implemented by CommitObservers that also want the cents
// of every saved expense.
type AmountObserver interface {
	CommittedAmount(ctx context.Context, kind string, cents int64)
}

// Commit outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// CommitRequest carries the form fields saved along with the keypad amount.
// A zero Date means today.
type CommitRequest struct {
	SessionID   string
	Date        core.Date
	Description string
	Category    string
	PaidBy      string
	SplitWith   []string
}

type CommitResult struct {
	Ref     string
	Amount  decimal.Decimal
	Expense core.Expense
}

// ExpenseService turns an entry session into a ledger row.
type ExpenseService struct {
	sessions  *session.Store
	writer    ledger.ExpenseWriter
	publisher Publisher
	observer  CommitObserver
	logger    *log.Logger
	today     func() core.Date
}

// NewExpenseService wires the commit path. publisher may be nil, in which
// case nothing is announced.
func NewExpenseService(sessions *session.Store, writer ledger.ExpenseWriter, publisher Publisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		sessions:  sessions,
		writer:    writer,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentExpense),
		today:     core.Today,
	}
}

func (s *ExpenseService) SetObserver(o CommitObserver) {
	s.observer = o
}

// Commit validates the session's display, saves the expense and closes the
// session. Amount errors from the keypad are returned unwrapped so callers
// can show them as they are; the session stays open for correction.
// Publishing is best effort once the row is saved.
func (s *ExpenseService) Commit(ctx context.Context, req CommitRequest) (CommitResult, error) {
	var res CommitResult
	err := s.sessions.Complete(ctx, req.SessionID, func(snap session.Snapshot) error {
		amount, err := s.sessions.Engine().Commit(snap.State.Display, snap.Kind)
		if err != nil {
			return err
		}

		money := core.MoneyFromDecimal(amount)
		if money.Cents == 0 && !snap.Kind.AllowsZero() {
			return keypad.ErrZeroAmount
		}

		date := req.Date
		if date.IsZero() {
			date = s.today()
		}
		e := core.Expense{
			TripID:      snap.TripID,
			Date:        date,
			Description: strings.TrimSpace(req.Description),
			Amount:      core.Signed(money, snap.Kind),
			Kind:        snap.Kind,
			Category:    strings.TrimSpace(req.Category),
			PaidBy:      strings.TrimSpace(req.PaidBy),
			SplitWith:   req.SplitWith,
		}
		if err := e.Validate(); err != nil {
			return err
		}

		ref, err := s.writer.Append(ctx, e)
		if err != nil {
			return fmt.Errorf("save expense: %w", err)
		}
		e.ID = ref
		res = CommitResult{Ref: ref, Amount: amount, Expense: e}
		return nil
	})
	s.observe(err)
	if err != nil {
		return CommitResult{}, err
	}

	logger := log.FromContext(ctx).WithComponent(log.ComponentExpense)
	logger.InfoContext(ctx, "Expense committed",
		log.NewFields().
			WithExpense(res.Expense.TripID, string(res.Expense.Kind), res.Expense.Amount.Cents, res.Expense.Category).
			WithOperation(log.OpCommit).
			ToSlice()...)

	if ao, ok := s.observer.(AmountObserver); ok {
		ao.CommittedAmount(ctx, string(res.Expense.Kind), res.Expense.Amount.Abs().Cents)
	}
	s.publish(ctx, res)
	return res, nil
}

func (s *ExpenseService) publish(ctx context.Context, res CommitResult) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewExpenseCommittedMessage(res.Ref, res.Expense)
	if err := s.publisher.PublishExpenseCommitted(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense committed message",
			log.FieldRef, res.Ref, log.FieldError, err)
	}
}

func (s *ExpenseService) observe(err error) {
	if s.observer == nil {
		return
	}
	s.observer.Committed(Outcome(err))
}

// Outcome classifies a commit error for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case IsRejection(err):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// IsRejection reports whether err is the user's to fix rather than a fault.
func IsRejection(err error) bool {
	for _, target := range []error{
		keypad.ErrInvalidAmount,
		keypad.ErrZeroAmount,
		keypad.ErrOverflow,
		session.ErrSessionNotFound,
		core.ErrEmptyTrip,
		core.ErrEmptyDescription,
		core.ErrEmptyCategory,
		core.ErrDescriptionLong,
		core.ErrInvalidDate,
		core.ErrInvalidKind,
		core.ErrInvalidDay,
		core.ErrInvalidMonth,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
