package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	KindExpense TransactionKind = "expense"
	KindIncome  TransactionKind = "income"
	KindLoan    TransactionKind = "loan"
)

type (
	// TransactionKind decides the sign convention of a committed amount.
	TransactionKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID          string
		TripID      string
		Date        Date
		Description string
		Amount      Money // signed: incomes are negative
		Kind        TransactionKind
		Category    string
		PaidBy      string
		SplitWith   []string
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrEmptyTrip        = errors.New("empty trip id")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrDescriptionLong  = errors.New("description too long")
	ErrInvalidDate      = errors.New("invalid date")
)

const maxDescriptionLen = 200

// ParseKind accepts the kind names case-insensitively; empty means expense.
func ParseKind(s string) (TransactionKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindExpense, nil
	}
	k := TransactionKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

func (k TransactionKind) Valid() bool {
	switch k {
	case KindExpense, KindIncome, KindLoan:
		return true
	default:
		return false
	}
}

func (k TransactionKind) String() string {
	return string(k)
}

// AllowsZero reports whether a zero amount may be committed for this kind.
// Income rows are used as placeholders in the trip form.
func (k TransactionKind) AllowsZero() bool {
	return k == KindIncome
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current UTC date with the clock stripped.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q: want YYYY-MM-DD", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// Validate checks the amount against the sign convention of kind.
func (m Money) Validate(kind TransactionKind) error {
	switch kind {
	case KindIncome:
		if m.Cents > 0 {
			return ErrInvalidAmount
		}
	case KindExpense, KindLoan:
		if m.Cents <= 0 {
			return ErrInvalidAmount
		}
	default:
		return ErrInvalidKind
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.TripID) == "" {
		return ErrEmptyTrip
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Kind.Valid() {
		return ErrInvalidKind
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > maxDescriptionLen {
		return fmt.Errorf("%w (max %d characters)", ErrDescriptionLong, maxDescriptionLen)
	}
	if err := e.Amount.Validate(e.Kind); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}
