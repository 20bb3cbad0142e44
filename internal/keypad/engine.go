// Package keypad implements the calculator that replaces the amount field of
// the expense form.
//
// The engine is a pure state machine: Process takes the current State and one
// key Token and returns the next State. Pressing a second operator before "="
// folds the pending operation, so 12 + 5 + shows 17 before the third operand
// is typed. Only the final display string, parsed by Commit, leaves the
// engine.
package keypad

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"viaggi/internal/core"
)

var (
	ErrInvalidAmount    = core.ErrInvalidAmount
	ErrZeroAmount       = errors.New("amount must not be zero")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrOverflow         = errors.New("result out of range")
	ErrUnknownToken     = errors.New("unknown key")
	ErrInvalidSeparator = errors.New("decimal separator must be ',' or '.'")
)

// DivisionPolicy selects what dividing by zero does.
type DivisionPolicy int

const (
	// DivideByZeroYieldsZero shows 0, matching the mobile form.
	DivideByZeroYieldsZero DivisionPolicy = iota
	// DivideByZeroFails rejects the key and leaves the state untouched.
	DivideByZeroFails
)

// PrecisionExact disables display rounding of computed results.
const PrecisionExact = -1

// Options configures an Engine.
type Options struct {
	Separator rune
	// Precision is the number of decimal places computed results are rounded
	// to before display. Typed digits are never rounded.
	Precision int
	Division  DivisionPolicy
}

func DefaultOptions() Options {
	return Options{
		Separator: ',',
		Precision: 2,
		Division:  DivideByZeroYieldsZero,
	}
}

// State is the calculator of one entry session.
type State struct {
	Display           string   `json:"display"`
	FirstOperand      *float64 `json:"first_operand,omitempty"`
	Operator          Operator `json:"operator,omitempty"`
	WaitingForOperand bool     `json:"waiting_for_operand"`
}

// NewState returns the empty calculator showing "0".
func NewState() State {
	return State{Display: "0"}
}

// Pending reports whether an operation waits for its second operand.
func (s State) Pending() bool {
	return s.FirstOperand != nil && s.Operator != OpNone
}

type Engine struct {
	opts Options
	sep  string
}

func New(opts Options) (*Engine, error) {
	if opts.Separator == 0 {
		opts.Separator = ','
	}
	if opts.Separator != ',' && opts.Separator != '.' {
		return nil, ErrInvalidSeparator
	}
	if opts.Precision < PrecisionExact {
		opts.Precision = PrecisionExact
	}
	return &Engine{opts: opts, sep: string(opts.Separator)}, nil
}

// MustNew is New for options known to be valid.
func MustNew(opts Options) *Engine {
	e, err := New(opts)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Engine) Options() Options {
	return e.opts
}

// Process applies one key. The returned error is non-nil only under
// DivideByZeroFails, in which case the state is returned unchanged.
// Keys outside the keypad alphabet are ignored.
func (e *Engine) Process(s State, t Token) (State, error) {
	switch {
	case t.IsDigit():
		return e.digit(s, string(t)), nil
	case t == Separator:
		return e.separator(s), nil
	case t == Backspace:
		return backspace(s), nil
	case t == Equals:
		return e.equals(s)
	}
	if op, ok := t.Operator(); ok {
		return e.operator(s, op)
	}
	return s, nil
}

// ProcessAll applies keys in order and stops at the first error, returning
// the state reached before the failing key.
func (e *Engine) ProcessAll(s State, keys ...Token) (State, error) {
	for _, k := range keys {
		next, err := e.Process(s, k)
		if err != nil {
			return s, err
		}
		s = next
	}
	return s, nil
}

// MaxDigits bounds a typed operand. Further digits are ignored so the
// display always parses to a finite float64 without losing digits.
const MaxDigits = 15

func (e *Engine) digit(s State, d string) State {
	switch {
	case s.WaitingForOperand:
		s.Display = d
		s.WaitingForOperand = false
	case s.Display == "0":
		s.Display = d
	case countDigits(s.Display) >= MaxDigits:
	default:
		s.Display += d
	}
	return s
}

func countDigits(display string) int {
	n := 0
	for _, r := range display {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func (e *Engine) separator(s State) State {
	if s.WaitingForOperand {
		s.Display = "0" + e.sep
		s.WaitingForOperand = false
		return s
	}
	if strings.Contains(s.Display, e.sep) {
		return s
	}
	s.Display += e.sep
	return s
}

func backspace(s State) State {
	r := []rune(s.Display)
	if len(r) <= 1 {
		s.Display = "0"
		return s
	}
	next := string(r[:len(r)-1])
	if next == "-" || next == "-0" {
		next = "0"
	}
	s.Display = next
	return s
}

func (e *Engine) operator(s State, op Operator) (State, error) {
	current := e.value(s.Display)
	if s.FirstOperand == nil {
		s.FirstOperand = &current
	} else if s.Operator != OpNone {
		result, err := e.evaluate(*s.FirstOperand, current, s.Operator)
		if err != nil {
			return s, err
		}
		s.FirstOperand = &result
		s.Display = e.Format(result)
	}
	s.Operator = op
	s.WaitingForOperand = true
	return s, nil
}

func (e *Engine) equals(s State) (State, error) {
	if !s.Pending() {
		return s, nil
	}
	result, err := e.evaluate(*s.FirstOperand, e.value(s.Display), s.Operator)
	if err != nil {
		return s, err
	}
	s.Display = e.Format(result)
	s.FirstOperand = nil
	s.Operator = OpNone
	s.WaitingForOperand = false
	return s, nil
}

func (e *Engine) evaluate(a, b float64, op Operator) (float64, error) {
	if e.opts.Division == DivideByZeroFails {
		return EvaluateStrict(a, b, op)
	}
	return Evaluate(a, b, op), nil
}

// value parses a display string. Text that does not parse, which only a
// malformed seed can produce, counts as zero.
func (e *Engine) value(display string) float64 {
	v, err := strconv.ParseFloat(strings.Replace(display, e.sep, ".", 1), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

// Format renders a computed value with the configured separator and
// precision. Trailing zeros are dropped: 20 renders as "20".
func (e *Engine) Format(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "0"
	}
	var text string
	if e.opts.Precision == PrecisionExact {
		text = strconv.FormatFloat(v, 'f', -1, 64)
	} else {
		text = decimal.NewFromFloat(v).Round(int32(e.opts.Precision)).String()
	}
	if text == "-0" {
		text = "0"
	}
	return strings.Replace(text, ".", e.sep, 1)
}

// Seed builds the initial state from an amount being edited. The sign is
// dropped and either separator becomes the configured one. Text that is not a
// plain number, or has more than MaxDigits digits, fails with
// ErrInvalidAmount.
func (e *Engine) Seed(amount string) (State, error) {
	s := strings.TrimSpace(amount)
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return NewState(), nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	if !wellFormed(s) || strings.HasPrefix(s, "-") || countDigits(s) > MaxDigits {
		return State{}, ErrInvalidAmount
	}
	return State{Display: strings.Replace(s, ".", e.sep, 1)}, nil
}

// Commit parses the display for saving. Negative and malformed amounts fail
// with ErrInvalidAmount, amounts beyond core.MaxAmount with ErrOverflow, and
// zero with ErrZeroAmount unless kind allows it.
func (e *Engine) Commit(display string, kind core.TransactionKind) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(display), e.sep, ".")
	if !wellFormed(normalized) {
		return decimal.Zero, ErrInvalidAmount
	}
	normalized = strings.TrimSuffix(normalized, ".")
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.Round(2).GreaterThan(core.MaxAmount) {
		return decimal.Zero, ErrOverflow
	}
	if amount.IsZero() && !kind.AllowsZero() {
		return decimal.Zero, ErrZeroAmount
	}
	return amount, nil
}

// wellFormed accepts an optional minus, digits and at most one point, with
// at least one digit.
func wellFormed(s string) bool {
	s = strings.TrimPrefix(s, "-")
	digits, points := 0, 0
	for _, r := range s {
		switch {
		case r == '.':
			points++
		case r >= '0' && r <= '9':
			digits++
		default:
			return false
		}
	}
	return digits > 0 && points <= 1
}
