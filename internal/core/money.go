// Package core holds the trip ledger domain: transaction kinds, money in
// cents and the expense record.
//
// This file converts committed decimal amounts to cents and applies the
// sign convention for each transaction kind.
package core

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MaxAmount is the largest amount in euros that fits in int64 cents.
var MaxAmount = decimal.New(math.MaxInt64, -2)

// MoneyFromDecimal converts an amount to cents, rounding half away from zero
// on the third decimal place.
//
// Examples:
//
//	MoneyFromDecimal(12.34)  -> 1234
//	MoneyFromDecimal(12.345) -> 1235
//	MoneyFromDecimal(12.344) -> 1234
//
// d must not exceed MaxAmount in magnitude.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Mul(hundred).IntPart()}
}

// Signed applies the ledger sign convention to a non-negative amount:
// expenses and loans are stored positive, incomes negated.
func Signed(m Money, kind TransactionKind) Money {
	abs := m.Cents
	if abs < 0 {
		abs = -abs
	}
	if kind == KindIncome {
		return Money{Cents: -abs}
	}
	return Money{Cents: abs}
}

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// Decimal returns the amount in euros as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Euros returns the euro value as a float64 for display purposes.
// Use cents for calculations.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// FormatEuros formats the amount with a comma separator, e.g. "€12,34".
func (m Money) FormatEuros() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "," + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-€" + s
	}
	return "€" + s
}
