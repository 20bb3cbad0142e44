package keypad

import (
	"fmt"
	"strings"
)

// Token is one key of the amount keypad.
type Token string

// Operator is a pending arithmetic operation. The zero value means none.
type Operator string

const (
	Separator Token = ","
	Backspace Token = "backspace"
	Equals    Token = "="
)

const (
	OpNone Operator = ""
	OpAdd  Operator = "+"
	OpSub  Operator = "-"
	OpMul  Operator = "*"
	OpDiv  Operator = "÷"
)

// Digit returns the token for d, which must be in 0..9.
func Digit(d int) Token {
	return Token(rune('0' + d))
}

// Key returns the token pressing op produces.
func (op Operator) Key() Token {
	return Token(op)
}

// IsDigit reports whether t is one of 0..9.
func (t Token) IsDigit() bool {
	return len(t) == 1 && t[0] >= '0' && t[0] <= '9'
}

// Operator returns the arithmetic operator t stands for.
func (t Token) Operator() (Operator, bool) {
	switch op := Operator(t); op {
	case OpAdd, OpSub, OpMul, OpDiv:
		return op, true
	default:
		return OpNone, false
	}
}

// Class groups tokens for logs and metrics.
func (t Token) Class() string {
	switch {
	case t.IsDigit():
		return "digit"
	case t == Separator:
		return "separator"
	case t == Backspace:
		return "backspace"
	case t == Equals:
		return "equals"
	}
	if _, ok := t.Operator(); ok {
		return "operator"
	}
	return "unknown"
}

var aliases = map[string]Token{
	"/":     Token(OpDiv),
	":":     Token(OpDiv),
	"x":     Token(OpMul),
	"×":     Token(OpMul),
	"−":     Token(OpSub),
	"⌫":     Backspace,
	"back":  Backspace,
	"del":   Backspace,
	"bs":    Backspace,
	"comma": Separator,
	"sep":   Separator,
}

// ParseToken maps the text a keypad button sends to a Token. sep is the
// configured decimal separator; "," is always accepted as well.
func ParseToken(s string, sep rune) (Token, error) {
	s = strings.TrimSpace(s)
	if s == string(sep) {
		return Separator, nil
	}
	t := Token(s)
	if t.IsDigit() || t == Separator || t == Backspace || t == Equals {
		return t, nil
	}
	if _, ok := t.Operator(); ok {
		return t, nil
	}
	if alias, ok := aliases[strings.ToLower(s)]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownToken, s)
}

// ParseTokens parses a sequence of keys, failing on the first unknown one.
func ParseTokens(keys []string, sep rune) ([]Token, error) {
	out := make([]Token, 0, len(keys))
	for _, k := range keys {
		t, err := ParseToken(k, sep)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
