package keypad

import "math"

// Evaluate applies op to a and b. It never fails: dividing by zero and
// results out of float64 range yield 0, and an unknown operator returns b.
func Evaluate(a, b float64, op Operator) float64 {
	r, err := EvaluateStrict(a, b, op)
	if err != nil {
		return 0
	}
	return r
}

// EvaluateStrict is Evaluate reporting ErrDivisionByZero and ErrOverflow
// instead of yielding 0.
func EvaluateStrict(a, b float64, op Operator) (float64, error) {
	var r float64
	switch op {
	case OpAdd:
		r = a + b
	case OpSub:
		r = a - b
	case OpMul:
		r = a * b
	case OpDiv:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		r = a / b
	default:
		return b, nil
	}
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return 0, ErrOverflow
	}
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return r, nil
}
