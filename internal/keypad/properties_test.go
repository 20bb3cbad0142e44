package keypad

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"viaggi/internal/core"
)

var alphabet = []Token{
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	Separator, Backspace, Equals,
	Token(OpAdd), Token(OpSub), Token(OpMul), Token(OpDiv),
}

func drawKeys(t *rapid.T, label string) []Token {
	return rapid.SliceOfN(rapid.SampledFrom(alphabet), 0, 40).Draw(t, label)
}

func TestProperty_DigitsSuppressLeadingZeros(t *testing.T) {
	e := MustNew(DefaultOptions())
	rapid.Check(t, func(t *rapid.T) {
		digits := rapid.SliceOfN(rapid.IntRange(0, 9), 1, 20).Draw(t, "digits")

		var typed strings.Builder
		s := NewState()
		for _, d := range digits {
			typed.WriteByte(byte('0' + d))
			s, _ = e.Process(s, Digit(d))
		}

		want := strings.TrimLeft(typed.String(), "0")
		if want == "" {
			want = "0"
		}
		if len(want) > MaxDigits {
			want = want[:MaxDigits]
		}
		if s.Display != want {
			t.Fatalf("display = %q, want %q", s.Display, want)
		}
	})
}

func TestProperty_SeparatorIdempotent(t *testing.T) {
	e := MustNew(DefaultOptions())
	rapid.Check(t, func(t *rapid.T) {
		s, _ := e.ProcessAll(NewState(), drawKeys(t, "keys")...)
		once, _ := e.Process(s, Separator)
		twice, _ := e.Process(once, Separator)
		if once.Display != twice.Display {
			t.Fatalf("separator not idempotent: %q then %q", once.Display, twice.Display)
		}
	})
}

func TestProperty_StateInvariants(t *testing.T) {
	e := MustNew(DefaultOptions())
	rapid.Check(t, func(t *rapid.T) {
		s := NewState()
		for i, k := range drawKeys(t, "keys") {
			var err error
			s, err = e.Process(s, k)
			if err != nil {
				t.Fatalf("key %d (%q): unexpected error %v", i, k, err)
			}
			if s.Display == "" {
				t.Fatalf("key %d (%q): empty display", i, k)
			}
			if strings.Count(s.Display, ",") > 1 {
				t.Fatalf("key %d (%q): display %q has more than one separator", i, k, s.Display)
			}
			if (s.FirstOperand == nil) != (s.Operator == OpNone) {
				t.Fatalf("key %d (%q): operand and operator out of step: %+v", i, k, s)
			}
			if v, err := strconv.ParseFloat(strings.Replace(s.Display, ",", ".", 1), 64); err != nil || math.IsInf(v, 0) {
				t.Fatalf("key %d (%q): display %q does not parse to a finite number", i, k, s.Display)
			}
			_, err = e.Commit(s.Display, core.KindIncome)
			if err != nil && !errors.Is(err, ErrOverflow) && !strings.HasPrefix(s.Display, "-") {
				t.Fatalf("key %d (%q): display %q does not commit: %v", i, k, s.Display, err)
			}
		}
	})
}

func TestProperty_BackspaceNeverEmpties(t *testing.T) {
	e := MustNew(DefaultOptions())
	rapid.Check(t, func(t *rapid.T) {
		s, _ := e.ProcessAll(NewState(), drawKeys(t, "keys")...)
		n := rapid.IntRange(1, 50).Draw(t, "backspaces")
		for i := 0; i < n; i++ {
			s, _ = e.Process(s, Backspace)
		}
		if s.Display == "" {
			t.Fatal("display emptied by backspace")
		}
	})
}

func TestProperty_SeedCommitRoundTrip(t *testing.T) {
	e := MustNew(DefaultOptions())
	rapid.Check(t, func(t *rapid.T) {
		amount := rapid.StringMatching(`[0-9]{1,9}(\.[0-9]{1,4})?`).Draw(t, "amount")

		seeded, err := e.Seed(amount)
		if err != nil {
			t.Fatalf("Seed(%q): %v", amount, err)
		}
		got, err := e.Commit(seeded.Display, core.KindIncome)
		if err != nil {
			t.Fatalf("Commit(Seed(%q)): %v", amount, err)
		}
		if want := decimal.RequireFromString(amount); !got.Equal(want) {
			t.Fatalf("round trip of %q gave %s", amount, got)
		}
	})
}
