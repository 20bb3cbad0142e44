// Package commands is the keypad CLI: it runs key sequences through the
// same engine the service uses, for checking amounts from a terminal.
package commands

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"viaggi/internal/keypad"
)

type options struct {
	separator      string
	precision      int
	strictDivision bool
}

func (o *options) engine() (*keypad.Engine, error) {
	sep, size := utf8.DecodeRuneInString(o.separator)
	if size != len(o.separator) || o.separator == "" {
		return nil, fmt.Errorf("separator must be a single character, got %q", o.separator)
	}
	div := keypad.DivideByZeroYieldsZero
	if o.strictDivision {
		div = keypad.DivideByZeroFails
	}
	return keypad.New(keypad.Options{Separator: sep, Precision: o.precision, Division: div})
}

// NewRoot builds the command tree.
func NewRoot() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "keypad",
		Short:         "Evaluate amount keypad sequences",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.separator, "separator", ",", "decimal separator, ',' or '.'")
	root.PersistentFlags().IntVar(&opts.precision, "precision", 2, "decimal places of computed results (-1 for exact)")
	root.PersistentFlags().BoolVar(&opts.strictDivision, "strict-division", false, "reject division by zero instead of yielding 0")

	root.AddCommand(evalCmd(opts), commitCmd(opts), replCmd(opts))
	return root
}

func Execute() error {
	return NewRoot().Execute()
}

// parseKeys accepts keys one per argument or run together, as in "12,5+3=".
func parseKeys(args []string, sep rune) ([]keypad.Token, error) {
	var keys []keypad.Token
	for _, arg := range args {
		if t, err := keypad.ParseToken(arg, sep); err == nil {
			keys = append(keys, t)
			continue
		}
		for _, r := range arg {
			if r == ' ' {
				continue
			}
			t, err := keypad.ParseToken(string(r), sep)
			if err != nil {
				return nil, err
			}
			keys = append(keys, t)
		}
	}
	return keys, nil
}
