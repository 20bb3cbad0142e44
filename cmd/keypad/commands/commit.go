package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"viaggi/internal/core"
	"viaggi/internal/keypad"
)

func commitCmd(opts *options) *cobra.Command {
	var kind, seed string
	cmd := &cobra.Command{
		Use:   "commit [KEYS...]",
		Short: "Press KEYS and print the amount that would be saved",
		Long: `Press KEYS on a fresh or seeded keypad, then validate the display as the
service does on save and print the amount, its cents and the signed ledger
value for the kind.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			k, err := core.ParseKind(kind)
			if err != nil {
				return err
			}
			keys, err := parseKeys(args, engine.Options().Separator)
			if err != nil {
				return err
			}

			state := keypad.NewState()
			if seed != "" {
				if state, err = engine.Seed(seed); err != nil {
					return fmt.Errorf("seed %q: %w", seed, err)
				}
			}
			if state, err = engine.ProcessAll(state, keys...); err != nil {
				return err
			}

			amount, err := engine.Commit(state.Display, k)
			if err != nil {
				return fmt.Errorf("display %q: %w", state.Display, err)
			}
			money := core.MoneyFromDecimal(amount)
			if money.Cents == 0 && !k.AllowsZero() {
				return fmt.Errorf("display %q: %w", state.Display, keypad.ErrZeroAmount)
			}
			signed := core.Signed(money, k)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "amount:  %s\n", amount.String())
			fmt.Fprintf(out, "cents:   %d\n", money.Cents)
			fmt.Fprintf(out, "ledger:  %s (%s)\n", signed.FormatEuros(), k)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "expense", "transaction kind: expense, income or loan")
	cmd.Flags().StringVar(&seed, "seed", "", "amount being edited, e.g. 42.50")
	return cmd
}
