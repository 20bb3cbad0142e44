package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"viaggi/internal/core"
	"viaggi/internal/keypad"
)

func replCmd(opts *options) *cobra.Command {
	var kind string
	return &cobra.Command{
		Use:   "repl",
		Short: "Read keys line by line and show the display",
		Long: `Each input line is a run of keys. "clear" resets the keypad, "commit"
validates the display for saving and "quit" exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			k, err := core.ParseKind(kind)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			state := keypad.NewState()
			fmt.Fprintln(out, state.Display)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "quit", "exit":
					return nil
				case "clear":
					state = keypad.NewState()
				case "commit":
					amount, err := engine.Commit(state.Display, k)
					if err != nil {
						fmt.Fprintf(out, "rejected: %v\n", err)
						continue
					}
					money := core.MoneyFromDecimal(amount)
					if money.Cents == 0 && !k.AllowsZero() {
						fmt.Fprintf(out, "rejected: %v\n", keypad.ErrZeroAmount)
						continue
					}
					fmt.Fprintf(out, "saved: %s\n", core.Signed(money, k).FormatEuros())
					state = keypad.NewState()
				default:
					keys, err := parseKeys(strings.Fields(line), engine.Options().Separator)
					if err != nil {
						fmt.Fprintf(out, "error: %v\n", err)
						continue
					}
					next, err := engine.ProcessAll(state, keys...)
					if err != nil {
						fmt.Fprintf(out, "error: %v\n", err)
					}
					state = next
				}
				fmt.Fprintln(out, state.Display)
			}
			return scanner.Err()
		},
	}
}
