package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"viaggi/internal/keypad"
)

func evalCmd(opts *options) *cobra.Command {
	var trace bool
	cmd := &cobra.Command{
		Use:   "eval KEYS...",
		Short: "Print the display after pressing KEYS",
		Example: `  keypad eval 12,5+3=
  keypad eval 1 2 backspace 4 =`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			keys, err := parseKeys(args, engine.Options().Separator)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			state := keypad.NewState()
			for _, k := range keys {
				state, err = engine.Process(state, k)
				if err != nil {
					return fmt.Errorf("key %q: %w", k, err)
				}
				if trace {
					fmt.Fprintf(out, "%-9s %s\n", k, state.Display)
				}
			}
			if !trace {
				fmt.Fprintln(out, state.Display)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "print the display after every key")
	return cmd
}
