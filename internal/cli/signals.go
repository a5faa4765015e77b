package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"market-scout/internal/models"
	"market-scout/internal/store"
)

// addSignalCommands adds the tracked-signal commands.
func addSignalCommands(rootCmd *cobra.Command, app *App) {
	signalCmd := &cobra.Command{
		Use:   "signals",
		Short: "Inspect and complete tracked signals",
	}

	signalCmd.AddCommand(newSignalListCmd(app))
	signalCmd.AddCommand(newSignalCompleteCmd(app))
	rootCmd.AddCommand(signalCmd)
}

func newSignalListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked signals",
		Example: `  scout signals list
  scout signals list --kind oversold_bounce --pending`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			pending, _ := cmd.Flags().GetBool("pending")
			limit, _ := cmd.Flags().GetInt("limit")

			filter := store.SignalFilter{
				Kind:  models.SignalKind(kind),
				Limit: limit,
			}
			if pending {
				completed := false
				filter.Completed = &completed
			}

			signals, err := app.Tracker.Signals(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if wantsJSON(cmd) {
				return printJSON(cmd, signals)
			}

			if len(signals) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tracked signals.")
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-36s %-16s %-8s %9s %9s %8s\n", "ID", "KIND", "SYMBOL", "ENTRY", "EXIT", "P/L%")
			for _, sig := range signals {
				if sig.Completed {
					fmt.Fprintf(out, "%-36s %-16s %-8s %9.2f %9.2f %7.2f%%\n",
						sig.ID, sig.Kind, sig.Symbol, sig.EntryPrice, sig.ExitPrice, sig.ProfitPercent)
				} else {
					fmt.Fprintf(out, "%-36s %-16s %-8s %9.2f %9s %8s\n",
						sig.ID, sig.Kind, sig.Symbol, sig.EntryPrice, "-", "open")
				}
			}
			return nil
		},
	}

	cmd.Flags().String("kind", "", "filter by kind: earnings_play, oversold_bounce, alert_trigger")
	cmd.Flags().Bool("pending", false, "show only signals without a recorded outcome")
	cmd.Flags().Int("limit", 0, "maximum number of signals to show")
	return cmd
}

func newSignalCompleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Record the realized outcome of a tracked signal",
		Long: `Record the exit price of a tracked signal. With --exit the given price
is used; without it the current market price is fetched. Each signal can be
completed exactly once.`,
		Args: cobra.ExactArgs(1),
		Example: `  scout signals complete 4f6b... --exit 312.40
  scout signals complete 4f6b...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cmd.Flags().Changed("exit") {
				exit, _ := cmd.Flags().GetFloat64("exit")
				err = app.Tracker.CompleteSignal(cmd.Context(), args[0], exit)
			} else {
				err = app.Tracker.CompleteAlertResult(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Completed signal %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().Float64("exit", 0, "realized exit price (default: current market price)")
	return cmd
}
