package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"market-scout/internal/alerts"
	"market-scout/internal/models"
)

// addAlertCommands adds the alert rule commands.
func addAlertCommands(rootCmd *cobra.Command, app *App) {
	alertCmd := &cobra.Command{
		Use:   "alert",
		Short: "Manage and check alert rules",
	}

	alertCmd.AddCommand(newAlertAddCmd(app))
	alertCmd.AddCommand(newAlertListCmd(app))
	alertCmd.AddCommand(newAlertRemoveCmd(app))
	alertCmd.AddCommand(newAlertCheckCmd(app))
	rootCmd.AddCommand(alertCmd)
}

func newAlertAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <symbol>",
		Short: "Create an alert rule",
		Args:  cobra.ExactArgs(1),
		Example: `  scout alert add TSLA --type price --condition above --target 300
  scout alert add AAPL --type rsi --condition oversold
  scout alert add NVDA --type volume --threshold 3
  scout alert add MSFT --type earnings`,
		RunE: func(cmd *cobra.Command, args []string) error {
			alertType, _ := cmd.Flags().GetString("type")
			condition, _ := cmd.Flags().GetString("condition")
			target, _ := cmd.Flags().GetFloat64("target")
			threshold, _ := cmd.Flags().GetFloat64("threshold")

			app.Tracker.TrackFeatureUsage(cmd.Context(), "alert_add")

			rule, err := app.Alerts.Create(cmd.Context(), alerts.CreateSpec{
				Type:        models.AlertType(alertType),
				Symbol:      args[0],
				Condition:   condition,
				TargetPrice: target,
				Threshold:   threshold,
			})
			if err != nil {
				return err
			}

			if wantsJSON(cmd) {
				return printJSON(cmd, rule)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created alert %s: %s %s %s\n", rule.ID, rule.Symbol, rule.Type, rule.Condition)
			return nil
		},
	}

	cmd.Flags().String("type", "price", "alert type: price, volume, rsi, earnings")
	cmd.Flags().String("condition", "", "type-specific condition (above, below, change_percent, oversold, overbought)")
	cmd.Flags().Float64("target", 0, "target price for above/below conditions")
	cmd.Flags().Float64("threshold", 0, "threshold for change_percent/volume conditions")
	return cmd
}

func newAlertListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all alert rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := app.Alerts.List(cmd.Context())
			if err != nil {
				return err
			}

			if wantsJSON(cmd) {
				return printJSON(cmd, rules)
			}

			if len(rules) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No alerts configured.")
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-36s %-8s %-8s %-15s %-10s\n", "ID", "SYMBOL", "TYPE", "CONDITION", "STATE")
			for _, rule := range rules {
				state := "pending"
				if rule.Triggered {
					state = "triggered"
				}
				fmt.Fprintf(out, "%-36s %-8s %-8s %-15s %-10s\n", rule.ID, rule.Symbol, rule.Type, rule.Condition, state)
			}
			return nil
		},
	}
}

func newAlertRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an alert rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Alerts.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted alert %s\n", args[0])
			return nil
		},
	}
}

func newAlertCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Evaluate all pending alert rules against live market data",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
			defer cancel()

			app.Tracker.TrackFeatureUsage(ctx, "alert_check")

			summary, err := app.Alerts.CheckAll(ctx)
			if err != nil {
				return err
			}

			if wantsJSON(cmd) {
				return printJSON(cmd, summary)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Triggered: price=%d volume=%d rsi=%d earnings=%d (total %d)\n",
				len(summary.Price), len(summary.Volume), len(summary.RSI), len(summary.Earnings), summary.Total())

			for _, group := range [][]alerts.Trigger{summary.Price, summary.Volume, summary.RSI, summary.Earnings} {
				for _, t := range group {
					fmt.Fprintf(out, "  %s %s %s observed=%.2f\n", t.Rule.Symbol, t.Rule.Type, t.Rule.Condition, t.Observed)
				}
			}
			return nil
		},
	}
}
