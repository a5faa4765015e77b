package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"market-scout/internal/outcome"
)

// addMetricsCommand adds the success-metrics report command.
func addMetricsCommand(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "metrics",
		Short: "Report win rates per signal kind and recent feature usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics, err := app.Tracker.SuccessMetrics(cmd.Context())
			if err != nil {
				return err
			}

			if wantsJSON(cmd) {
				return printJSON(cmd, metrics)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Signal performance:")
			for _, km := range []outcome.KindMetrics{metrics.EarningsPlays, metrics.OversoldBounces, metrics.AlertTriggers} {
				status := "below target"
				if km.WinRate >= km.Target {
					status = "on target"
				}
				fmt.Fprintf(out, "  %-16s %s  target %.0f%% (%s)\n", km.Kind, km.Summary, km.Target, status)
			}

			fmt.Fprintf(out, "\nUsage (last %d days):\n", metrics.Usage.Days)
			features := make([]string, 0, len(metrics.Usage.Totals))
			for feature := range metrics.Usage.Totals {
				features = append(features, feature)
			}
			sort.Strings(features)
			for _, feature := range features {
				fmt.Fprintf(out, "  %-16s %4d total  %.1f/day\n",
					feature, metrics.Usage.Totals[feature], metrics.Usage.DailyAverage[feature])
			}
			return nil
		},
	})
}
