package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"market-scout/internal/models"
)

const scanTimeout = 2 * time.Minute

// addScanCommands adds the screening commands.
func addScanCommands(rootCmd *cobra.Command, app *App) {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run screening strategies over the watch-list",
	}

	scanCmd.AddCommand(newScanEarningsCmd(app))
	scanCmd.AddCommand(newScanBouncesCmd(app))
	scanCmd.AddCommand(newScanVolumeCmd(app))
	rootCmd.AddCommand(scanCmd)
}

func newScanEarningsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "earnings",
		Short: "Find earnings-window opportunities",
		Example: `  scout scan earnings
  scout scan earnings --days 14 --track`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
			defer cancel()

			days, _ := cmd.Flags().GetInt("days")
			track, _ := cmd.Flags().GetBool("track")

			app.Tracker.TrackFeatureUsage(ctx, "scan_earnings")

			opportunities, err := app.Screener.FindEarningsOpportunities(ctx, days)
			if err != nil {
				return err
			}

			if track {
				trackOpportunities(ctx, app, opportunities)
			}

			return printOpportunities(cmd, opportunities)
		},
	}

	cmd.Flags().Int("days", 7, "how many days ahead to scan the earnings calendar")
	cmd.Flags().Bool("track", false, "record opportunities for outcome tracking")
	return cmd
}

func newScanBouncesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bounces [symbols...]",
		Short: "Find oversold-bounce setups",
		Example: `  scout scan bounces
  scout scan bounces AAPL MSFT --track`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
			defer cancel()

			track, _ := cmd.Flags().GetBool("track")

			app.Tracker.TrackFeatureUsage(ctx, "scan_bounces")

			opportunities, err := app.Screener.FindOversoldBounces(ctx, args...)
			if err != nil {
				return err
			}

			if track {
				trackOpportunities(ctx, app, opportunities)
			}

			return printOpportunities(cmd, opportunities)
		},
	}

	cmd.Flags().Bool("track", false, "record opportunities for outcome tracking")
	return cmd
}

func newScanVolumeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volume [symbols...]",
		Short: "Find unusual volume events",
		Example: `  scout scan volume
  scout scan volume --threshold 5 AAPL`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
			defer cancel()

			threshold, _ := cmd.Flags().GetFloat64("threshold")

			app.Tracker.TrackFeatureUsage(ctx, "scan_volume")

			opportunities, err := app.Screener.FindUnusualVolume(ctx, threshold, args...)
			if err != nil {
				return err
			}

			return printOpportunities(cmd, opportunities)
		},
	}

	cmd.Flags().Float64("threshold", 3, "minimum multiple of average volume")
	return cmd
}

func trackOpportunities(ctx context.Context, app *App, opportunities []models.Opportunity) {
	for _, opp := range opportunities {
		if _, err := app.Tracker.TrackOpportunity(ctx, opp); err != nil {
			app.Logger.Warn().Err(err).Str("symbol", opp.Symbol).Msg("Failed to track opportunity")
		}
	}
}

func printOpportunities(cmd *cobra.Command, opportunities []models.Opportunity) error {
	if wantsJSON(cmd) {
		return printJSON(cmd, opportunities)
	}

	if len(opportunities) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No opportunities found.")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-8s %-16s %6s %8s %8s %7s\n", "SYMBOL", "STRATEGY", "SCORE", "PRICE", "RSI", "VOLx")
	for _, opp := range opportunities {
		fmt.Fprintf(out, "%-8s %-16s %6d %8.2f %8.1f %7.2f\n",
			opp.Symbol, opp.Strategy, opp.Score, opp.Quote.Price, opp.RSI, opp.VolumeRatio)
	}
	return nil
}
