package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// addWatchlistCommands adds the watch-list maintenance commands.
func addWatchlistCommands(rootCmd *cobra.Command, app *App) {
	watchCmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Manage the screening watch-list",
	}

	watchCmd.AddCommand(&cobra.Command{
		Use:   "add <symbols...>",
		Short: "Add symbols to the watch-list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, symbol := range args {
				if err := app.Store.AddToWatchlist(cmd.Context(), strings.ToUpper(symbol)); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d symbol(s)\n", len(args))
			return nil
		},
	})

	watchCmd.AddCommand(&cobra.Command{
		Use:   "rm <symbols...>",
		Short: "Remove symbols from the watch-list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, symbol := range args {
				if err := app.Store.RemoveFromWatchlist(cmd.Context(), strings.ToUpper(symbol)); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d symbol(s)\n", len(args))
			return nil
		},
	})

	watchCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the watch-list",
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols, err := app.Store.GetWatchlist(cmd.Context())
			if err != nil {
				return err
			}

			if wantsJSON(cmd) {
				return printJSON(cmd, symbols)
			}

			if len(symbols) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Watch-list is empty (screening falls back to configured symbols).")
				return nil
			}
			for _, symbol := range symbols {
				fmt.Fprintln(cmd.OutOrStdout(), symbol)
			}
			return nil
		},
	})

	rootCmd.AddCommand(watchCmd)
}
