// Package cli provides the command-line interface for market-scout.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"market-scout/internal/alerts"
	"market-scout/internal/config"
	"market-scout/internal/logging"
	"market-scout/internal/marketdata"
	"market-scout/internal/outcome"
	"market-scout/internal/screener"
	"market-scout/internal/store"
)

// Version information
const Version = "0.1.0"

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.DataStore
	Provider marketdata.Provider
	Screener *screener.Screener
	Alerts   *alerts.Engine
	Tracker  *outcome.Tracker
}

// NewApp wires the engines from configuration.
func NewApp(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dataStore, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	app.Store = dataStore

	httpProvider := marketdata.NewHTTPProvider(cfg.Provider, logger)
	app.Provider = marketdata.NewCachedProvider(httpProvider, dataStore, logger)

	app.Screener = screener.New(app.Provider, dataStore, logger, screener.Options{
		Watchlist:     cfg.Screener.Watchlist,
		MaxCandidates: cfg.Screener.MaxCandidates,
		FallbackSize:  cfg.Screener.FallbackSize,
		Concurrency:   cfg.Screener.Concurrency,
	})

	app.Alerts = alerts.New(app.Provider, dataStore, logger,
		alerts.WithEarningsWindow(time.Duration(cfg.Alerts.EarningsWindowHours)*time.Hour))

	app.Tracker = outcome.New(dataStore, app.Provider, logger)

	// Fired alerts flow into the tracker for later reconciliation.
	app.Alerts.SetOnTrigger(func(t alerts.Trigger) {
		if _, err := app.Tracker.TrackAlertTrigger(context.Background(), t); err != nil {
			logger.Warn().Err(err).Str("alert_id", t.Rule.ID).Msg("Failed to track alert trigger")
		}
	})

	return app, nil
}

// Close releases application resources.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) (*cobra.Command, error) {
	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, err
	}

	rootCmd := &cobra.Command{
		Use:   "scout",
		Short: "market-scout - signal screening, alerting, and outcome tracking",
		Long: `market-scout screens a watch-list for trading signals (earnings setups,
oversold bounces, unusual volume), watches user-defined alert rules against
live market data, and tracks the realized outcome of every signal to compute
historical win rates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/market-scout)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	addScanCommands(rootCmd, app)
	addAlertCommands(rootCmd, app)
	addSignalCommands(rootCmd, app)
	addMetricsCommand(rootCmd, app)
	addWatchlistCommands(rootCmd, app)

	return rootCmd, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "market-scout %s\n", Version)
		},
	}
}

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func wantsJSON(cmd *cobra.Command) bool {
	jsonOut, _ := cmd.Flags().GetBool("json")
	return jsonOut
}

// Execute is the main entrypoint for the CLI.
func Execute() {
	configDir := ""
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			configDir = os.Args[i+1]
		}
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})

	rootCmd, err := NewRootCmd(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
