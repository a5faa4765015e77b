// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"market-scout/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Bars cache
	SaveBars(ctx context.Context, symbol, rng string, bars []models.Bar) error
	GetBars(ctx context.Context, symbol, rng string) ([]models.Bar, error)
	GetBarsFreshness(ctx context.Context, symbol, rng string) (time.Time, error)

	// Alert rules
	SaveAlert(ctx context.Context, rule *models.AlertRule) error
	GetAlert(ctx context.Context, id string) (*models.AlertRule, error)
	GetAlerts(ctx context.Context) ([]models.AlertRule, error)
	GetPendingAlerts(ctx context.Context, alertType models.AlertType) ([]models.AlertRule, error)
	TriggerAlert(ctx context.Context, id string, at time.Time) error
	DeleteAlert(ctx context.Context, id string) error

	// Tracked signals
	SaveSignal(ctx context.Context, sig *models.TrackedSignal) error
	GetSignal(ctx context.Context, id string) (*models.TrackedSignal, error)
	GetSignals(ctx context.Context, filter SignalFilter) ([]models.TrackedSignal, error)
	CompleteSignal(ctx context.Context, id string, exitPrice, profit, profitPercent float64, at time.Time) error

	// Daily usage
	IncrementUsage(ctx context.Context, date, feature string) error
	GetUsage(ctx context.Context, lastN int) ([]models.DailyUsage, error)

	// Watchlist
	AddToWatchlist(ctx context.Context, symbol string) error
	RemoveFromWatchlist(ctx context.Context, symbol string) error
	GetWatchlist(ctx context.Context) ([]string, error)

	// Lifecycle
	Close() error
}

// SignalFilter represents filters for querying tracked signals.
type SignalFilter struct {
	Kind      models.SignalKind
	Symbol    string
	Completed *bool
	Limit     int
}
