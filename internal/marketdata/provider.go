// Package marketdata provides clients for the external market data gateway.
package marketdata

import (
	"context"
	"time"

	"market-scout/internal/models"
)

// Provider defines the market data operations the engines depend on.
// History responses are ordered most-recent-first.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetRSI(ctx context.Context, symbol string, period int, interval string) (float64, error)
	GetHistory(ctx context.Context, symbol, rng string) ([]models.Bar, error)
	GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]models.EarningsEvent, error)
}

// Common interval and range values understood by the gateway.
const (
	IntervalDaily = "daily"
	RangeOneMonth = "1mo"
)
