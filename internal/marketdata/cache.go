package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"market-scout/internal/models"
	"market-scout/internal/store"
)

// CachedProvider wraps a Provider with a same-day history cache backed by
// the embedded store. Quote, RSI, and calendar calls pass straight through;
// only history is cached since it is the heaviest call and changes once a
// trading day. Cache failures are logged and swallowed so the upstream
// provider remains authoritative.
type CachedProvider struct {
	upstream Provider
	store    store.DataStore
	logger   zerolog.Logger
	now      func() time.Time
}

// NewCachedProvider creates a caching wrapper around upstream.
func NewCachedProvider(upstream Provider, dataStore store.DataStore, logger zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		upstream: upstream,
		store:    dataStore,
		logger:   logger,
		now:      time.Now,
	}
}

// GetQuote delegates to the upstream provider.
func (c *CachedProvider) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return c.upstream.GetQuote(ctx, symbol)
}

// GetRSI delegates to the upstream provider.
func (c *CachedProvider) GetRSI(ctx context.Context, symbol string, period int, interval string) (float64, error) {
	return c.upstream.GetRSI(ctx, symbol, period, interval)
}

// GetEarningsCalendar delegates to the upstream provider.
func (c *CachedProvider) GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]models.EarningsEvent, error) {
	return c.upstream.GetEarningsCalendar(ctx, from, to)
}

// GetHistory serves bars from the cache when they were fetched today,
// otherwise fetches from upstream and refreshes the cache.
func (c *CachedProvider) GetHistory(ctx context.Context, symbol, rng string) ([]models.Bar, error) {
	freshness, err := c.store.GetBarsFreshness(ctx, symbol, rng)
	if err == nil && sameDay(freshness, c.now()) {
		bars, err := c.store.GetBars(ctx, symbol, rng)
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
	}

	bars, err := c.upstream.GetHistory(ctx, symbol, rng)
	if err != nil {
		return nil, err
	}

	if err := c.store.SaveBars(ctx, symbol, rng, bars); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache history")
	}

	return bars, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
