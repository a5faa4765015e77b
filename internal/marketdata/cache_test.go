package marketdata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"market-scout/internal/models"
	"market-scout/internal/store"
)

// countingProvider records history fetches so cache hits are observable.
type countingProvider struct {
	historyCalls int
	bars         []models.Bar
}

func (c *countingProvider) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return &models.Quote{Symbol: symbol, Price: 100}, nil
}

func (c *countingProvider) GetRSI(ctx context.Context, symbol string, period int, interval string) (float64, error) {
	return 50, nil
}

func (c *countingProvider) GetHistory(ctx context.Context, symbol, rng string) ([]models.Bar, error) {
	c.historyCalls++
	return c.bars, nil
}

func (c *countingProvider) GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]models.EarningsEvent, error) {
	return nil, nil
}

func newCacheFixture(t *testing.T) (*CachedProvider, *countingProvider) {
	t.Helper()

	dataStore, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "cache_test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { dataStore.Close() })

	upstream := &countingProvider{
		bars: []models.Bar{
			{Date: time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC), Open: 100, High: 104, Low: 99, Close: 103, Volume: 1_200_000},
			{Date: time.Date(2026, 2, 26, 0, 0, 0, 0, time.UTC), Open: 98, High: 101, Low: 97, Close: 100, Volume: 900_000},
		},
	}

	return NewCachedProvider(upstream, dataStore, zerolog.Nop()), upstream
}

func TestCachedHistoryServedSameDay(t *testing.T) {
	cached, upstream := newCacheFixture(t)
	ctx := context.Background()

	first, err := cached.GetHistory(ctx, "AAPL", RangeOneMonth)
	if err != nil {
		t.Fatalf("first GetHistory() error = %v", err)
	}
	second, err := cached.GetHistory(ctx, "AAPL", RangeOneMonth)
	if err != nil {
		t.Fatalf("second GetHistory() error = %v", err)
	}

	if upstream.historyCalls != 1 {
		t.Errorf("upstream fetches = %d, want 1", upstream.historyCalls)
	}
	if len(first) != len(second) || len(second) != 2 {
		t.Errorf("bar counts: first=%d second=%d, want 2", len(first), len(second))
	}
	if second[0].Close != 103 {
		t.Errorf("cached Close = %v, want 103", second[0].Close)
	}
}

func TestCachedHistoryRefetchesNextDay(t *testing.T) {
	cached, upstream := newCacheFixture(t)
	ctx := context.Background()

	if _, err := cached.GetHistory(ctx, "AAPL", RangeOneMonth); err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}

	// Move the clock past midnight; the cached bars are now stale.
	cached.now = func() time.Time { return time.Now().AddDate(0, 0, 1) }

	if _, err := cached.GetHistory(ctx, "AAPL", RangeOneMonth); err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}

	if upstream.historyCalls != 2 {
		t.Errorf("upstream fetches = %d, want 2", upstream.historyCalls)
	}
}

func TestCacheIsPerRange(t *testing.T) {
	cached, upstream := newCacheFixture(t)
	ctx := context.Background()

	if _, err := cached.GetHistory(ctx, "AAPL", "1mo"); err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if _, err := cached.GetHistory(ctx, "AAPL", "3mo"); err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}

	if upstream.historyCalls != 2 {
		t.Errorf("upstream fetches = %d, want 2 (one per range)", upstream.historyCalls)
	}
}
