// Package outcome implements the outcome tracker: it records generated
// signals and triggered alerts, reconciles them against realized exit
// prices, and aggregates win-rate and usage statistics.
package outcome

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"market-scout/internal/alerts"
	apperrors "market-scout/internal/errors"
	"market-scout/internal/marketdata"
	"market-scout/internal/models"
	"market-scout/internal/store"
)

// Tracker owns the tracked-signal records and usage counters. Mutations are
// serialized by an internal mutex; the embedded store makes each record
// upsert atomic.
type Tracker struct {
	store    store.DataStore
	provider marketdata.Provider
	logger   zerolog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// New creates a Tracker. The provider is only needed for
// CompleteAlertResult, which re-fetches the current quote.
func New(dataStore store.DataStore, provider marketdata.Provider, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:    dataStore,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// TrackSignal records a new pending signal and returns it.
func (t *Tracker) TrackSignal(ctx context.Context, kind models.SignalKind, symbol string, entryPrice float64, metadata map[string]string) (*models.TrackedSignal, error) {
	if symbol == "" {
		return nil, apperrors.NewValidationError("symbol", symbol, "symbol is required")
	}

	sig := &models.TrackedSignal{
		ID:         uuid.NewString(),
		Kind:       kind,
		Symbol:     symbol,
		EntryPrice: entryPrice,
		EntryAt:    t.now(),
		Metadata:   metadata,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.SaveSignal(ctx, sig); err != nil {
		return nil, apperrors.Wrap(err, "persisting tracked signal")
	}

	t.logger.Debug().
		Str("signal_id", sig.ID).
		Str("kind", string(kind)).
		Str("symbol", symbol).
		Float64("entry_price", entryPrice).
		Msg("Signal tracked")

	return sig, nil
}

// TrackOpportunity records a screening opportunity for later reconciliation.
// Unusual-volume events carry no directional thesis and are not tracked.
func (t *Tracker) TrackOpportunity(ctx context.Context, opp models.Opportunity) (*models.TrackedSignal, error) {
	var kind models.SignalKind
	switch opp.Strategy {
	case models.StrategyEarnings:
		kind = models.KindEarningsPlay
	case models.StrategyOversoldBounce:
		kind = models.KindOversoldBounce
	default:
		return nil, nil
	}

	metadata := map[string]string{
		"score": strconv.Itoa(opp.Score),
		"rsi":   strconv.FormatFloat(opp.RSI, 'f', 2, 64),
	}
	if opp.Trend != "" {
		metadata["trend"] = string(opp.Trend)
	}

	return t.TrackSignal(ctx, kind, opp.Symbol, opp.Quote.Price, metadata)
}

// TrackAlertTrigger records a fired alert rule with the price observed at
// trigger time.
func (t *Tracker) TrackAlertTrigger(ctx context.Context, trigger alerts.Trigger) (*models.TrackedSignal, error) {
	metadata := map[string]string{
		"alert_id":  trigger.Rule.ID,
		"type":      string(trigger.Rule.Type),
		"condition": trigger.Rule.Condition,
	}
	return t.TrackSignal(ctx, models.KindAlertTrigger, trigger.Rule.Symbol, trigger.Observed, metadata)
}

// CompleteSignal reconciles a pending signal against its realized exit
// price, setting the outcome fields exactly once. Completing an
// already-completed signal returns ErrAlreadyCompleted and leaves the
// record untouched.
func (t *Tracker) CompleteSignal(ctx context.Context, id string, exitPrice float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	sig, err := t.store.GetSignal(ctx, id)
	if err != nil {
		return err
	}
	if sig == nil {
		return apperrors.ErrDataNotFound
	}
	if sig.Completed {
		return apperrors.ErrAlreadyCompleted
	}

	profit := exitPrice - sig.EntryPrice
	var profitPercent float64
	if sig.EntryPrice != 0 {
		profitPercent = profit / sig.EntryPrice * 100
	}

	if err := t.store.CompleteSignal(ctx, id, exitPrice, profit, profitPercent, t.now()); err != nil {
		return apperrors.Wrap(err, "completing signal")
	}

	t.logger.Info().
		Str("signal_id", id).
		Str("symbol", sig.Symbol).
		Float64("profit", profit).
		Msg("Signal completed")

	return nil
}

// CompleteAlertResult reconciles a tracked alert trigger against the
// current market price.
func (t *Tracker) CompleteAlertResult(ctx context.Context, id string) error {
	sig, err := t.store.GetSignal(ctx, id)
	if err != nil {
		return err
	}
	if sig == nil {
		return apperrors.ErrDataNotFound
	}
	if sig.Completed {
		return apperrors.ErrAlreadyCompleted
	}

	quote, err := t.provider.GetQuote(ctx, sig.Symbol)
	if err != nil {
		return apperrors.Wrap(err, "fetching exit quote")
	}

	return t.CompleteSignal(ctx, id, quote.Price)
}

// TrackFeatureUsage increments today's per-feature usage counter, creating
// the day's record on first use.
func (t *Tracker) TrackFeatureUsage(ctx context.Context, feature string) error {
	if feature == "" {
		return apperrors.NewValidationError("feature", feature, "feature name is required")
	}

	date := t.now().UTC().Format("2006-01-02")
	if err := t.store.IncrementUsage(ctx, date, feature); err != nil {
		// Usage accounting must never break the calling feature.
		t.logger.Warn().Err(err).Str("feature", feature).Msg("Failed to record usage")
	}
	return nil
}

// Signals returns tracked signals matching the filter.
func (t *Tracker) Signals(ctx context.Context, filter store.SignalFilter) ([]models.TrackedSignal, error) {
	return t.store.GetSignals(ctx, filter)
}
