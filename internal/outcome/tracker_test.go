package outcome

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"market-scout/internal/alerts"
	apperrors "market-scout/internal/errors"
	"market-scout/internal/models"
	"market-scout/internal/store"
)

type quoteProvider struct {
	quotes map[string]models.Quote
}

func (q *quoteProvider) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	quote := q.quotes[symbol]
	return &quote, nil
}

func (q *quoteProvider) GetRSI(ctx context.Context, symbol string, period int, interval string) (float64, error) {
	return 50, nil
}

func (q *quoteProvider) GetHistory(ctx context.Context, symbol, rng string) ([]models.Bar, error) {
	return nil, nil
}

func (q *quoteProvider) GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]models.EarningsEvent, error) {
	return nil, nil
}

func newTestTracker(t *testing.T, provider *quoteProvider) *Tracker {
	t.Helper()

	dataStore, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "outcome_test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { dataStore.Close() })

	if provider == nil {
		provider = &quoteProvider{}
	}
	return New(dataStore, provider, zerolog.Nop())
}

func TestTrackSignal(t *testing.T) {
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	sig, err := tracker.TrackSignal(ctx, models.KindEarningsPlay, "AAPL", 225.5, map[string]string{"score": "85"})
	if err != nil {
		t.Fatalf("TrackSignal() error = %v", err)
	}
	if sig.ID == "" {
		t.Error("signal has no id")
	}
	if sig.Completed {
		t.Error("new signal is already completed")
	}

	stored, err := tracker.Signals(ctx, store.SignalFilter{Kind: models.KindEarningsPlay})
	if err != nil {
		t.Fatalf("Signals() error = %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("got %d signals, want 1", len(stored))
	}
	if stored[0].EntryPrice != 225.5 {
		t.Errorf("EntryPrice = %v, want 225.5", stored[0].EntryPrice)
	}
	if stored[0].Metadata["score"] != "85" {
		t.Errorf("metadata = %v, want score=85", stored[0].Metadata)
	}
}

func TestTrackSignalRequiresSymbol(t *testing.T) {
	tracker := newTestTracker(t, nil)

	_, err := tracker.TrackSignal(context.Background(), models.KindEarningsPlay, "", 100, nil)
	var verr *apperrors.ValidationError
	if !apperrors.As(err, &verr) {
		t.Errorf("error = %v, want *ValidationError", err)
	}
}

func TestTrackOpportunity(t *testing.T) {
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		strategy models.Strategy
		wantKind models.SignalKind
		tracked  bool
	}{
		{"earnings play", models.StrategyEarnings, models.KindEarningsPlay, true},
		{"oversold bounce", models.StrategyOversoldBounce, models.KindOversoldBounce, true},
		{"unusual volume is not tracked", models.StrategyUnusualVolume, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := models.Opportunity{
				Symbol:   "AAPL",
				Strategy: tt.strategy,
				Quote:    models.Quote{Symbol: "AAPL", Price: 200},
				RSI:      42.5,
				Trend:    models.TrendBullish,
				Score:    75,
			}

			sig, err := tracker.TrackOpportunity(ctx, opp)
			if err != nil {
				t.Fatalf("TrackOpportunity() error = %v", err)
			}

			if !tt.tracked {
				if sig != nil {
					t.Fatalf("got signal %+v, want none", sig)
				}
				return
			}

			if sig == nil {
				t.Fatal("got no signal, want one")
			}
			if sig.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", sig.Kind, tt.wantKind)
			}
			if sig.Metadata["score"] != "75" {
				t.Errorf("score metadata = %q, want 75", sig.Metadata["score"])
			}
			if sig.Metadata["trend"] != "bullish" {
				t.Errorf("trend metadata = %q, want bullish", sig.Metadata["trend"])
			}
		})
	}
}

func TestCompleteSignal(t *testing.T) {
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	sig, err := tracker.TrackSignal(ctx, models.KindOversoldBounce, "DIP", 100, nil)
	if err != nil {
		t.Fatalf("TrackSignal() error = %v", err)
	}

	if err := tracker.CompleteSignal(ctx, sig.ID, 110); err != nil {
		t.Fatalf("CompleteSignal() error = %v", err)
	}

	stored, err := tracker.store.GetSignal(ctx, sig.ID)
	if err != nil {
		t.Fatalf("GetSignal() error = %v", err)
	}
	if !stored.Completed {
		t.Fatal("signal not marked completed")
	}
	if stored.ExitPrice != 110 {
		t.Errorf("ExitPrice = %v, want 110", stored.ExitPrice)
	}
	if stored.Profit != 10 {
		t.Errorf("Profit = %v, want 10", stored.Profit)
	}
	if stored.ProfitPercent != 10 {
		t.Errorf("ProfitPercent = %v, want 10", stored.ProfitPercent)
	}
	if stored.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
}

func TestCompleteSignalIsIdempotencyGuarded(t *testing.T) {
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	sig, err := tracker.TrackSignal(ctx, models.KindOversoldBounce, "DIP", 100, nil)
	if err != nil {
		t.Fatalf("TrackSignal() error = %v", err)
	}

	if err := tracker.CompleteSignal(ctx, sig.ID, 110); err != nil {
		t.Fatalf("first CompleteSignal() error = %v", err)
	}

	err = tracker.CompleteSignal(ctx, sig.ID, 90)
	if !apperrors.Is(err, apperrors.ErrAlreadyCompleted) {
		t.Fatalf("second CompleteSignal() error = %v, want ErrAlreadyCompleted", err)
	}

	// The first outcome is untouched.
	stored, err := tracker.store.GetSignal(ctx, sig.ID)
	if err != nil {
		t.Fatalf("GetSignal() error = %v", err)
	}
	if stored.ExitPrice != 110 {
		t.Errorf("ExitPrice = %v, want original 110", stored.ExitPrice)
	}
}

func TestCompleteSignalUnknownID(t *testing.T) {
	tracker := newTestTracker(t, nil)

	err := tracker.CompleteSignal(context.Background(), "no-such-id", 100)
	if !apperrors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("error = %v, want ErrDataNotFound", err)
	}
}

func TestCompleteSignalZeroEntryPrice(t *testing.T) {
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	sig, err := tracker.TrackSignal(ctx, models.KindAlertTrigger, "FREE", 0, nil)
	if err != nil {
		t.Fatalf("TrackSignal() error = %v", err)
	}
	if err := tracker.CompleteSignal(ctx, sig.ID, 5); err != nil {
		t.Fatalf("CompleteSignal() error = %v", err)
	}

	stored, err := tracker.store.GetSignal(ctx, sig.ID)
	if err != nil {
		t.Fatalf("GetSignal() error = %v", err)
	}
	if stored.ProfitPercent != 0 || math.IsNaN(stored.ProfitPercent) || math.IsInf(stored.ProfitPercent, 0) {
		t.Errorf("ProfitPercent = %v, want 0 for zero entry", stored.ProfitPercent)
	}
}

func TestCompleteAlertResult(t *testing.T) {
	provider := &quoteProvider{
		quotes: map[string]models.Quote{"TSLA": {Symbol: "TSLA", Price: 312.4}},
	}
	tracker := newTestTracker(t, provider)
	ctx := context.Background()

	trigger := alerts.Trigger{
		Rule: models.AlertRule{
			ID:        "rule-1",
			Type:      models.AlertTypePrice,
			Symbol:    "TSLA",
			Condition: models.ConditionAbove,
		},
		Observed: 305,
		At:       time.Now(),
	}

	sig, err := tracker.TrackAlertTrigger(ctx, trigger)
	if err != nil {
		t.Fatalf("TrackAlertTrigger() error = %v", err)
	}
	if sig.Kind != models.KindAlertTrigger {
		t.Errorf("Kind = %v, want %v", sig.Kind, models.KindAlertTrigger)
	}
	if sig.Metadata["alert_id"] != "rule-1" {
		t.Errorf("alert_id metadata = %q, want rule-1", sig.Metadata["alert_id"])
	}

	if err := tracker.CompleteAlertResult(ctx, sig.ID); err != nil {
		t.Fatalf("CompleteAlertResult() error = %v", err)
	}

	stored, err := tracker.store.GetSignal(ctx, sig.ID)
	if err != nil {
		t.Fatalf("GetSignal() error = %v", err)
	}
	if stored.ExitPrice != 312.4 {
		t.Errorf("ExitPrice = %v, want current quote 312.4", stored.ExitPrice)
	}
}

func TestSuccessMetricsEmptyHistory(t *testing.T) {
	tracker := newTestTracker(t, nil)

	metrics, err := tracker.SuccessMetrics(context.Background())
	if err != nil {
		t.Fatalf("SuccessMetrics() error = %v", err)
	}

	for _, km := range []KindMetrics{metrics.EarningsPlays, metrics.OversoldBounces, metrics.AlertTriggers} {
		if km.WinRate != 0 {
			t.Errorf("%s WinRate = %v, want 0", km.Kind, km.WinRate)
		}
		if math.IsNaN(km.WinRate) {
			t.Errorf("%s WinRate is NaN", km.Kind)
		}
		if km.Summary != "0.0% win rate (0/0)" {
			t.Errorf("%s Summary = %q", km.Kind, km.Summary)
		}
	}

	if metrics.EarningsPlays.Target != TargetEarnings {
		t.Errorf("earnings target = %v, want %v", metrics.EarningsPlays.Target, TargetEarnings)
	}
	if metrics.OversoldBounces.Target != TargetOversold {
		t.Errorf("oversold target = %v, want %v", metrics.OversoldBounces.Target, TargetOversold)
	}
	if metrics.AlertTriggers.Target != TargetAlerts {
		t.Errorf("alerts target = %v, want %v", metrics.AlertTriggers.Target, TargetAlerts)
	}
}

func TestSuccessMetricsWinRate(t *testing.T) {
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	winner, err := tracker.TrackSignal(ctx, models.KindOversoldBounce, "WIN", 100, nil)
	if err != nil {
		t.Fatalf("TrackSignal() error = %v", err)
	}
	loser, err := tracker.TrackSignal(ctx, models.KindOversoldBounce, "LOSE", 100, nil)
	if err != nil {
		t.Fatalf("TrackSignal() error = %v", err)
	}
	if _, err := tracker.TrackSignal(ctx, models.KindOversoldBounce, "OPEN", 100, nil); err != nil {
		t.Fatalf("TrackSignal() error = %v", err)
	}

	if err := tracker.CompleteSignal(ctx, winner.ID, 120); err != nil {
		t.Fatalf("CompleteSignal() error = %v", err)
	}
	if err := tracker.CompleteSignal(ctx, loser.ID, 80); err != nil {
		t.Fatalf("CompleteSignal() error = %v", err)
	}

	metrics, err := tracker.SuccessMetrics(ctx)
	if err != nil {
		t.Fatalf("SuccessMetrics() error = %v", err)
	}

	km := metrics.OversoldBounces
	if km.Total != 3 || km.Completed != 2 || km.Profitable != 1 {
		t.Errorf("counts = total %d completed %d profitable %d, want 3/2/1", km.Total, km.Completed, km.Profitable)
	}
	wantRate := 1.0 / 3.0 * 100
	if math.Abs(km.WinRate-wantRate) > 0.001 {
		t.Errorf("WinRate = %v, want %v", km.WinRate, wantRate)
	}
	if km.Summary != "33.3% win rate (1/3)" {
		t.Errorf("Summary = %q", km.Summary)
	}
}

func TestFeatureUsageAggregation(t *testing.T) {
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := tracker.TrackFeatureUsage(ctx, "scan_earnings"); err != nil {
			t.Fatalf("TrackFeatureUsage() error = %v", err)
		}
	}
	if err := tracker.TrackFeatureUsage(ctx, "alert_check"); err != nil {
		t.Fatalf("TrackFeatureUsage() error = %v", err)
	}

	metrics, err := tracker.SuccessMetrics(ctx)
	if err != nil {
		t.Fatalf("SuccessMetrics() error = %v", err)
	}

	usage := metrics.Usage
	if usage.Days != 1 {
		t.Errorf("Days = %d, want 1", usage.Days)
	}
	if usage.Totals["scan_earnings"] != 3 {
		t.Errorf("scan_earnings total = %d, want 3", usage.Totals["scan_earnings"])
	}
	if usage.Totals["alert_check"] != 1 {
		t.Errorf("alert_check total = %d, want 1", usage.Totals["alert_check"])
	}
	if usage.DailyAverage["scan_earnings"] != 3 {
		t.Errorf("scan_earnings daily average = %v, want 3", usage.DailyAverage["scan_earnings"])
	}
}

func TestTrackFeatureUsageRequiresName(t *testing.T) {
	tracker := newTestTracker(t, nil)

	err := tracker.TrackFeatureUsage(context.Background(), "")
	var verr *apperrors.ValidationError
	if !apperrors.As(err, &verr) {
		t.Errorf("error = %v, want *ValidationError", err)
	}
}
