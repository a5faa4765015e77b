package screener

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"market-scout/internal/models"
)

// fakeProvider serves canned market data keyed by symbol.
type fakeProvider struct {
	quotes   map[string]models.Quote
	rsis     map[string]float64
	bars     map[string][]models.Bar
	events   []models.EarningsEvent
	quoteErr map[string]error
	calErr   error
}

func (f *fakeProvider) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if err := f.quoteErr[symbol]; err != nil {
		return nil, err
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return &q, nil
}

func (f *fakeProvider) GetRSI(ctx context.Context, symbol string, period int, interval string) (float64, error) {
	rsi, ok := f.rsis[symbol]
	if !ok {
		return 0, errors.New("no rsi")
	}
	return rsi, nil
}

func (f *fakeProvider) GetHistory(ctx context.Context, symbol, rng string) ([]models.Bar, error) {
	bars, ok := f.bars[symbol]
	if !ok {
		return nil, errors.New("no history")
	}
	return bars, nil
}

func (f *fakeProvider) GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]models.EarningsEvent, error) {
	if f.calErr != nil {
		return nil, f.calErr
	}
	return f.events, nil
}

// barsWithVolume builds n most-recent-first bars with a flat close and the
// given per-bar volume.
func barsWithVolume(n int, volume int64) []models.Bar {
	bars := make([]models.Bar, n)
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = models.Bar{
			Date:   base.AddDate(0, 0, -i),
			Open:   100,
			High:   101,
			Low:    99,
			Close:  100,
			Volume: volume,
		}
	}
	return bars
}

func newTestScreener(provider *fakeProvider, watchlist []string) *Screener {
	return New(provider, nil, zerolog.Nop(), Options{
		Watchlist:   watchlist,
		Concurrency: 2,
	})
}

func TestFindOversoldBounces(t *testing.T) {
	provider := &fakeProvider{
		quotes: map[string]models.Quote{
			"DEEP": {Symbol: "DEEP", Price: 40, Volume: 4_000_000},
			"DIP":  {Symbol: "DIP", Price: 80, Volume: 2_100_000},
			"FLAT": {Symbol: "FLAT", Price: 120, Volume: 3_000_000},
			"THIN": {Symbol: "THIN", Price: 60, Volume: 1_200_000},
		},
		rsis: map[string]float64{
			"DEEP": 15,
			"DIP":  22,
			"FLAT": 45,
			"THIN": 22,
		},
		bars: map[string][]models.Bar{
			"DEEP": barsWithVolume(25, 1_000_000),
			"DIP":  barsWithVolume(25, 1_000_000),
			"FLAT": barsWithVolume(25, 1_000_000),
			"THIN": barsWithVolume(25, 1_000_000),
		},
	}

	s := newTestScreener(provider, []string{"DEEP", "DIP", "FLAT", "THIN"})

	opportunities, err := s.FindOversoldBounces(context.Background())
	if err != nil {
		t.Fatalf("FindOversoldBounces() error = %v", err)
	}

	// FLAT is not oversold, THIN has no volume confirmation.
	if len(opportunities) != 2 {
		t.Fatalf("got %d opportunities, want 2: %+v", len(opportunities), opportunities)
	}

	if opportunities[0].Symbol != "DEEP" || opportunities[1].Symbol != "DIP" {
		t.Errorf("wrong ranking: got %s, %s", opportunities[0].Symbol, opportunities[1].Symbol)
	}

	if opportunities[0].Score != 100 {
		t.Errorf("DEEP score = %d, want 100", opportunities[0].Score)
	}
	if opportunities[1].Score != 80 {
		t.Errorf("DIP score = %d, want 80", opportunities[1].Score)
	}
	for _, opp := range opportunities {
		if opp.Strategy != models.StrategyOversoldBounce {
			t.Errorf("strategy = %v, want %v", opp.Strategy, models.StrategyOversoldBounce)
		}
	}
}

func TestFindOversoldBouncesSkipsFailedSymbols(t *testing.T) {
	provider := &fakeProvider{
		quotes: map[string]models.Quote{
			"DIP": {Symbol: "DIP", Price: 80, Volume: 2_100_000},
		},
		rsis:     map[string]float64{"DIP": 22},
		bars:     map[string][]models.Bar{"DIP": barsWithVolume(25, 1_000_000)},
		quoteErr: map[string]error{"DEAD": errors.New("gateway timeout")},
	}

	s := newTestScreener(provider, nil)

	opportunities, err := s.FindOversoldBounces(context.Background(), "DEAD", "DIP")
	if err != nil {
		t.Fatalf("FindOversoldBounces() error = %v", err)
	}
	if len(opportunities) != 1 || opportunities[0].Symbol != "DIP" {
		t.Fatalf("got %+v, want only DIP", opportunities)
	}
}

func TestFindUnusualVolume(t *testing.T) {
	provider := &fakeProvider{
		quotes: map[string]models.Quote{
			"SPIKE": {Symbol: "SPIKE", Price: 50, ChangePercent: -2, Volume: 5_000_000},
			"SURGE": {Symbol: "SURGE", Price: 75, ChangePercent: 4, Volume: 3_500_000},
			"NOAVG": {Symbol: "NOAVG", Price: 10, ChangePercent: 9, Volume: 9_000_000},
			"MILD":  {Symbol: "MILD", Price: 30, ChangePercent: 1, Volume: 2_000_000},
		},
		rsis: map[string]float64{"SPIKE": 50, "SURGE": 60, "NOAVG": 50, "MILD": 50},
		bars: map[string][]models.Bar{
			"SPIKE": barsWithVolume(25, 1_000_000),
			"SURGE": barsWithVolume(25, 1_000_000),
			"NOAVG": barsWithVolume(25, 0), // no computable average
			"MILD":  barsWithVolume(25, 1_000_000),
		},
	}

	s := newTestScreener(provider, []string{"SPIKE", "SURGE", "NOAVG", "MILD"})

	opportunities, err := s.FindUnusualVolume(context.Background(), 0)
	if err != nil {
		t.Fatalf("FindUnusualVolume() error = %v", err)
	}

	// NOAVG is excluded despite huge raw volume; MILD is below threshold.
	if len(opportunities) != 2 {
		t.Fatalf("got %d opportunities, want 2: %+v", len(opportunities), opportunities)
	}

	if opportunities[0].Symbol != "SPIKE" || opportunities[1].Symbol != "SURGE" {
		t.Errorf("wrong ranking: got %s, %s", opportunities[0].Symbol, opportunities[1].Symbol)
	}

	if opportunities[0].Direction != models.DirectionDown {
		t.Errorf("SPIKE direction = %v, want down", opportunities[0].Direction)
	}
	if opportunities[1].Direction != models.DirectionUp {
		t.Errorf("SURGE direction = %v, want up", opportunities[1].Direction)
	}
}

func TestFindUnusualVolumeCustomThreshold(t *testing.T) {
	provider := &fakeProvider{
		quotes: map[string]models.Quote{
			"MILD": {Symbol: "MILD", Price: 30, ChangePercent: 1, Volume: 2_000_000},
		},
		rsis: map[string]float64{"MILD": 50},
		bars: map[string][]models.Bar{"MILD": barsWithVolume(25, 1_000_000)},
	}

	s := newTestScreener(provider, nil)

	opportunities, err := s.FindUnusualVolume(context.Background(), 1.5, "MILD")
	if err != nil {
		t.Fatalf("FindUnusualVolume() error = %v", err)
	}
	if len(opportunities) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opportunities))
	}
	if got := opportunities[0].VolumeRatio; got != 2 {
		t.Errorf("VolumeRatio = %v, want 2", got)
	}
}

func TestFindEarningsOpportunities(t *testing.T) {
	eventDate := time.Now().AddDate(0, 0, 3)
	provider := &fakeProvider{
		quotes: map[string]models.Quote{
			"WATCHED": {Symbol: "WATCHED", Price: 200, ChangePercent: 2.5, Volume: 3_000_000, MarketCap: 50_000_000_000},
		},
		rsis: map[string]float64{"WATCHED": 55},
		bars: map[string][]models.Bar{"WATCHED": barsWithVolume(25, 1_000_000)},
		events: []models.EarningsEvent{
			{Symbol: "WATCHED", Name: "Watched Corp", Date: eventDate},
			{Symbol: "OTHER", Name: "Other Inc", Date: eventDate},
		},
	}

	s := newTestScreener(provider, []string{"watched"})

	opportunities, err := s.FindEarningsOpportunities(context.Background(), 7)
	if err != nil {
		t.Fatalf("FindEarningsOpportunities() error = %v", err)
	}

	// Only the watch-list intersection is evaluated.
	if len(opportunities) != 1 {
		t.Fatalf("got %d opportunities, want 1: %+v", len(opportunities), opportunities)
	}

	opp := opportunities[0]
	if opp.Symbol != "WATCHED" {
		t.Errorf("symbol = %s, want WATCHED", opp.Symbol)
	}
	if opp.Strategy != models.StrategyEarnings {
		t.Errorf("strategy = %v, want %v", opp.Strategy, models.StrategyEarnings)
	}
	if opp.Event == nil || opp.Event.Name != "Watched Corp" {
		t.Errorf("event not carried through: %+v", opp.Event)
	}
	// +15 change, +10 rsi, +10 volume spike, +5 large cap on flat trend.
	if opp.Score != 90 {
		t.Errorf("score = %d, want 90", opp.Score)
	}
}

func TestFindEarningsOpportunitiesFallsBackWithoutWatchlistMatch(t *testing.T) {
	eventDate := time.Now().AddDate(0, 0, 2)
	provider := &fakeProvider{
		quotes: map[string]models.Quote{
			"OTHER": {Symbol: "OTHER", Price: 40, ChangePercent: 0, Volume: 1_000_000},
		},
		rsis: map[string]float64{"OTHER": 35},
		bars: map[string][]models.Bar{"OTHER": barsWithVolume(25, 1_000_000)},
		events: []models.EarningsEvent{
			{Symbol: "OTHER", Name: "Other Inc", Date: eventDate},
		},
	}

	s := newTestScreener(provider, []string{"NOMATCH"})

	opportunities, err := s.FindEarningsOpportunities(context.Background(), 7)
	if err != nil {
		t.Fatalf("FindEarningsOpportunities() error = %v", err)
	}
	if len(opportunities) != 1 || opportunities[0].Symbol != "OTHER" {
		t.Fatalf("fallback did not evaluate calendar entries: %+v", opportunities)
	}
}

func TestFindEarningsOpportunitiesCalendarOutage(t *testing.T) {
	provider := &fakeProvider{calErr: errors.New("calendar down")}
	s := newTestScreener(provider, []string{"AAPL"})

	opportunities, err := s.FindEarningsOpportunities(context.Background(), 7)
	if err != nil {
		t.Fatalf("FindEarningsOpportunities() error = %v, want nil on outage", err)
	}
	if len(opportunities) != 0 {
		t.Fatalf("got %d opportunities, want none", len(opportunities))
	}
}
