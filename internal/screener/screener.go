package screener

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-scout/internal/logging"
	"market-scout/internal/marketdata"
	"market-scout/internal/models"
	"market-scout/internal/store"
)

// Screening parameters.
const (
	rsiPeriod        = 14
	bounceRSILimit   = 30
	bounceRatioFloor = 1.5

	defaultMaxCandidates   = 10
	defaultFallbackSize    = 20
	defaultConcurrency     = 4
	defaultVolumeThreshold = 3.0
)

// Options configures a Screener.
type Options struct {
	// Watchlist is the fallback symbol set when the data store has none.
	Watchlist []string
	// MaxCandidates caps how many earnings candidates are evaluated per scan.
	MaxCandidates int
	// FallbackSize is how many calendar entries are taken when the
	// watchlist matches nothing.
	FallbackSize int
	// Concurrency bounds the fan-out of bounce/volume scans.
	Concurrency int
}

// Screener evaluates a watch-list against the screening strategies.
type Screener struct {
	provider marketdata.Provider
	store    store.DataStore
	logger   zerolog.Logger
	opts     Options
}

// New creates a Screener. The data store may be nil, in which case the
// configured watch-list is used directly.
func New(provider marketdata.Provider, dataStore store.DataStore, logger zerolog.Logger, opts Options) *Screener {
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = defaultMaxCandidates
	}
	if opts.FallbackSize <= 0 {
		opts.FallbackSize = defaultFallbackSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Screener{
		provider: provider,
		store:    dataStore,
		logger:   logger,
		opts:     opts,
	}
}

// FindEarningsOpportunities scans the earnings calendar for
// [today, today+daysAhead] and scores candidates on the watch-list.
// Candidates are processed strictly sequentially; the provider's token
// bucket paces the requests. Per-candidate failures are logged and the
// candidate is dropped; the scan itself only fails on context
// cancellation or a calendar fetch error, which yields an empty result.
func (s *Screener) FindEarningsOpportunities(ctx context.Context, daysAhead int) ([]models.Opportunity, error) {
	start := time.Now()
	logger := logging.WithOperation(s.logger, "earnings_scan")

	now := time.Now()
	events, err := s.provider.GetEarningsCalendar(ctx, now, now.AddDate(0, 0, daysAhead))
	if err != nil {
		logger.Warn().Err(err).Msg("Earnings calendar unavailable")
		return nil, nil
	}

	candidates := s.selectCandidates(ctx, events)
	if len(candidates) > s.opts.MaxCandidates {
		candidates = candidates[:s.opts.MaxCandidates]
	}

	var opportunities []models.Opportunity
	for i := range candidates {
		if ctx.Err() != nil {
			return opportunities, ctx.Err()
		}

		opp, err := s.evaluateEarningsCandidate(ctx, candidates[i])
		if err != nil {
			logger.Debug().Err(err).Str("symbol", candidates[i].Symbol).Msg("Candidate skipped")
			continue
		}
		opportunities = append(opportunities, *opp)
	}

	// Stable sort keeps calendar order for equal scores.
	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].Score > opportunities[j].Score
	})

	logging.LogScan(logger, string(models.StrategyEarnings), len(candidates), len(opportunities), time.Since(start))
	return opportunities, nil
}

// selectCandidates restricts calendar entries to the watch-list; when the
// intersection is empty the first FallbackSize entries are taken so an
// unconfigured watch-list still produces output.
func (s *Screener) selectCandidates(ctx context.Context, events []models.EarningsEvent) []models.EarningsEvent {
	watchlist := s.watchlist(ctx)
	watched := make(map[string]bool, len(watchlist))
	for _, symbol := range watchlist {
		watched[symbol] = true
	}

	var candidates []models.EarningsEvent
	for _, event := range events {
		if watched[strings.ToUpper(event.Symbol)] {
			candidates = append(candidates, event)
		}
	}

	if len(candidates) == 0 {
		n := s.opts.FallbackSize
		if n > len(events) {
			n = len(events)
		}
		candidates = events[:n]
	}

	return candidates
}

// evaluateEarningsCandidate fetches quote, RSI, and history for one
// candidate and scores it. The quote comes first so a dead symbol exits
// cheaply.
func (s *Screener) evaluateEarningsCandidate(ctx context.Context, event models.EarningsEvent) (*models.Opportunity, error) {
	symbol := strings.ToUpper(event.Symbol)

	quote, err := s.provider.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	rsi, err := s.provider.GetRSI(ctx, symbol, rsiPeriod, marketdata.IntervalDaily)
	if err != nil {
		return nil, err
	}

	bars, err := s.provider.GetHistory(ctx, symbol, marketdata.RangeOneMonth)
	if err != nil {
		return nil, err
	}

	avgVolume := marketdata.AverageVolume(bars, marketdata.AvgVolumePeriod)
	quote.AvgVolume = avgVolume
	trend := priceTrend(bars)

	score := applyRules(earningsRules, ScoreInput{
		ChangePercent: quote.ChangePercent,
		RSI:           rsi,
		Trend:         trend,
		Volume:        quote.Volume,
		AvgVolume:     avgVolume,
		MarketCap:     quote.MarketCap,
	})

	ev := event
	return &models.Opportunity{
		Symbol:      symbol,
		Strategy:    models.StrategyEarnings,
		Quote:       *quote,
		RSI:         rsi,
		Trend:       trend,
		VolumeRatio: marketdata.VolumeRatio(quote.Volume, avgVolume),
		Score:       score,
		Event:       &ev,
	}, nil
}

// FindOversoldBounces screens the given symbols (or the watch-list when
// none are supplied) for oversold-bounce setups, fanning out concurrently.
func (s *Screener) FindOversoldBounces(ctx context.Context, symbols ...string) ([]models.Opportunity, error) {
	return s.fanOutScan(ctx, models.StrategyOversoldBounce, symbols, func(quote *models.Quote, rsi, ratio float64) (*models.Opportunity, bool) {
		if rsi >= bounceRSILimit || ratio <= bounceRatioFloor {
			return nil, false
		}
		strength := applyRules(bounceRules, ScoreInput{RSI: rsi, VolumeRatio: ratio})
		return &models.Opportunity{
			Symbol:      quote.Symbol,
			Strategy:    models.StrategyOversoldBounce,
			Quote:       *quote,
			RSI:         rsi,
			VolumeRatio: ratio,
			Score:       strength,
		}, true
	})
}

// FindUnusualVolume screens for abnormal volume at or above the given
// multiple of average volume (default 3). Symbols with no computable
// average volume are excluded regardless of current volume.
func (s *Screener) FindUnusualVolume(ctx context.Context, threshold float64, symbols ...string) ([]models.Opportunity, error) {
	if threshold <= 0 {
		threshold = defaultVolumeThreshold
	}
	return s.fanOutScan(ctx, models.StrategyUnusualVolume, symbols, func(quote *models.Quote, rsi, ratio float64) (*models.Opportunity, bool) {
		if ratio < threshold {
			return nil, false
		}
		direction := models.DirectionDown
		if quote.ChangePercent > 0 {
			direction = models.DirectionUp
		}
		return &models.Opportunity{
			Symbol:      quote.Symbol,
			Strategy:    models.StrategyUnusualVolume,
			Quote:       *quote,
			RSI:         rsi,
			VolumeRatio: ratio,
			Direction:   direction,
			// Volume ratio drives the ranking; map it onto the bounded score.
			Score: clampScore(int(ratio * 10)),
		}, true
	})
}

// qualify inspects one symbol's measurements and decides whether it
// produces an opportunity.
type qualify func(quote *models.Quote, rsi, ratio float64) (*models.Opportunity, bool)

// indexed pairs a result with its input position so ties keep input order
// after the concurrent fan-out.
type indexed struct {
	index int
	opp   models.Opportunity
}

// fanOutScan evaluates symbols concurrently with a bounded worker pool and
// returns qualifying opportunities ranked by descending volume ratio or
// score. Per-symbol fetch errors are isolated; a provider-wide outage
// yields an empty list, never an error.
func (s *Screener) fanOutScan(ctx context.Context, strategy models.Strategy, symbols []string, qualifies qualify) ([]models.Opportunity, error) {
	start := time.Now()
	logger := logging.WithOperation(s.logger, string(strategy)+"_scan")

	if len(symbols) == 0 {
		symbols = s.watchlist(ctx)
	}
	if len(symbols) == 0 {
		return nil, nil
	}

	workChan := make(chan indexedSymbol, len(symbols))
	resultChan := make(chan indexed, len(symbols))

	var wg sync.WaitGroup
	workers := s.opts.Concurrency
	if workers > len(symbols) {
		workers = len(symbols)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for work := range workChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				opp, err := s.evaluateSymbol(ctx, work.symbol, qualifies)
				if err != nil {
					logger.Debug().Err(err).Str("symbol", work.symbol).Msg("Symbol skipped")
					continue
				}
				if opp != nil {
					resultChan <- indexed{index: work.index, opp: *opp}
				}
			}
		}()
	}

	for i, symbol := range symbols {
		workChan <- indexedSymbol{index: i, symbol: strings.ToUpper(symbol)}
	}
	close(workChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var results []indexed
	for r := range resultChan {
		results = append(results, r)
	}

	// Rank descending, input order for ties. Volume scans rank by the raw
	// ratio, the others by score.
	sort.Slice(results, func(i, j int) bool {
		if strategy == models.StrategyUnusualVolume {
			if results[i].opp.VolumeRatio != results[j].opp.VolumeRatio {
				return results[i].opp.VolumeRatio > results[j].opp.VolumeRatio
			}
		} else if results[i].opp.Score != results[j].opp.Score {
			return results[i].opp.Score > results[j].opp.Score
		}
		return results[i].index < results[j].index
	})

	opportunities := make([]models.Opportunity, 0, len(results))
	for _, r := range results {
		opportunities = append(opportunities, r.opp)
	}

	logging.LogScan(logger, string(strategy), len(symbols), len(opportunities), time.Since(start))
	return opportunities, nil
}

type indexedSymbol struct {
	index  int
	symbol string
}

// evaluateSymbol fetches quote, RSI, and history for one symbol and applies
// the strategy predicate. A nil opportunity with nil error means the symbol
// did not qualify.
func (s *Screener) evaluateSymbol(ctx context.Context, symbol string, qualifies qualify) (*models.Opportunity, error) {
	quote, err := s.provider.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	rsi, err := s.provider.GetRSI(ctx, symbol, rsiPeriod, marketdata.IntervalDaily)
	if err != nil {
		return nil, err
	}

	bars, err := s.provider.GetHistory(ctx, symbol, marketdata.RangeOneMonth)
	if err != nil {
		return nil, err
	}

	avgVolume := marketdata.AverageVolume(bars, marketdata.AvgVolumePeriod)
	quote.AvgVolume = avgVolume
	ratio := marketdata.VolumeRatio(quote.Volume, avgVolume)

	opp, ok := qualifies(quote, rsi, ratio)
	if !ok {
		return nil, nil
	}
	return opp, nil
}

// watchlist returns the stored watch-list, falling back to the configured
// one; symbols are normalized to upper case.
func (s *Screener) watchlist(ctx context.Context) []string {
	var symbols []string
	if s.store != nil {
		stored, err := s.store.GetWatchlist(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to load watchlist")
		} else {
			symbols = stored
		}
	}
	if len(symbols) == 0 {
		symbols = s.opts.Watchlist
	}

	normalized := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		normalized = append(normalized, strings.ToUpper(symbol))
	}
	return normalized
}
