package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"market-scout/internal/config"
	apperrors "market-scout/internal/errors"
	"market-scout/internal/logging"
	"market-scout/internal/models"
	"market-scout/pkg/utils"
)

// HTTPProvider implements Provider against an HTTP JSON gateway.
// Every request waits on a shared token bucket sized to the provider's
// documented quota, so callers never need per-call throttling delays.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	retry   utils.RetryConfig
	logger  zerolog.Logger
}

// NewHTTPProvider creates a provider client from configuration.
func NewHTTPProvider(cfg config.ProviderConfig, logger zerolog.Logger) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst),
		retry:   utils.DefaultRetryConfig(),
		logger:  logger,
	}
}

// GetQuote fetches the live quote for a symbol.
func (p *HTTPProvider) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	body, err := p.get(ctx, "/quote", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, apperrors.NewDataError("quote", symbol, "fetch failed", err)
	}

	root := gjson.ParseBytes(body)
	if !root.Get("price").Exists() {
		return nil, apperrors.NewDataError("quote", symbol, "no price in response", apperrors.ErrSymbolNotFound)
	}

	return &models.Quote{
		Symbol:        symbol,
		Price:         root.Get("price").Float(),
		Change:        root.Get("change").Float(),
		ChangePercent: root.Get("changePercent").Float(),
		Volume:        root.Get("volume").Int(),
		MarketCap:     root.Get("marketCap").Float(),
		AvgVolume:     root.Get("avgVolume").Float(),
	}, nil
}

// GetRSI fetches the RSI indicator value. The gateway returns either an
// object with an rsi/value field or a bare number.
func (p *HTTPProvider) GetRSI(ctx context.Context, symbol string, period int, interval string) (float64, error) {
	body, err := p.get(ctx, "/indicator/rsi", url.Values{
		"symbol":   {symbol},
		"period":   {strconv.Itoa(period)},
		"interval": {interval},
	})
	if err != nil {
		return 0, apperrors.NewDataError("rsi", symbol, "fetch failed", err)
	}

	root := gjson.ParseBytes(body)
	switch {
	case root.Get("rsi").Exists():
		return root.Get("rsi").Float(), nil
	case root.Get("value").Exists():
		return root.Get("value").Float(), nil
	case root.Type == gjson.Number:
		return root.Float(), nil
	}
	return 0, apperrors.NewDataError("rsi", symbol, "no rsi in response", apperrors.ErrDataNotFound)
}

// GetHistory fetches historical bars for a symbol, most-recent-first.
func (p *HTTPProvider) GetHistory(ctx context.Context, symbol, rng string) ([]models.Bar, error) {
	body, err := p.get(ctx, "/history", url.Values{"symbol": {symbol}, "range": {rng}})
	if err != nil {
		return nil, apperrors.NewDataError("history", symbol, "fetch failed", err)
	}

	root := gjson.ParseBytes(body)
	items := root
	if root.IsObject() {
		items = root.Get("bars")
	}

	var bars []models.Bar
	items.ForEach(func(_, item gjson.Result) bool {
		date, ok := parseDate(item.Get("date").String())
		if !ok {
			return true // skip malformed entries
		}
		bars = append(bars, models.Bar{
			Date:   date,
			Open:   item.Get("open").Float(),
			High:   item.Get("high").Float(),
			Low:    item.Get("low").Float(),
			Close:  item.Get("close").Float(),
			Volume: item.Get("volume").Int(),
		})
		return true
	})

	return bars, nil
}

// GetEarningsCalendar fetches earnings calendar entries for a date range.
func (p *HTTPProvider) GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]models.EarningsEvent, error) {
	body, err := p.get(ctx, "/calendar/earnings", url.Values{
		"from": {from.Format("2006-01-02")},
		"to":   {to.Format("2006-01-02")},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "earnings calendar fetch failed")
	}

	root := gjson.ParseBytes(body)
	items := root
	if root.IsObject() {
		items = root.Get("earnings")
	}

	var events []models.EarningsEvent
	items.ForEach(func(_, item gjson.Result) bool {
		symbol := item.Get("symbol").String()
		if symbol == "" {
			return true
		}
		date, ok := parseDate(item.Get("date").String())
		if !ok {
			return true
		}
		events = append(events, models.EarningsEvent{
			Symbol: symbol,
			Name:   item.Get("name").String(),
			Date:   date,
			Time:   item.Get("time").String(),
		})
		return true
	})

	return events, nil
}

// get performs a rate-limited GET with retry and returns the response body.
func (p *HTTPProvider) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := utils.RetryWithResult(ctx, p.retry, func() ([]byte, error) {
		return p.doRequest(ctx, endpoint, params)
	})
	logging.LogAPICall(p.logger, endpoint, time.Since(start), err)

	return body, err
}

func (p *HTTPProvider) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u, err := url.Parse(p.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint url: %w", err)
	}
	if p.apiKey != "" {
		params.Set("apikey", p.apiKey)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, apperrors.Wrap(err, "reading response body")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.NewProviderError(endpoint, resp.StatusCode, "quota exceeded", apperrors.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.NewProviderError(endpoint, resp.StatusCode, "not found", apperrors.ErrSymbolNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewProviderError(endpoint, resp.StatusCode, string(body), nil)
	}

	return body, nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
