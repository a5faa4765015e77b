// Package alerts implements the alert engine: persisted user-declared rules
// evaluated against live market data, each firing exactly once.
package alerts

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "market-scout/internal/errors"
	"market-scout/internal/logging"
	"market-scout/internal/marketdata"
	"market-scout/internal/models"
	"market-scout/internal/store"
)

// RSI trigger levels.
const (
	rsiOversoldLevel   = 30
	rsiOverboughtLevel = 70
	rsiPeriod          = 14
)

const defaultEarningsWindow = 24 * time.Hour

// Trigger carries a newly fired rule together with the observed datum that
// fired it.
type Trigger struct {
	Rule     models.AlertRule
	Observed float64
	At       time.Time
}

// Summary aggregates the result of a full alert check pass.
type Summary struct {
	Price    []Trigger
	Volume   []Trigger
	RSI      []Trigger
	Earnings []Trigger
}

// Total returns the number of rules that fired in this pass.
func (s *Summary) Total() int {
	return len(s.Price) + len(s.Volume) + len(s.RSI) + len(s.Earnings)
}

// CreateSpec describes a rule to create.
type CreateSpec struct {
	Type        models.AlertType
	Symbol      string
	Condition   string
	TargetPrice float64
	Threshold   float64
}

// Engine owns the alert rule collection. All mutations go through the
// engine and are serialized by an internal mutex, so concurrent callers
// cannot lose updates.
type Engine struct {
	provider       marketdata.Provider
	store          store.DataStore
	logger         zerolog.Logger
	earningsWindow time.Duration

	mu        sync.Mutex
	onTrigger func(Trigger)
}

// Option configures an Engine.
type Option func(*Engine)

// WithEarningsWindow sets the proximity window for earnings alerts.
func WithEarningsWindow(window time.Duration) Option {
	return func(e *Engine) {
		if window > 0 {
			e.earningsWindow = window
		}
	}
}

// New creates an alert engine backed by the given store.
func New(provider marketdata.Provider, dataStore store.DataStore, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		provider:       provider,
		store:          dataStore,
		logger:         logger,
		earningsWindow: defaultEarningsWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetOnTrigger sets a callback invoked for every newly fired rule.
func (e *Engine) SetOnTrigger(fn func(Trigger)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTrigger = fn
}

// Create validates and persists a new alert rule in the pending state.
func (e *Engine) Create(ctx context.Context, spec CreateSpec) (*models.AlertRule, error) {
	rule, err := buildRule(spec)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.SaveAlert(ctx, rule); err != nil {
		return nil, apperrors.Wrap(err, "persisting alert rule")
	}

	e.logger.Info().
		Str("alert_id", rule.ID).
		Str("type", string(rule.Type)).
		Str("symbol", rule.Symbol).
		Str("condition", rule.Condition).
		Msg("Alert created")

	return rule, nil
}

func buildRule(spec CreateSpec) (*models.AlertRule, error) {
	symbol := strings.ToUpper(strings.TrimSpace(spec.Symbol))
	if symbol == "" {
		return nil, apperrors.NewValidationError("symbol", spec.Symbol, "symbol is required")
	}

	condition := spec.Condition
	switch spec.Type {
	case models.AlertTypePrice:
		switch condition {
		case models.ConditionAbove, models.ConditionBelow:
			if spec.TargetPrice <= 0 {
				return nil, apperrors.NewValidationError("targetPrice", spec.TargetPrice, "target price must be positive")
			}
		case models.ConditionChangePercent:
			if spec.Threshold <= 0 {
				return nil, apperrors.NewValidationError("threshold", spec.Threshold, "change threshold must be positive")
			}
		default:
			return nil, apperrors.NewValidationError("condition", condition, "unknown price condition")
		}
	case models.AlertTypeVolume:
		if condition == "" {
			condition = models.ConditionMultiplier
		}
		if condition != models.ConditionMultiplier {
			return nil, apperrors.NewValidationError("condition", condition, "unknown volume condition")
		}
		if spec.Threshold <= 0 {
			return nil, apperrors.NewValidationError("threshold", spec.Threshold, "volume multiplier must be positive")
		}
	case models.AlertTypeRSI:
		if condition != models.ConditionOversold && condition != models.ConditionOverbought {
			return nil, apperrors.NewValidationError("condition", condition, "unknown rsi condition")
		}
	case models.AlertTypeEarnings:
		if condition == "" {
			condition = models.ConditionProximity
		}
		if condition != models.ConditionProximity {
			return nil, apperrors.NewValidationError("condition", condition, "unknown earnings condition")
		}
	default:
		return nil, apperrors.NewValidationError("type", string(spec.Type), "unknown alert type")
	}

	return &models.AlertRule{
		ID:          uuid.NewString(),
		Type:        spec.Type,
		Symbol:      symbol,
		Condition:   condition,
		TargetPrice: spec.TargetPrice,
		Threshold:   spec.Threshold,
		CreatedAt:   time.Now(),
		Triggered:   false,
	}, nil
}

// Delete removes a rule in any state.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.DeleteAlert(ctx, id)
}

// List returns all rules, pending and triggered.
func (e *Engine) List(ctx context.Context) ([]models.AlertRule, error) {
	return e.store.GetAlerts(ctx)
}

// Pending returns the untriggered rules of one type.
func (e *Engine) Pending(ctx context.Context, alertType models.AlertType) ([]models.AlertRule, error) {
	return e.store.GetPendingAlerts(ctx, alertType)
}

// Get returns one rule by id, or ErrDataNotFound.
func (e *Engine) Get(ctx context.Context, id string) (*models.AlertRule, error) {
	rule, err := e.store.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, apperrors.ErrDataNotFound
	}
	return rule, nil
}

// CheckPriceAlerts evaluates all pending price rules against live quotes.
func (e *Engine) CheckPriceAlerts(ctx context.Context) ([]Trigger, error) {
	return e.checkRules(ctx, models.AlertTypePrice, func(ctx context.Context, rule *models.AlertRule) (bool, float64, error) {
		quote, err := e.provider.GetQuote(ctx, rule.Symbol)
		if err != nil {
			return false, 0, err
		}
		switch rule.Condition {
		case models.ConditionAbove:
			return quote.Price >= rule.TargetPrice, quote.Price, nil
		case models.ConditionBelow:
			return quote.Price <= rule.TargetPrice, quote.Price, nil
		case models.ConditionChangePercent:
			return math.Abs(quote.ChangePercent) >= rule.Threshold, quote.ChangePercent, nil
		}
		return false, 0, nil
	})
}

// CheckVolumeAlerts evaluates all pending volume rules. The average volume
// comes from the quote when the provider supplies it, otherwise it is
// derived from a month of history.
func (e *Engine) CheckVolumeAlerts(ctx context.Context) ([]Trigger, error) {
	return e.checkRules(ctx, models.AlertTypeVolume, func(ctx context.Context, rule *models.AlertRule) (bool, float64, error) {
		quote, err := e.provider.GetQuote(ctx, rule.Symbol)
		if err != nil {
			return false, 0, err
		}

		avgVolume := quote.AvgVolume
		if avgVolume <= 0 {
			bars, err := e.provider.GetHistory(ctx, rule.Symbol, marketdata.RangeOneMonth)
			if err != nil {
				return false, 0, err
			}
			avgVolume = marketdata.AverageVolume(bars, marketdata.AvgVolumePeriod)
		}

		ratio := marketdata.VolumeRatio(quote.Volume, avgVolume)
		return ratio >= rule.Threshold && ratio > 0, ratio, nil
	})
}

// CheckRSIAlerts evaluates all pending RSI rules.
func (e *Engine) CheckRSIAlerts(ctx context.Context) ([]Trigger, error) {
	return e.checkRules(ctx, models.AlertTypeRSI, func(ctx context.Context, rule *models.AlertRule) (bool, float64, error) {
		rsi, err := e.provider.GetRSI(ctx, rule.Symbol, rsiPeriod, marketdata.IntervalDaily)
		if err != nil {
			return false, 0, err
		}
		switch rule.Condition {
		case models.ConditionOversold:
			return rsi < rsiOversoldLevel, rsi, nil
		case models.ConditionOverbought:
			return rsi > rsiOverboughtLevel, rsi, nil
		}
		return false, 0, nil
	})
}

// CheckEarningsAlerts fires rules whose symbol reports earnings within the
// proximity window. The observed value is hours until the event.
func (e *Engine) CheckEarningsAlerts(ctx context.Context) ([]Trigger, error) {
	pending, err := e.store.GetPendingAlerts(ctx, models.AlertTypeEarnings)
	if err != nil {
		return nil, apperrors.Wrap(err, "loading pending earnings alerts")
	}
	if len(pending) == 0 {
		return nil, nil
	}

	now := time.Now()
	events, err := e.provider.GetEarningsCalendar(ctx, now, now.Add(e.earningsWindow))
	if err != nil {
		// Calendar outage: every rule stays pending for the next pass.
		e.logger.Warn().Err(err).Msg("Earnings calendar unavailable")
		return nil, nil
	}

	nextEarnings := make(map[string]time.Time, len(events))
	for _, event := range events {
		symbol := strings.ToUpper(event.Symbol)
		if existing, ok := nextEarnings[symbol]; !ok || event.Date.Before(existing) {
			nextEarnings[symbol] = event.Date
		}
	}

	var triggers []Trigger
	for i := range pending {
		rule := &pending[i]
		eventDate, ok := nextEarnings[rule.Symbol]
		if !ok {
			continue
		}
		hoursUntil := eventDate.Sub(now).Hours()
		if hoursUntil > 0 && hoursUntil <= e.earningsWindow.Hours() {
			if t := e.fire(ctx, rule, hoursUntil); t != nil {
				triggers = append(triggers, *t)
			}
		}
	}
	return triggers, nil
}

// CheckAll runs the four rule-type checks concurrently and assembles the
// summary after all have settled.
func (e *Engine) CheckAll(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	var wg sync.WaitGroup
	checks := []struct {
		run  func(context.Context) ([]Trigger, error)
		dest *[]Trigger
	}{
		{e.CheckPriceAlerts, &summary.Price},
		{e.CheckVolumeAlerts, &summary.Volume},
		{e.CheckRSIAlerts, &summary.RSI},
		{e.CheckEarningsAlerts, &summary.Earnings},
	}

	for _, check := range checks {
		wg.Add(1)
		go func(run func(context.Context) ([]Trigger, error), dest *[]Trigger) {
			defer wg.Done()
			triggers, err := run(ctx)
			if err != nil {
				e.logger.Warn().Err(err).Msg("Alert check failed")
				return
			}
			*dest = triggers
		}(check.run, check.dest)
	}
	wg.Wait()

	return summary, ctx.Err()
}

// evaluator fetches the live datum for one rule and reports whether the
// rule's predicate holds, plus the observed value.
type evaluator func(ctx context.Context, rule *models.AlertRule) (bool, float64, error)

// checkRules iterates pending rules of one type. A per-rule fetch error is
// logged and the rule stays pending for the next pass.
func (e *Engine) checkRules(ctx context.Context, alertType models.AlertType, evaluate evaluator) ([]Trigger, error) {
	pending, err := e.store.GetPendingAlerts(ctx, alertType)
	if err != nil {
		return nil, apperrors.Wrapf(err, "loading pending %s alerts", alertType)
	}

	var triggers []Trigger
	for i := range pending {
		rule := &pending[i]

		if ctx.Err() != nil {
			return triggers, ctx.Err()
		}

		holds, observed, err := evaluate(ctx, rule)
		if err != nil {
			e.logger.Debug().Err(err).Str("alert_id", rule.ID).Msg("Alert check skipped")
			continue
		}
		if !holds {
			continue
		}

		if t := e.fire(ctx, rule, observed); t != nil {
			triggers = append(triggers, *t)
		}
	}
	return triggers, nil
}

// fire transitions a rule to triggered exactly once and emits the trigger.
// The store update is conditional on the rule still being pending, so a
// concurrent pass cannot fire the same rule twice.
func (e *Engine) fire(ctx context.Context, rule *models.AlertRule, observed float64) *Trigger {
	now := time.Now()

	e.mu.Lock()
	err := e.store.TriggerAlert(ctx, rule.ID, now)
	e.mu.Unlock()
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrDataNotFound) {
			e.logger.Warn().Err(err).Str("alert_id", rule.ID).Msg("Failed to persist trigger")
		}
		return nil
	}

	rule.Triggered = true
	rule.TriggeredAt = &now

	logging.LogAlert(e.logger, rule.ID, rule.Symbol, rule.Condition, observed)

	trigger := Trigger{Rule: *rule, Observed: observed, At: now}
	e.mu.Lock()
	fn := e.onTrigger
	e.mu.Unlock()
	if fn != nil {
		fn(trigger)
	}
	return &trigger
}
