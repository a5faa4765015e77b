package outcome

import (
	"context"
	"fmt"
	"time"

	"market-scout/internal/models"
	"market-scout/internal/store"
)

// Fixed win-rate targets per signal kind, in percent.
const (
	TargetEarnings = 60.0
	TargetOversold = 55.0
	TargetAlerts   = 70.0
)

// usageWindowDays is how many recent days feed the usage aggregates.
const usageWindowDays = 7

// KindMetrics summarizes realized outcomes for one signal kind.
type KindMetrics struct {
	Kind       models.SignalKind `json:"kind"`
	Total      int               `json:"total"`
	Completed  int               `json:"completed"`
	Profitable int               `json:"profitable"`
	WinRate    float64           `json:"winRate"`
	Target     float64           `json:"target"`
	Summary    string            `json:"summary"`
}

// UsageMetrics aggregates feature usage over the recent window.
type UsageMetrics struct {
	Days         int                `json:"days"`
	Totals       map[string]int     `json:"totals"`
	DailyAverage map[string]float64 `json:"dailyAverage"`
}

// Metrics is the flattened success view consumed by the reporting surface.
type Metrics struct {
	EarningsPlays   KindMetrics  `json:"earningsPlays"`
	OversoldBounces KindMetrics  `json:"oversoldBounces"`
	AlertTriggers   KindMetrics  `json:"alertTriggers"`
	Usage           UsageMetrics `json:"usage"`
	GeneratedAt     time.Time    `json:"generatedAt"`
}

// SuccessMetrics derives win rates per signal kind against their fixed
// targets and aggregates the last 7 days of feature usage. A kind with no
// history reports a 0% win rate, never a division by zero.
func (t *Tracker) SuccessMetrics(ctx context.Context) (*Metrics, error) {
	earnings, err := t.kindMetrics(ctx, models.KindEarningsPlay, TargetEarnings)
	if err != nil {
		return nil, err
	}
	oversold, err := t.kindMetrics(ctx, models.KindOversoldBounce, TargetOversold)
	if err != nil {
		return nil, err
	}
	alertKind, err := t.kindMetrics(ctx, models.KindAlertTrigger, TargetAlerts)
	if err != nil {
		return nil, err
	}

	usage, err := t.usageMetrics(ctx)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		EarningsPlays:   earnings,
		OversoldBounces: oversold,
		AlertTriggers:   alertKind,
		Usage:           usage,
		GeneratedAt:     t.now(),
	}, nil
}

func (t *Tracker) kindMetrics(ctx context.Context, kind models.SignalKind, target float64) (KindMetrics, error) {
	signals, err := t.store.GetSignals(ctx, store.SignalFilter{Kind: kind})
	if err != nil {
		return KindMetrics{}, err
	}

	m := KindMetrics{Kind: kind, Target: target}
	for _, sig := range signals {
		m.Total++
		if sig.Completed {
			m.Completed++
			if sig.Profit > 0 {
				m.Profitable++
			}
		}
	}

	if m.Total > 0 {
		m.WinRate = float64(m.Profitable) / float64(m.Total) * 100
	}
	m.Summary = fmt.Sprintf("%.1f%% win rate (%d/%d)", m.WinRate, m.Profitable, m.Total)

	return m, nil
}

func (t *Tracker) usageMetrics(ctx context.Context) (UsageMetrics, error) {
	records, err := t.store.GetUsage(ctx, usageWindowDays)
	if err != nil {
		return UsageMetrics{}, err
	}

	usage := UsageMetrics{
		Days:         len(records),
		Totals:       make(map[string]int),
		DailyAverage: make(map[string]float64),
	}

	for _, record := range records {
		for feature, count := range record.Counts {
			usage.Totals[feature] += count
		}
	}

	if usage.Days > 0 {
		for feature, total := range usage.Totals {
			usage.DailyAverage[feature] = float64(total) / float64(usage.Days)
		}
	}

	return usage, nil
}
