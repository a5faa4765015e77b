// Package screener implements the signal screening engine: earnings-window
// setups, oversold bounces, and unusual volume events over a watch-list.
package screener

import (
	"market-scout/internal/models"
)

// baseScore is the starting point for every scoring table.
const baseScore = 50

// ScoreInput carries the per-candidate measurements a scoring rule can see.
type ScoreInput struct {
	ChangePercent float64
	RSI           float64
	Trend         models.Trend
	Volume        int64
	AvgVolume     float64
	MarketCap     float64
	VolumeRatio   float64
}

// ScoreRule is a single named scoring rule: when the predicate holds for an
// input, the delta is applied. Rules are independent and auditable.
type ScoreRule struct {
	Name  string
	When  func(ScoreInput) bool
	Delta int
}

// earningsRules scores earnings-window candidates.
var earningsRules = []ScoreRule{
	{"strong_positive_change", func(in ScoreInput) bool { return in.ChangePercent > 2 }, 15},
	{"mild_positive_change", func(in ScoreInput) bool { return in.ChangePercent > 0 && in.ChangePercent <= 2 }, 5},
	{"strong_negative_change", func(in ScoreInput) bool { return in.ChangePercent < -2 }, -10},
	{"healthy_rsi", func(in ScoreInput) bool { return in.RSI >= 40 && in.RSI <= 70 }, 10},
	{"oversold_rsi", func(in ScoreInput) bool { return in.RSI < 30 }, -5},
	{"overbought_rsi", func(in ScoreInput) bool { return in.RSI > 80 }, -10},
	{"bullish_trend", func(in ScoreInput) bool { return in.Trend == models.TrendBullish }, 15},
	{"bearish_trend", func(in ScoreInput) bool { return in.Trend == models.TrendBearish }, -10},
	{"volume_spike", func(in ScoreInput) bool { return in.AvgVolume > 0 && float64(in.Volume) > 2*in.AvgVolume }, 10},
	{"large_cap", func(in ScoreInput) bool { return in.MarketCap > 10_000_000_000 }, 5},
}

// bounceRules scores oversold-bounce candidates. The RSI and volume-ratio
// bands are mutually exclusive, so exactly one rule from each group fires.
var bounceRules = []ScoreRule{
	{"deeply_oversold", func(in ScoreInput) bool { return in.RSI < 20 }, 30},
	{"very_oversold", func(in ScoreInput) bool { return in.RSI >= 20 && in.RSI < 25 }, 20},
	{"oversold", func(in ScoreInput) bool { return in.RSI >= 25 }, 10},
	{"heavy_volume", func(in ScoreInput) bool { return in.VolumeRatio > 3 }, 20},
	{"elevated_volume", func(in ScoreInput) bool { return in.VolumeRatio > 2 && in.VolumeRatio <= 3 }, 10},
}

// applyRules evaluates a rule table from the base score and clamps the
// result to [0, 100].
func applyRules(rules []ScoreRule, in ScoreInput) int {
	score := baseScore
	for _, rule := range rules {
		if rule.When(in) {
			score += rule.Delta
		}
	}
	return clampScore(score)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
