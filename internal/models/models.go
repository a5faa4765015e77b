// Package models provides domain models for the market-scout engine.
package models

import (
	"time"
)

// Quote represents a live market quote for a symbol.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        int64   `json:"volume"`
	MarketCap     float64 `json:"marketCap"`
	AvgVolume     float64 `json:"avgVolume,omitempty"`
}

// Bar represents OHLCV data for a single period.
// Bar sequences are ordered most-recent-first.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// EarningsEvent represents an entry in the earnings calendar.
type EarningsEvent struct {
	Symbol string    `json:"symbol"`
	Name   string    `json:"name"`
	Date   time.Time `json:"date"`
	Time   string    `json:"time"` // bmo, amc, or empty when unknown
}

// Strategy identifies which screening strategy produced an opportunity.
type Strategy string

const (
	StrategyEarnings       Strategy = "earnings"
	StrategyOversoldBounce Strategy = "oversold_bounce"
	StrategyUnusualVolume  Strategy = "unusual_volume"
)

// Trend represents a short-horizon price trend.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// Direction indicates which way price moved on a volume event.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Opportunity is a candidate trading signal produced by the screening engine.
// Score is always clamped to [0, 100].
type Opportunity struct {
	Symbol      string         `json:"symbol"`
	Strategy    Strategy       `json:"strategy"`
	Quote       Quote          `json:"quote"`
	RSI         float64        `json:"rsi,omitempty"`
	Trend       Trend          `json:"trend,omitempty"`
	VolumeRatio float64        `json:"volumeRatio,omitempty"`
	Direction   Direction      `json:"direction,omitempty"`
	Score       int            `json:"score"`
	Event       *EarningsEvent `json:"event,omitempty"`
}
