package models

import "time"

// AlertType represents the kind of market datum an alert rule watches.
type AlertType string

const (
	AlertTypePrice    AlertType = "price"
	AlertTypeVolume   AlertType = "volume"
	AlertTypeRSI      AlertType = "rsi"
	AlertTypeEarnings AlertType = "earnings"
)

// Alert condition values, per alert type.
const (
	// Price conditions
	ConditionAbove         = "above"
	ConditionBelow         = "below"
	ConditionChangePercent = "change_percent"
	// RSI conditions
	ConditionOversold   = "oversold"
	ConditionOverbought = "overbought"
	// Volume condition (multiplier of average volume)
	ConditionMultiplier = "multiplier"
	// Earnings condition (proximity window)
	ConditionProximity = "proximity"
)

// AlertRule is a persisted, user-declared condition watched against live
// market data. A rule transitions pending -> triggered exactly once and
// never re-arms.
type AlertRule struct {
	ID          string     `json:"id"`
	Type        AlertType  `json:"type"`
	Symbol      string     `json:"symbol"`
	Condition   string     `json:"condition"`
	TargetPrice float64    `json:"targetPrice,omitempty"`
	Threshold   float64    `json:"threshold,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Triggered   bool       `json:"triggered"`
	TriggeredAt *time.Time `json:"triggeredAt,omitempty"`
}
