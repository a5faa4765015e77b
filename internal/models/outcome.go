package models

import "time"

// SignalKind classifies a tracked signal by its origin.
type SignalKind string

const (
	KindEarningsPlay   SignalKind = "earnings_play"
	KindOversoldBounce SignalKind = "oversold_bounce"
	KindAlertTrigger   SignalKind = "alert_trigger"
)

// TrackedSignal records a generated signal or triggered alert together with
// its entry context, and later the realized outcome. Outcome fields are set
// exactly once, when the record is completed; they are present iff
// Completed is true.
type TrackedSignal struct {
	ID            string            `json:"id"`
	Kind          SignalKind        `json:"kind"`
	Symbol        string            `json:"symbol"`
	EntryPrice    float64           `json:"entryPrice"`
	EntryAt       time.Time         `json:"entryAt"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Completed     bool              `json:"completed"`
	ExitPrice     float64           `json:"exitPrice,omitempty"`
	Profit        float64           `json:"profit,omitempty"`
	ProfitPercent float64           `json:"profitPercent,omitempty"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
}

// DailyUsage holds per-feature usage counts for one calendar day (UTC).
// A record is incremented during its day and immutable once the day rolls
// over.
type DailyUsage struct {
	Date   string         `json:"date"` // YYYY-MM-DD
	Counts map[string]int `json:"counts"`
}
