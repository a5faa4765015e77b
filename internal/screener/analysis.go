package screener

import (
	"market-scout/internal/models"
)

// trendBars is how many of the most recent bars feed the trend computation.
const trendBars = 5

// Percentage move beyond which the pre-event trend is called directional.
const trendThresholdPercent = 3.0

// priceTrend classifies the short-horizon trend from the 5 most recent bars:
// the percentage change from the oldest to the newest close.
func priceTrend(bars []models.Bar) models.Trend {
	n := trendBars
	if n > len(bars) {
		n = len(bars)
	}
	if n < 2 {
		return models.TrendNeutral
	}

	newest := bars[0].Close
	oldest := bars[n-1].Close
	if oldest == 0 {
		return models.TrendNeutral
	}

	changePercent := (newest - oldest) / oldest * 100
	switch {
	case changePercent > trendThresholdPercent:
		return models.TrendBullish
	case changePercent < -trendThresholdPercent:
		return models.TrendBearish
	default:
		return models.TrendNeutral
	}
}
