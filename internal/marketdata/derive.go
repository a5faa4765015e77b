package marketdata

import (
	"market-scout/internal/models"
)

// AvgVolumePeriod is the default trailing window for average volume.
const AvgVolumePeriod = 20

// AverageVolume returns the arithmetic mean of the most recent min(n, len)
// positive volume samples. Bars are ordered most-recent-first. Returns 0
// when no sample is positive; callers treat a zero average as "volume data
// unavailable" and never flag a volume spike off it.
func AverageVolume(bars []models.Bar, n int) float64 {
	if n > len(bars) {
		n = len(bars)
	}

	var sum float64
	var count int
	for _, b := range bars[:n] {
		if b.Volume > 0 {
			sum += float64(b.Volume)
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// VolumeRatio returns current volume over average volume, or 0 when the
// average is not computable.
func VolumeRatio(currentVolume int64, avgVolume float64) float64 {
	if avgVolume <= 0 {
		return 0
	}
	return float64(currentVolume) / avgVolume
}
