package validation

import (
	"time"

	"NiftyPulse/internal/domain/models"
)

// InferInterval estimates the expected sampling cadence from bars already
// filtered to trading instants and sorted by timestamp. The result is the
// mode of the successive timestamp differences, so isolated gaps do not
// shift it off the dominant cadence. Ties resolve to the smallest duration.
// ok is false when fewer than two trading bars exist or the mode is not
// positive.
func InferInterval(tradingBars []models.Bar) (expected time.Duration, tradingCount int, ok bool) {
	tradingCount = len(tradingBars)
	if tradingCount < 2 {
		return 0, tradingCount, false
	}

	counts := make(map[time.Duration]int, tradingCount-1)
	for i := 1; i < tradingCount; i++ {
		d := tradingBars[i].Timestamp.Sub(tradingBars[i-1].Timestamp)
		counts[d]++
	}
	if len(counts) == 0 {
		return 0, tradingCount, false
	}

	best := time.Duration(0)
	bestCount := -1
	for d, c := range counts {
		if c > bestCount || (c == bestCount && d < best) {
			best = d
			bestCount = c
		}
	}
	// A mode of zero (duplicate timestamps dominate) is not a cadence.
	if best <= 0 {
		return 0, tradingCount, false
	}
	return best, tradingCount, true
}
