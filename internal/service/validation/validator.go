package validation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"NiftyPulse/internal/domain/models"
	"NiftyPulse/internal/service/calendar"
)

const (
	// Per-gap missing intervals above this are treated as multi-day spans
	// and excluded from the count.
	maxMissingPerGap = 1000
	// Hard ceiling for the total missing-interval count of a batch.
	maxMissingTotal = 10000
)

// Validator runs an ordered battery of quality checks over a batch of bars
// and folds the subscores into one [0,1] score and an accept/reject verdict.
//
// Each check that applies contributes exactly one subscore term; checks that
// cannot apply (gap detection with an undetermined interval, the minute check
// on non-minute data) contribute no term, so the overall score is the mean
// over a variable number of terms. That is deliberate and load-bearing for
// acceptance behavior; do not replace it with a fixed-weight average.
type Validator struct {
	rules Rules
	cal   *calendar.Calendar
}

// New creates a Validator around a trading calendar.
func New(rules Rules, cal *calendar.Calendar) *Validator {
	return &Validator{rules: rules, cal: cal}
}

// Rules returns the active rule set.
func (v *Validator) Rules() Rules { return v.rules }

// Validate scores a batch of bars for symbol. It never panics or returns an
// error: any fault during validation becomes a negative report with a
// "Validation failed" issue and score 0.
func (v *Validator) Validate(bars []models.Bar, symbol string) (report models.QualityReport) {
	defer func() {
		if r := recover(); r != nil {
			report = models.QualityReport{
				Symbol:       symbol,
				Issues:       []string{fmt.Sprintf("Validation failed: %v", r)},
				OverallScore: 0,
				IsValid:      false,
			}
		}
	}()

	n := len(bars)
	issues := []string{}
	var scores []float64
	var bundle models.AnomalyBundle

	// Structural check: required numeric fields present in every bar.
	if missing := missingFields(bars); len(missing) > 0 {
		issues = append(issues, fmt.Sprintf("Missing fields: %v", missing))
		scores = append(scores, 0)
	} else {
		scores = append(scores, 1)
	}

	if n == 0 {
		return models.QualityReport{
			Symbol:       symbol,
			Issues:       append(issues, "Empty dataset"),
			OverallScore: 0,
			IsValid:      false,
		}
	}
	fn := float64(n)

	// OHLC logic: high must bound open/close/low from above, low from below.
	if v.rules.OHLCLogic {
		violations := 0
		for _, b := range bars {
			if b.High < b.Open || b.High < b.Close || b.High < b.Low {
				violations++
			}
			if b.Low > b.Open || b.Low > b.Close || b.Low > b.High {
				violations++
			}
		}
		if violations > 0 {
			issues = append(issues, fmt.Sprintf("OHLC logic violations: %d", violations))
			scores = append(scores, clampScore(1-float64(violations)/fn))
		} else {
			scores = append(scores, 1)
		}
	}

	// Price range: one multiplicative subscore across the four price fields.
	priceQuality := 1.0
	for _, f := range []struct {
		name string
		get  func(models.Bar) float64
	}{
		{"open", func(b models.Bar) float64 { return b.Open }},
		{"high", func(b models.Bar) float64 { return b.High }},
		{"low", func(b models.Bar) float64 { return b.Low }},
		{"close", func(b models.Bar) float64 { return b.Close }},
	} {
		outOfRange := 0
		for _, b := range bars {
			p := f.get(b)
			if p < v.rules.PriceMin || p > v.rules.PriceMax {
				outOfRange++
			}
		}
		if outOfRange > 0 {
			issues = append(issues, fmt.Sprintf("%s out of range: %d bars", f.name, outOfRange))
			priceQuality *= clampScore(1 - float64(outOfRange)/fn)
		}
	}
	scores = append(scores, priceQuality)

	// Volume validity.
	badVolume := 0
	for _, b := range bars {
		if b.Volume < v.rules.VolumeMin {
			badVolume++
		}
	}
	if badVolume > 0 {
		issues = append(issues, fmt.Sprintf("Invalid volume: %d bars", badVolume))
		scores = append(scores, clampScore(1-float64(badVolume)/fn))
	} else {
		scores = append(scores, 1)
	}

	// Trading-hours membership.
	outsideHours := 0
	for _, b := range bars {
		if !b.Timestamp.IsZero() && !v.cal.InWindow(b.Timestamp) {
			outsideHours++
		}
	}
	if outsideHours > 0 {
		issues = append(issues, fmt.Sprintf("Timestamps outside trading hours (%s): %d", v.cal.WindowLabel(), outsideHours))
		scores = append(scores, clampScore(1-float64(outsideHours)/fn))
	} else {
		scores = append(scores, 1)
	}

	// Weekend/holiday membership, with OHLCV payload for export.
	if v.rules.CheckHolidays {
		if years := yearsOf(bars); len(years) > 0 {
			v.cal.EnsureYears(years)
			nonTrading := 0
			for _, b := range bars {
				if b.Timestamp.IsZero() {
					continue
				}
				reason, holidayName, hit := v.cal.ClassifyDay(b.Timestamp)
				if !hit {
					continue
				}
				nonTrading++
				inst := models.NonTradingInstant{
					Timestamp:   b.Timestamp,
					Reason:      reason,
					HolidayName: holidayName,
					Open:        b.Open,
					High:        b.High,
					Low:         b.Low,
					Close:       b.Close,
					Volume:      b.Volume,
				}
				if reason == models.ReasonWeekend {
					inst.Day = b.Timestamp.Weekday().String()
				}
				bundle.NonTradingInstants = append(bundle.NonTradingInstants, inst)
			}
			if nonTrading > 0 {
				issues = append(issues, fmt.Sprintf("Data on non-trading days (weekends/holidays): %d", nonTrading))
				scores = append(scores, clampScore(1-float64(nonTrading)/fn))
			} else {
				scores = append(scores, 1)
			}
		}
	}

	if v.rules.TimeSequence && n > 1 {
		// Timestamp presence.
		missingTS := 0
		for _, b := range bars {
			if b.Timestamp.IsZero() {
				missingTS++
			}
		}
		if missingTS > 0 {
			issues = append(issues, fmt.Sprintf("Missing timestamps: %d", missingTS))
			scores = append(scores, clampScore(1-float64(missingTS)/fn))
		} else {
			scores = append(scores, 1)
		}

		sorted := make([]models.Bar, n)
		copy(sorted, bars)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

		// Monotonic sequence: non-increasing consecutive pairs after sorting.
		seqErrors := 0
		for i := 1; i < n; i++ {
			if !sorted[i].Timestamp.After(sorted[i-1].Timestamp) {
				seqErrors++
			}
		}
		if seqErrors > 0 {
			issues = append(issues, fmt.Sprintf("Time sequence errors: %d", seqErrors))
			scores = append(scores, clampScore(1-float64(seqErrors)/fn))
		} else {
			scores = append(scores, 1)
		}

		tradingBars := v.tradingOnly(sorted)

		// Gap detection over trading-only bars. Skipped entirely (no
		// subscore term) when the cadence cannot be inferred.
		if expected, tradingCount, ok := InferInterval(tradingBars); ok && tradingCount > 1 {
			gapScore, gapIssue, gaps := detectGaps(tradingBars, expected, tradingCount)
			if gapIssue != "" {
				issues = append(issues, gapIssue)
			}
			bundle.Gaps = append(bundle.Gaps, gaps...)
			scores = append(scores, gapScore)
		}

		// Consecutive-minute check, only when the cadence looks minute-level.
		if looksMinuteLevel(sorted) {
			if len(tradingBars) > 1 {
				missing := collectMissingMinutes(tradingBars, &bundle)
				if missing > 0 {
					issues = append(issues, fmt.Sprintf("Missing consecutive minutes within trading hours: %d missing minute intervals", missing))
					scores = append(scores, clampScore(1-float64(missing)/float64(len(tradingBars))))
				} else {
					scores = append(scores, 1)
				}
			} else {
				scores = append(scores, 1)
			}
		}
	}

	// Duplicate timestamps.
	if v.rules.DuplicateCheck {
		seen := make(map[int64]struct{}, n)
		duplicates := 0
		for _, b := range bars {
			k := b.Timestamp.UnixNano()
			if _, ok := seen[k]; ok {
				duplicates++
				continue
			}
			seen[k] = struct{}{}
		}
		if duplicates > 0 {
			issues = append(issues, fmt.Sprintf("Duplicate timestamps: %d", duplicates))
			scores = append(scores, clampScore(1-float64(duplicates)/fn))
		} else {
			scores = append(scores, 1)
		}
	}

	overall := mean(scores)
	return models.QualityReport{
		Symbol:       symbol,
		Issues:       issues,
		OverallScore: overall,
		IsValid:      overall >= v.rules.QualityThreshold,
		Anomalies:    bundle,
	}
}

func (v *Validator) tradingOnly(sorted []models.Bar) []models.Bar {
	out := make([]models.Bar, 0, len(sorted))
	for _, b := range sorted {
		if v.cal.IsTradingInstant(b.Timestamp) {
			out = append(out, b)
		}
	}
	return out
}

// detectGaps flags consecutive trading-bar differences exceeding the expected
// interval by the tolerance factor: 1.1 for minute-or-finer cadences, 1.5
// otherwise. Per-gap missing intervals outside (0, maxMissingPerGap] are
// treated as multi-day spans and excluded.
func detectGaps(tradingBars []models.Bar, expected time.Duration, tradingCount int) (float64, string, []models.Gap) {
	tolerance := 1.5
	if expected <= time.Minute {
		tolerance = 1.1
	}
	threshold := time.Duration(float64(expected) * tolerance)

	gapCount := 0
	actualGaps := 0
	totalMissing := 0
	var gaps []models.Gap
	for i := 1; i < len(tradingBars); i++ {
		gap := tradingBars[i].Timestamp.Sub(tradingBars[i-1].Timestamp)
		if gap <= threshold {
			continue
		}
		gapCount++
		missing := int(gap/expected) - 1
		if missing <= 0 || missing > maxMissingPerGap {
			continue
		}
		totalMissing += missing
		actualGaps++
		gaps = append(gaps, models.Gap{
			Start:                   tradingBars[i-1].Timestamp,
			End:                     tradingBars[i].Timestamp,
			DurationMinutes:         int(gap / time.Minute),
			MissingIntervals:        missing,
			ExpectedIntervalMinutes: int(expected / time.Minute),
		})
	}
	if gapCount == 0 {
		return 1, "", nil
	}

	maxReasonable := tradingCount / 2
	if maxReasonable > maxMissingTotal {
		maxReasonable = maxMissingTotal
	}
	if totalMissing > maxReasonable {
		totalMissing = maxReasonable
	}

	var issue string
	if totalMissing > 0 {
		issue = fmt.Sprintf("Missing time intervals (trading hours only): %d gaps detected (%d missing data points)", actualGaps, totalMissing)
	} else {
		issue = fmt.Sprintf("Missing time intervals (trading hours only): %d gaps detected", actualGaps)
	}
	return clampScore(1 - float64(actualGaps)/float64(tradingCount)), issue, gaps
}

// looksMinuteLevel samples the first 10 timestamp differences; a smallest
// difference of two minutes or less marks the batch as minute data.
func looksMinuteLevel(sorted []models.Bar) bool {
	sampled := 0
	minDiff := time.Duration(math.MaxInt64)
	for i := 1; i < len(sorted) && sampled < 10; i++ {
		d := sorted[i].Timestamp.Sub(sorted[i-1].Timestamp)
		minDiff = min(minDiff, d)
		sampled++
	}
	return sampled > 0 && minDiff <= 2*time.Minute
}

// collectMissingMinutes walks same-day consecutive trading bars on
// minute-truncated timestamps and records every absent minute bucket.
func collectMissingMinutes(tradingBars []models.Bar, bundle *models.AnomalyBundle) int {
	missing := 0
	for i := 1; i < len(tradingBars); i++ {
		prev := tradingBars[i-1].Timestamp
		cur := tradingBars[i].Timestamp
		py, pm, pd := prev.Date()
		cy, cm, cd := cur.Date()
		if py != cy || pm != cm || pd != cd {
			continue
		}
		prevMinute := prev.Truncate(time.Minute)
		curMinute := cur.Truncate(time.Minute)
		expectedNext := prevMinute.Add(time.Minute)
		if !curMinute.After(expectedNext) {
			continue
		}
		count := int(curMinute.Sub(expectedNext) / time.Minute)
		missing += count
		for j := 0; j < count; j++ {
			bundle.MissingMinutes = append(bundle.MissingMinutes, models.MissingMinute{
				Missing: expectedNext.Add(time.Duration(j) * time.Minute),
				Prev:    prev,
				Next:    cur,
			})
		}
	}
	return missing
}

// missingFields reports which required fields are absent anywhere in the
// batch. NaN prices and zero timestamps both count as absent.
func missingFields(bars []models.Bar) []string {
	var missing []string
	has := map[string]bool{}
	for _, b := range bars {
		if b.Timestamp.IsZero() {
			has["timestamp"] = true
		}
		if math.IsNaN(b.Open) {
			has["open"] = true
		}
		if math.IsNaN(b.High) {
			has["high"] = true
		}
		if math.IsNaN(b.Low) {
			has["low"] = true
		}
		if math.IsNaN(b.Close) {
			has["close"] = true
		}
	}
	for _, f := range []string{"timestamp", "open", "high", "low", "close"} {
		if has[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

func yearsOf(bars []models.Bar) []int {
	set := map[int]struct{}{}
	for _, b := range bars {
		if !b.Timestamp.IsZero() {
			set[b.Timestamp.Year()] = struct{}{}
		}
	}
	years := make([]int, 0, len(set))
	for y := range set {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	return s
}

func mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
