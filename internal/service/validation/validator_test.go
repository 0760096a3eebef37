package validation

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NiftyPulse/internal/domain/models"
	"NiftyPulse/internal/service/calendar"
)

// tradingDay is a Monday with no holiday in the India calendar.
var tradingDay = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	cal, err := calendar.New(calendar.NewIndiaHolidays(), "IN", calendar.DefaultTradingStart, calendar.DefaultTradingEnd)
	require.NoError(t, err)
	return New(DefaultRules(), cal)
}

func minuteBar(day time.Time, h, m int) models.Bar {
	ts := time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, time.UTC)
	return models.Bar{
		Timestamp: ts,
		Symbol:    "RELIANCE",
		Open:      100.0,
		High:      101.0,
		Low:       99.5,
		Close:     100.5,
		Volume:    1200,
	}
}

// fullSession returns one trading day of 1-minute bars, 09:15 through 15:29.
func fullSession(day time.Time) []models.Bar {
	start := time.Date(day.Year(), day.Month(), day.Day(), 9, 15, 0, 0, time.UTC)
	bars := make([]models.Bar, 0, 375)
	for m := 0; m < 375; m++ {
		ts := start.Add(time.Duration(m) * time.Minute)
		bars = append(bars, minuteBar(day, ts.Hour(), ts.Minute()))
	}
	return bars
}

func dropMinute(bars []models.Bar, h, m int) []models.Bar {
	out := bars[:0:0]
	for _, b := range bars {
		if b.Timestamp.Hour() == h && b.Timestamp.Minute() == m {
			continue
		}
		out = append(out, b)
	}
	return out
}

func TestPerfectTradingDayScoresOne(t *testing.T) {
	v := newTestValidator(t)
	bars := fullSession(tradingDay)
	require.Len(t, bars, 375)

	report := v.Validate(bars, "RELIANCE")

	assert.True(t, report.IsValid)
	assert.Equal(t, 1.0, report.OverallScore)
	assert.Empty(t, report.Issues)
	assert.True(t, report.Anomalies.Empty())
}

func TestSingleMissingBarDetectedAsGapAndMissingMinute(t *testing.T) {
	v := newTestValidator(t)
	bars := dropMinute(fullSession(tradingDay), 10, 0)

	report := v.Validate(bars, "RELIANCE")

	require.Len(t, report.Anomalies.Gaps, 1)
	gap := report.Anomalies.Gaps[0]
	assert.Equal(t, 1, gap.MissingIntervals)
	assert.Equal(t, 2, gap.DurationMinutes)
	assert.Equal(t, 1, gap.ExpectedIntervalMinutes)
	assert.Equal(t, time.Date(2024, 6, 10, 9, 59, 0, 0, time.UTC), gap.Start)
	assert.Equal(t, time.Date(2024, 6, 10, 10, 1, 0, 0, time.UTC), gap.End)

	require.Len(t, report.Anomalies.MissingMinutes, 1)
	assert.Equal(t, time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC), report.Anomalies.MissingMinutes[0].Missing)

	assert.Less(t, report.OverallScore, 1.0)
	assertContainsIssue(t, report.Issues, "Missing time intervals")
}

func TestFiveMinuteHoleReportsFourMissingIntervals(t *testing.T) {
	v := newTestValidator(t)
	bars := fullSession(tradingDay)
	for m := 0; m < 4; m++ {
		bars = dropMinute(bars, 10, m)
	}

	report := v.Validate(bars, "RELIANCE")

	require.Len(t, report.Anomalies.Gaps, 1)
	assert.Equal(t, 4, report.Anomalies.Gaps[0].MissingIntervals)
	assert.Equal(t, 5, report.Anomalies.Gaps[0].DurationMinutes)
}

func TestOHLCSubscoreExactlyOneWhenConsistent(t *testing.T) {
	v := newTestValidator(t)
	bars := fullSession(tradingDay)

	report := v.Validate(bars, "RELIANCE")
	for _, issue := range report.Issues {
		assert.NotContains(t, issue, "OHLC")
	}
	assert.Equal(t, 1.0, report.OverallScore)
}

func TestOHLCViolationsReduceScore(t *testing.T) {
	v := newTestValidator(t)
	bars := fullSession(tradingDay)
	bars[0].High = bars[0].Low - 1 // violates both bounds

	report := v.Validate(bars, "RELIANCE")
	assertContainsIssue(t, report.Issues, "OHLC logic violations")
	assert.Less(t, report.OverallScore, 1.0)
}

func TestWeekendBarsRecordedAsNonTrading(t *testing.T) {
	v := newTestValidator(t)
	saturday := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)
	bars := []models.Bar{minuteBar(saturday, 10, 0), minuteBar(saturday, 10, 1)}

	report := v.Validate(bars, "RELIANCE")

	require.Len(t, report.Anomalies.NonTradingInstants, 2)
	inst := report.Anomalies.NonTradingInstants[0]
	assert.Equal(t, models.ReasonWeekend, inst.Reason)
	assert.Equal(t, "Saturday", inst.Day)
	assert.Equal(t, 100.0, inst.Open)
	assert.Equal(t, int64(1200), inst.Volume)
	assertContainsIssue(t, report.Issues, "non-trading days")
}

func TestHolidayBarsCarryHolidayName(t *testing.T) {
	v := newTestValidator(t)
	independence := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC) // Thursday
	bars := []models.Bar{minuteBar(independence, 10, 0), minuteBar(independence, 10, 1)}

	report := v.Validate(bars, "RELIANCE")

	require.NotEmpty(t, report.Anomalies.NonTradingInstants)
	inst := report.Anomalies.NonTradingInstants[0]
	assert.Equal(t, models.ReasonHoliday, inst.Reason)
	assert.Equal(t, "Independence Day", inst.HolidayName)
}

func TestEmptyBatchShortCircuits(t *testing.T) {
	v := newTestValidator(t)

	report := v.Validate(nil, "RELIANCE")

	assert.False(t, report.IsValid)
	assert.Equal(t, 0.0, report.OverallScore)
	assert.Equal(t, []string{"Empty dataset"}, report.Issues)
	assert.True(t, report.Anomalies.Empty())
}

func TestPriceOutOfRangeFlagged(t *testing.T) {
	v := newTestValidator(t)
	bars := fullSession(tradingDay)
	bars[5].Close = 250000 // above the 200000 band

	report := v.Validate(bars, "RELIANCE")
	assertContainsIssue(t, report.Issues, "close out of range")
	assert.Less(t, report.OverallScore, 1.0)
}

func TestNegativeVolumeFlagged(t *testing.T) {
	v := newTestValidator(t)
	bars := fullSession(tradingDay)
	bars[7].Volume = -10

	report := v.Validate(bars, "RELIANCE")
	assertContainsIssue(t, report.Issues, "Invalid volume")
}

func TestOutsideTradingHoursFlagged(t *testing.T) {
	v := newTestValidator(t)
	bars := fullSession(tradingDay)
	bars = append(bars, minuteBar(tradingDay, 16, 45))

	report := v.Validate(bars, "RELIANCE")
	assertContainsIssue(t, report.Issues, "outside trading hours (09:15-15:30)")
}

func TestDuplicateTimestampsCounted(t *testing.T) {
	v := newTestValidator(t)
	bars := fullSession(tradingDay)
	bars = append(bars, bars[10], bars[10])

	report := v.Validate(bars, "RELIANCE")
	assertContainsIssue(t, report.Issues, "Duplicate timestamps: 2")
}

func TestZeroTimestampsCounted(t *testing.T) {
	v := newTestValidator(t)
	bars := fullSession(tradingDay)
	bars[3].Timestamp = time.Time{}

	report := v.Validate(bars, "RELIANCE")
	assertContainsIssue(t, report.Issues, "Missing timestamps: 1")
}

func TestDuplicateTimestampsScoreWithoutFault(t *testing.T) {
	v := newTestValidator(t)
	// Duplicates force the inferred interval to zero; the gap check must
	// skip rather than fault over it.
	bars := []models.Bar{
		minuteBar(tradingDay, 10, 0),
		minuteBar(tradingDay, 10, 0),
		minuteBar(tradingDay, 10, 5),
	}

	report := v.Validate(bars, "RELIANCE")
	for _, issue := range report.Issues {
		assert.NotContains(t, issue, "Validation failed")
	}
	assert.Greater(t, report.OverallScore, 0.0)
	assertContainsIssue(t, report.Issues, "Duplicate timestamps: 1")
}

func TestZeroTimestampIsStructuralFailure(t *testing.T) {
	v := newTestValidator(t)
	bars := fullSession(tradingDay)
	bars[3].Timestamp = time.Time{}

	report := v.Validate(bars, "RELIANCE")
	assertContainsIssue(t, report.Issues, "Missing fields: [timestamp]")
	assert.False(t, report.IsValid)
}

func TestNaNPriceIsStructuralFailure(t *testing.T) {
	v := newTestValidator(t)
	bars := fullSession(tradingDay)
	bars[0].Open = math.NaN()

	report := v.Validate(bars, "RELIANCE")
	assertContainsIssue(t, report.Issues, "Missing fields")
	assert.False(t, report.IsValid)
}

func TestScoreAlwaysWithinUnitIntervalAndThresholdApplied(t *testing.T) {
	v := newTestValidator(t)

	batches := [][]models.Bar{
		fullSession(tradingDay),
		dropMinute(fullSession(tradingDay), 11, 30),
		{minuteBar(tradingDay, 10, 0)},
		{minuteBar(time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC), 2, 0)},
	}
	for i, bars := range batches {
		report := v.Validate(bars, fmt.Sprintf("SYM%d", i))
		assert.GreaterOrEqual(t, report.OverallScore, 0.0)
		assert.LessOrEqual(t, report.OverallScore, 1.0)
		assert.Equal(t, report.OverallScore >= 0.95, report.IsValid)
	}
}

func TestGapCheckSkippedWhenIntervalUndetermined(t *testing.T) {
	v := newTestValidator(t)
	// Two bars, only one inside the trading calendar: no cadence to infer.
	bars := []models.Bar{
		minuteBar(tradingDay, 10, 0),
		minuteBar(tradingDay, 17, 0), // outside window, not a trading instant
	}

	report := v.Validate(bars, "RELIANCE")
	assert.Empty(t, report.Anomalies.Gaps)
}

func TestValidationFaultConvertedToNegativeReport(t *testing.T) {
	v := New(DefaultRules(), nil) // nil calendar makes the battery fault

	report := v.Validate([]models.Bar{minuteBar(tradingDay, 10, 0)}, "RELIANCE")

	assert.False(t, report.IsValid)
	assert.Equal(t, 0.0, report.OverallScore)
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0], "Validation failed:")
	assert.True(t, report.Anomalies.Empty())
}

func TestMultiDayGapExcludedFromMissingIntervals(t *testing.T) {
	v := newTestValidator(t)
	// Two full sessions a week apart: the overnight gap exceeds 1000
	// missing intervals and must not be counted.
	week2 := tradingDay.AddDate(0, 0, 7)
	bars := append(fullSession(tradingDay), fullSession(week2)...)

	report := v.Validate(bars, "RELIANCE")
	assert.Empty(t, report.Anomalies.Gaps)
}

func assertContainsIssue(t *testing.T, issues []string, substr string) {
	t.Helper()
	for _, issue := range issues {
		if strings.Contains(issue, substr) {
			return
		}
	}
	t.Fatalf("issues %v do not contain %q", issues, substr)
}
