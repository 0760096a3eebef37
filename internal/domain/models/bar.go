package models

import "time"

// Bar represents one OHLCV record for an instrument at a timestamp.
// A bar is uniquely identified by (Timestamp, Symbol).
type Bar struct {
	Timestamp    time.Time `json:"timestamp" parquet:"timestamp"`
	Symbol       string    `json:"symbol" parquet:"symbol"`
	Open         float64   `json:"open" parquet:"open"`
	High         float64   `json:"high" parquet:"high"`
	Low          float64   `json:"low" parquet:"low"`
	Close        float64   `json:"close" parquet:"close"`
	Volume       int64     `json:"volume" parquet:"volume"`
	QualityScore float64   `json:"quality_score" parquet:"quality_score"`
	Source       string    `json:"source" parquet:"source"`
	Sector       string    `json:"sector,omitempty" parquet:"sector,optional"`
}

// LiveQuote is a lightweight snapshot of the current session for a symbol.
type LiveQuote struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// NonTradingReason classifies why an instant falls outside the trading calendar.
type NonTradingReason string

const (
	ReasonWeekend NonTradingReason = "weekend"
	ReasonHoliday NonTradingReason = "holiday"
)

// NonTradingInstant records a bar observed on a weekend or holiday,
// together with its OHLCV payload for export.
type NonTradingInstant struct {
	Timestamp   time.Time        `json:"timestamp"`
	Reason      NonTradingReason `json:"reason"`
	Day         string           `json:"day,omitempty"`
	HolidayName string           `json:"holiday_name,omitempty"`
	Open        float64          `json:"open"`
	High        float64          `json:"high"`
	Low         float64          `json:"low"`
	Close       float64          `json:"close"`
	Volume      int64            `json:"volume"`
}

// Gap is a stretch between consecutive trading bars exceeding the
// expected cadence by more than the tolerance factor.
type Gap struct {
	Start                   time.Time `json:"gap_start"`
	End                     time.Time `json:"gap_end"`
	DurationMinutes         int       `json:"gap_duration_minutes"`
	MissingIntervals        int       `json:"missing_intervals"`
	ExpectedIntervalMinutes int       `json:"expected_interval_minutes"`
}

// MissingMinute identifies a single minute bucket absent between two
// consecutive trading bars on the same day.
type MissingMinute struct {
	Missing time.Time `json:"missing_timestamp"`
	Prev    time.Time `json:"prev_timestamp"`
	Next    time.Time `json:"next_timestamp"`
}

// AnomalyBundle collects the timestamp-level findings of a validation run.
// The validator builds it; the caller owns it after Validate returns.
type AnomalyBundle struct {
	NonTradingInstants []NonTradingInstant `json:"non_trading_timestamps,omitempty"`
	Gaps               []Gap               `json:"gap_details,omitempty"`
	MissingMinutes     []MissingMinute     `json:"missing_consecutive_minutes,omitempty"`
}

// Empty reports whether the bundle holds no findings.
func (b AnomalyBundle) Empty() bool {
	return len(b.NonTradingInstants) == 0 && len(b.Gaps) == 0 && len(b.MissingMinutes) == 0
}

// QualityReport is the verdict for one (symbol, batch) validation run.
type QualityReport struct {
	Symbol       string        `json:"symbol"`
	Issues       []string      `json:"issues"`
	OverallScore float64       `json:"overall_score"`
	IsValid      bool          `json:"is_valid"`
	Anomalies    AnomalyBundle `json:"anomalies"`
}

// StoreOutcome reports per-chunk accounting for one persistence call so the
// caller can detect partial success.
type StoreOutcome struct {
	SucceededChunks int `json:"succeeded_chunks"`
	FailedChunks    int `json:"failed_chunks"`
	TotalRows       int `json:"total_rows"`
}

// Success is true iff at least one chunk was written.
func (o StoreOutcome) Success() bool {
	return o.SucceededChunks > 0
}

// Partial is true when some but not all chunks were written.
func (o StoreOutcome) Partial() bool {
	return o.SucceededChunks > 0 && o.FailedChunks > 0
}
