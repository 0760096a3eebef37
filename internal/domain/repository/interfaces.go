package repository

import (
	"context"
	"time"

	"NiftyPulse/internal/domain/models"
)

// QuoteStream delivers live quotes over a persistent connection.
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.LiveQuote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// BarStorage persists OHLCV bars with native conflict resolution on
// (symbol, timestamp): inserting an existing key overwrites value columns.
type BarStorage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	UpsertBatch(ctx context.Context, bars []models.Bar) error
	QueryLatest(ctx context.Context, symbol string, count int) ([]models.Bar, error)
	QueryRange(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// BarSource supplies raw bars from a broker API. Transport errors are
// returned as-is; only storage writes are retried in-core.
type BarSource interface {
	FetchHistorical(ctx context.Context, symbol string, from, to time.Time, interval Interval) ([]models.Bar, error)
	FetchLiveQuotes(ctx context.Context, symbols []string) (map[string]models.LiveQuote, error)
}

// HolidayProvider resolves the national holiday calendar for a set of years.
// Keys are dates formatted as 2006-01-02, values are holiday names.
type HolidayProvider interface {
	HolidaysFor(countryCode string, years []int) (map[string]string, error)
}

// QualityLog records validation verdicts for audit.
type QualityLog interface {
	Record(ctx context.Context, symbol string, issues []string, score float64) error
}

// QualityPublisher emits quality reports to downstream consumers.
type QualityPublisher interface {
	PublishReport(ctx context.Context, report models.QualityReport) error
	Close() error
}

// LiveQuoteStore holds the most recent quote per symbol.
type LiveQuoteStore interface {
	Upsert(ctx context.Context, q models.LiveQuote) error
	Get(ctx context.Context, symbol string) (models.LiveQuote, error)
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordValidation(symbol string, score float64, valid bool)
	RecordBarsStored(symbol string, n int)
	RecordChunkFailure(symbol string)
	RecordCacheAccess(hit bool)
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
}
