package usecase

import (
	"context"
	"time"

	"NiftyPulse/internal/domain/models"
	drepo "NiftyPulse/internal/domain/repository"
	applogger "NiftyPulse/pkg/logger"
)

// DefaultBatchSize is the chunk size for persistence. The value favors
// reliability over throughput on wide OHLCV rows.
const DefaultBatchSize = 5000

const maxStoreAttempts = 3

// PersisterOption configures BatchPersister.
type PersisterOption func(*BatchPersister)

// WithBatchSize overrides the chunk size.
func WithBatchSize(n int) PersisterOption {
	return func(p *BatchPersister) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithSleeper injects the backoff sleep function. Tests use this to observe
// delays without waiting.
func WithSleeper(sleep func(time.Duration)) PersisterOption {
	return func(p *BatchPersister) { p.sleep = sleep }
}

// WithInvalidator sets the callback fired after a store call in which at
// least one chunk succeeded, typically wired to the bar cache.
func WithInvalidator(fn func(symbol string)) PersisterOption {
	return func(p *BatchPersister) { p.invalidate = fn }
}

// BatchPersister writes validated bars in fixed-size chunks. Each chunk is
// upserted with up to three attempts and exponential backoff; a chunk that
// exhausts its retries is recorded as failed and the call moves on, so one
// bad chunk never aborts the batch. Chunks are processed strictly
// sequentially: the backoff delays pace the load on the storage backend and
// keep chunk ordering deterministic.
type BatchPersister struct {
	storage    drepo.BarStorage
	metrics    drepo.Metrics
	log        *applogger.Logger
	batchSize  int
	sleep      func(time.Duration)
	invalidate func(symbol string)
}

// NewBatchPersister creates a persister over storage.
func NewBatchPersister(storage drepo.BarStorage, metrics drepo.Metrics, log *applogger.Logger, opts ...PersisterOption) *BatchPersister {
	p := &BatchPersister{
		storage:   storage,
		metrics:   metrics,
		log:       log,
		batchSize: DefaultBatchSize,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store persists bars for symbol tagged with source. Empty input is a
// no-op success. Overall success means at least one chunk was written;
// the outcome carries per-chunk counts so the caller can detect partial
// success.
func (p *BatchPersister) Store(ctx context.Context, bars []models.Bar, symbol, source string) models.StoreOutcome {
	outcome := models.StoreOutcome{TotalRows: len(bars)}
	if len(bars) == 0 {
		outcome.SucceededChunks = 0
		return outcome
	}

	rows := make([]models.Bar, len(bars))
	copy(rows, bars)
	for i := range rows {
		rows[i].Symbol = symbol
		rows[i].Source = source
	}

	p.log.Info("storing bars",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(rows)),
		applogger.Int("batch_size", p.batchSize),
	)

	for start := 0; start < len(rows); start += p.batchSize {
		end := start + p.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if p.storeChunk(ctx, rows[start:end], symbol, start, end) {
			outcome.SucceededChunks++
		} else {
			outcome.FailedChunks++
		}
	}

	if outcome.SucceededChunks > 0 {
		if p.invalidate != nil {
			p.invalidate(symbol)
		}
		if outcome.FailedChunks > 0 {
			p.log.Warn("partial store success",
				applogger.String("symbol", symbol),
				applogger.Int("succeeded", outcome.SucceededChunks),
				applogger.Int("failed", outcome.FailedChunks),
			)
		}
	} else {
		p.log.Error("all chunks failed", applogger.String("symbol", symbol))
	}
	return outcome
}

// storeChunk attempts one chunk with exponential backoff: 2^attempt seconds
// between attempts.
func (p *BatchPersister) storeChunk(ctx context.Context, chunk []models.Bar, symbol string, start, end int) bool {
	began := time.Now()
	for attempt := 0; attempt < maxStoreAttempts; attempt++ {
		err := p.storage.UpsertBatch(ctx, chunk)
		if err == nil {
			p.metrics.RecordBarsStored(symbol, len(chunk))
			p.metrics.RecordLatency("store_chunk", time.Since(began).Seconds())
			return true
		}
		if attempt < maxStoreAttempts-1 {
			delay := time.Duration(1<<attempt) * time.Second
			p.log.Warn("chunk store failed, retrying",
				applogger.String("symbol", symbol),
				applogger.Int("chunk_start", start),
				applogger.Int("chunk_end", end-1),
				applogger.Int("attempt", attempt+1),
				applogger.Error(err),
			)
			p.sleep(delay)
			continue
		}
		p.metrics.RecordChunkFailure(symbol)
		p.log.Error("chunk store failed after retries",
			applogger.String("symbol", symbol),
			applogger.Int("chunk_start", start),
			applogger.Int("chunk_end", end-1),
			applogger.Error(err),
		)
	}
	return false
}
