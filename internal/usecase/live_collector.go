package usecase

import (
	"context"

	"NiftyPulse/internal/domain/models"
	drepo "NiftyPulse/internal/domain/repository"
	mid "NiftyPulse/internal/middleware"
	applogger "NiftyPulse/pkg/logger"
)

// QuoteSink adapts the live quote store to the pipeline's downstream
// interface.
type QuoteSink struct {
	store drepo.LiveQuoteStore
}

// NewQuoteSink creates a sink writing quotes to the store.
func NewQuoteSink(store drepo.LiveQuoteStore) *QuoteSink {
	return &QuoteSink{store: store}
}

func (s *QuoteSink) Process(ctx context.Context, q *models.LiveQuote) error {
	return s.store.Upsert(ctx, *q)
}

// LiveCollector consumes the broker quote stream and keeps the live quote
// store current. Quotes pass through the pipeline when one is configured.
type LiveCollector struct {
	stream  drepo.QuoteStream
	store   drepo.LiveQuoteStore
	metrics drepo.Metrics
	log     *applogger.Logger
	pipe    *mid.QuotePipeline
}

// NewLiveCollector creates a new LiveCollector instance. The pipeline may be
// nil; quotes are then written to the store directly.
func NewLiveCollector(stream drepo.QuoteStream, store drepo.LiveQuoteStore, metrics drepo.Metrics, log *applogger.Logger, pipe *mid.QuotePipeline) *LiveCollector {
	return &LiveCollector{stream: stream, store: store, metrics: metrics, log: log, pipe: pipe}
}

// IsConnected returns true if the quote stream is connected.
func (c *LiveCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *LiveCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	quotes, errs := c.stream.Read(ctx)
	go c.consume(ctx, quotes, errs)
	return nil
}

func (c *LiveCollector) consume(ctx context.Context, quotes <-chan models.LiveQuote, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			if err != nil {
				c.metrics.RecordError("stream")
				c.log.Warn("quote stream error, reconnecting", applogger.Error(err))
				_ = c.stream.Reconnect(ctx)
			}
		case q := <-quotes:
			if q.Symbol == "" {
				continue
			}
			if err := c.deliver(ctx, &q); err != nil {
				c.metrics.RecordError("live_store")
			}
		}
	}
}

func (c *LiveCollector) deliver(ctx context.Context, q *models.LiveQuote) error {
	if c.pipe != nil {
		return c.pipe.Process(ctx, q)
	}
	return c.store.Upsert(ctx, *q)
}

// Shutdown stops the pipeline and closes the stream.
func (c *LiveCollector) Shutdown(context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
