package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NiftyPulse/internal/domain/models"
)

type countingSink struct {
	mu   sync.Mutex
	n    int
	fail bool
	seen []string
}

func (s *countingSink) Process(_ context.Context, q *models.LiveQuote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("downstream unavailable")
	}
	s.n++
	s.seen = append(s.seen, q.Symbol)
	return nil
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

type pipelineMetrics struct{}

func (pipelineMetrics) RecordValidation(string, float64, bool) {}
func (pipelineMetrics) RecordBarsStored(string, int)           {}
func (pipelineMetrics) RecordChunkFailure(string)              {}
func (pipelineMetrics) RecordCacheAccess(bool)                 {}
func (pipelineMetrics) RecordLatency(string, float64)          {}
func (pipelineMetrics) RecordError(string)                     {}

func quote(symbol string) *models.LiveQuote {
	return &models.LiveQuote{Symbol: symbol, Timestamp: time.Now(), Close: 100}
}

func TestPipelineProcessForwards(t *testing.T) {
	sink := &countingSink{}
	p := NewQuotePipeline(sink, pipelineMetrics{})

	require.NoError(t, p.Process(context.Background(), quote("RELIANCE")))
	assert.Equal(t, 1, sink.count())
}

func TestPipelineRejectsInvalidQuotes(t *testing.T) {
	sink := &countingSink{}
	p := NewQuotePipeline(sink, pipelineMetrics{})

	assert.Error(t, p.Process(context.Background(), nil))
	assert.Error(t, p.Process(context.Background(), &models.LiveQuote{Timestamp: time.Now()}))
	assert.Error(t, p.Process(context.Background(), &models.LiveQuote{Symbol: "TCS"}))
	assert.Equal(t, 0, sink.count())
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	sink := &countingSink{}
	p := NewQuotePipeline(sink, pipelineMetrics{}, WithMaxRPS(1))

	require.NoError(t, p.Process(context.Background(), quote("INFY")))
	// second quote within the same second is dropped without error
	require.NoError(t, p.Process(context.Background(), quote("INFY")))
	assert.Equal(t, 1, sink.count())

	// other symbols are throttled independently
	require.NoError(t, p.Process(context.Background(), quote("TCS")))
	assert.Equal(t, 2, sink.count())
}

func TestPipelineBuffersOnDownstreamFailure(t *testing.T) {
	sink := &countingSink{fail: true}
	p := NewQuotePipeline(sink, pipelineMetrics{}, WithBufferSize(4))

	err := p.Process(context.Background(), quote("HDFCBANK"))
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	sink.mu.Lock()
	sink.fail = false
	sink.mu.Unlock()

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}
