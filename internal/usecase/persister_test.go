package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NiftyPulse/internal/domain/models"
	applogger "NiftyPulse/pkg/logger"
)

type scriptedStorage struct {
	// errs is consumed one per UpsertBatch call; nil means success.
	errs    []error
	calls   int
	written [][]models.Bar
}

func (s *scriptedStorage) Init(context.Context) error { return nil }

func (s *scriptedStorage) UpsertBatch(_ context.Context, bars []models.Bar) error {
	s.calls++
	var err error
	if len(s.errs) > 0 {
		err = s.errs[0]
		s.errs = s.errs[1:]
	}
	if err == nil {
		s.written = append(s.written, bars)
	}
	return err
}

func (s *scriptedStorage) QueryLatest(context.Context, string, int) ([]models.Bar, error) {
	return nil, nil
}

func (s *scriptedStorage) QueryRange(context.Context, string, time.Time, time.Time) ([]models.Bar, error) {
	return nil, nil
}

func (s *scriptedStorage) Health(context.Context) error { return nil }
func (s *scriptedStorage) Close() error                 { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordValidation(string, float64, bool) {}
func (nopMetrics) RecordBarsStored(string, int)           {}
func (nopMetrics) RecordChunkFailure(string)              {}
func (nopMetrics) RecordCacheAccess(bool)                 {}
func (nopMetrics) RecordLatency(string, float64)          {}
func (nopMetrics) RecordError(string)                     {}

func testBars(n int) []models.Bar {
	base := time.Date(2024, 6, 10, 9, 15, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Timestamp: base.Add(time.Duration(i) * time.Minute), Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10}
	}
	return bars
}

func newTestPersister(storage *scriptedStorage, opts ...PersisterOption) (*BatchPersister, *[]time.Duration) {
	delays := &[]time.Duration{}
	base := []PersisterOption{
		WithSleeper(func(d time.Duration) { *delays = append(*delays, d) }),
	}
	p := NewBatchPersister(storage, nopMetrics{}, applogger.NewNop(), append(base, opts...)...)
	return p, delays
}

func TestStoreEmptyInputIsNoopSuccess(t *testing.T) {
	storage := &scriptedStorage{}
	p, _ := newTestPersister(storage)

	outcome := p.Store(context.Background(), nil, "RELIANCE", "zerodha_kite")
	assert.Equal(t, 0, outcome.TotalRows)
	assert.Equal(t, 0, outcome.FailedChunks)
	assert.Equal(t, 0, storage.calls)
}

func TestStoreRetriesWithExponentialBackoff(t *testing.T) {
	boom := errors.New("connection reset")
	storage := &scriptedStorage{errs: []error{boom, boom, nil}}
	p, delays := newTestPersister(storage)

	outcome := p.Store(context.Background(), testBars(10), "RELIANCE", "zerodha_kite")

	assert.True(t, outcome.Success())
	assert.Equal(t, 1, outcome.SucceededChunks)
	assert.Equal(t, 0, outcome.FailedChunks)
	assert.Equal(t, 3, storage.calls)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *delays)
}

func TestStoreFailedChunkDoesNotAbortRemaining(t *testing.T) {
	boom := errors.New("deadlock")
	// First chunk fails all three attempts; second chunk succeeds first try.
	storage := &scriptedStorage{errs: []error{boom, boom, boom, nil}}
	p, _ := newTestPersister(storage, WithBatchSize(5))

	outcome := p.Store(context.Background(), testBars(10), "RELIANCE", "zerodha_kite")

	assert.True(t, outcome.Success())
	assert.True(t, outcome.Partial())
	assert.Equal(t, 1, outcome.SucceededChunks)
	assert.Equal(t, 1, outcome.FailedChunks)
	assert.Equal(t, 10, outcome.TotalRows)
	assert.Equal(t, 4, storage.calls)
}

func TestStoreAllChunksFailing(t *testing.T) {
	boom := errors.New("down")
	storage := &scriptedStorage{errs: []error{boom, boom, boom}}
	p, _ := newTestPersister(storage)

	outcome := p.Store(context.Background(), testBars(3), "RELIANCE", "zerodha_kite")
	assert.False(t, outcome.Success())
	assert.Equal(t, 1, outcome.FailedChunks)
}

func TestStoreTagsRowsWithSymbolAndSource(t *testing.T) {
	storage := &scriptedStorage{}
	p, _ := newTestPersister(storage)

	p.Store(context.Background(), testBars(2), "INFY", "zerodha_kite")

	require.Len(t, storage.written, 1)
	for _, b := range storage.written[0] {
		assert.Equal(t, "INFY", b.Symbol)
		assert.Equal(t, "zerodha_kite", b.Source)
	}
}

func TestStoreInvalidatesCacheOnAnySuccess(t *testing.T) {
	storage := &scriptedStorage{}
	var invalidated []string
	p, _ := newTestPersister(storage, WithInvalidator(func(s string) { invalidated = append(invalidated, s) }))

	p.Store(context.Background(), testBars(2), "TCS", "zerodha_kite")
	assert.Equal(t, []string{"TCS"}, invalidated)
}

func TestStoreSkipsInvalidationWhenNothingWritten(t *testing.T) {
	boom := errors.New("down")
	storage := &scriptedStorage{errs: []error{boom, boom, boom}}
	var invalidated []string
	p, _ := newTestPersister(storage, WithInvalidator(func(s string) { invalidated = append(invalidated, s) }))

	p.Store(context.Background(), testBars(2), "TCS", "zerodha_kite")
	assert.Empty(t, invalidated)
}

func TestStoreChunking(t *testing.T) {
	storage := &scriptedStorage{}
	p, _ := newTestPersister(storage, WithBatchSize(4))

	outcome := p.Store(context.Background(), testBars(10), "INFY", "zerodha_kite")
	assert.Equal(t, 3, outcome.SucceededChunks)
	require.Len(t, storage.written, 3)
	assert.Len(t, storage.written[0], 4)
	assert.Len(t, storage.written[2], 2)
}
