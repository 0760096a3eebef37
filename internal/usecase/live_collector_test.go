package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NiftyPulse/internal/domain/models"
	mid "NiftyPulse/internal/middleware"
	applogger "NiftyPulse/pkg/logger"
)

type fakeStream struct {
	mu         sync.Mutex
	quotes     chan models.LiveQuote
	errs       chan error
	connected  bool
	reconnects int
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		quotes: make(chan models.LiveQuote, 16),
		errs:   make(chan error, 1),
	}
}

func (s *fakeStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *fakeStream) Subscribe(context.Context) error { return nil }

func (s *fakeStream) Read(context.Context) (<-chan models.LiveQuote, <-chan error) {
	return s.quotes, s.errs
}

func (s *fakeStream) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *fakeStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

type syncLiveStore struct {
	mu     sync.Mutex
	quotes map[string]models.LiveQuote
}

func (s *syncLiveStore) Upsert(_ context.Context, q models.LiveQuote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quotes == nil {
		s.quotes = map[string]models.LiveQuote{}
	}
	s.quotes[q.Symbol] = q
	return nil
}

func (s *syncLiveStore) Get(_ context.Context, symbol string) (models.LiveQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[symbol]
	if !ok {
		return models.LiveQuote{}, errors.New("not found")
	}
	return q, nil
}

func (s *syncLiveStore) Close() error { return nil }

func TestLiveCollectorStoresQuotes(t *testing.T) {
	stream := newFakeStream()
	store := &syncLiveStore{}
	c := NewLiveCollector(stream, store, nopMetrics{}, applogger.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.IsConnected())

	stream.quotes <- models.LiveQuote{Symbol: "RELIANCE", Close: 2900}

	require.Eventually(t, func() bool {
		_, err := store.Get(context.Background(), "RELIANCE")
		return err == nil
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, c.Shutdown(ctx))
	assert.False(t, c.IsConnected())
}

func TestLiveCollectorThroughPipeline(t *testing.T) {
	stream := newFakeStream()
	store := &syncLiveStore{}
	pipe := mid.NewQuotePipeline(NewQuoteSink(store), nopMetrics{})
	c := NewLiveCollector(stream, store, nopMetrics{}, applogger.NewNop(), pipe)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	stream.quotes <- models.LiveQuote{Symbol: "TCS", Timestamp: time.Now(), Close: 3900}

	require.Eventually(t, func() bool {
		q, err := store.Get(context.Background(), "TCS")
		return err == nil && q.Close == 3900
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, c.Shutdown(ctx))
}

func TestLiveCollectorReconnectsOnStreamError(t *testing.T) {
	stream := newFakeStream()
	c := NewLiveCollector(stream, &syncLiveStore{}, nopMetrics{}, applogger.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	stream.errs <- errors.New("connection reset")

	require.Eventually(t, func() bool {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		return stream.reconnects == 1
	}, time.Second, 10*time.Millisecond)
}
