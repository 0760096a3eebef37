package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NiftyPulse/internal/domain/models"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time            { return f.t }
func (f *fakeClock) advance(d time.Duration)   { f.t = f.t.Add(d) }
func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)}
}

func sampleBars(symbol string, n int) []models.Bar {
	base := time.Date(2024, 6, 10, 9, 15, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Timestamp: base.Add(time.Duration(i) * time.Minute), Symbol: symbol, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10}
	}
	return bars
}

func TestGetWithinTTLHitsAndCounts(t *testing.T) {
	clock := newFakeClock()
	c := NewBarCache(WithClock(clock.now))

	c.Put("latest_RELIANCE_100", sampleBars("RELIANCE", 3))

	clock.advance(4 * time.Minute)
	got, ok := c.Get("latest_RELIANCE_100")
	require.True(t, ok)
	assert.Len(t, got, 3)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(0), stats.Misses)
}

func TestGetAfterTTLMissesAndRemoves(t *testing.T) {
	clock := newFakeClock()
	c := NewBarCache(WithClock(clock.now))

	c.Put("latest_RELIANCE_100", sampleBars("RELIANCE", 3))
	clock.advance(5 * time.Minute)

	_, ok := c.Get("latest_RELIANCE_100")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "stale entry is deleted on access")
	assert.Equal(t, uint64(1), c.Stats().Misses)
}

func TestGetReturnsOwnedSnapshot(t *testing.T) {
	c := NewBarCache()
	bars := sampleBars("INFY", 2)
	c.Put("latest_INFY_2", bars)

	// Mutating the caller's slice must not reach the cache.
	bars[0].Close = 0
	got, ok := c.Get("latest_INFY_2")
	require.True(t, ok)
	assert.Equal(t, 100.5, got[0].Close)

	// Mutating the returned copy must not reach the cache either.
	got[1].Close = 0
	again, ok := c.Get("latest_INFY_2")
	require.True(t, ok)
	assert.Equal(t, 100.5, again[1].Close)
}

func TestCapacityEvictsGloballyOldest(t *testing.T) {
	clock := newFakeClock()
	c := NewBarCache(WithClock(clock.now), WithCapacity(500))

	for i := 0; i < 500; i++ {
		c.Put(fmt.Sprintf("latest_SYM%03d_100", i), nil)
		clock.advance(time.Millisecond)
	}
	require.Equal(t, 500, c.Len())

	c.Put("latest_NEW_100", nil)
	assert.Equal(t, 500, c.Len(), "the 501st insert evicts exactly one entry")

	_, ok := c.Get("latest_SYM000_100")
	assert.False(t, ok, "the oldest entry was evicted")
	_, ok = c.Get("latest_SYM001_100")
	assert.True(t, ok)
}

func TestInvalidateBySubstring(t *testing.T) {
	c := NewBarCache()
	c.Put("latest_RELIANCE_100", nil)
	c.Put("latest_RELIANCE_500", nil)
	c.Put("historical_RELIANCE_2024", nil)
	c.Put("latest_INFY_100", nil)

	removed := c.Invalidate("RELIANCE")
	assert.Equal(t, 3, removed)
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("latest_INFY_100")
	assert.True(t, ok)
}

func TestInvalidateMatchesPrefixSymbols(t *testing.T) {
	// Substring semantics: invalidating TATA also clears TATAMOTORS keys.
	c := NewBarCache()
	c.Put("latest_TATAMOTORS_100", nil)
	c.Put("latest_TATASTEEL_100", nil)

	removed := c.Invalidate("TATA")
	assert.Equal(t, 2, removed)
}

func TestSweepRemovesExpiredRegardlessOfAccess(t *testing.T) {
	clock := newFakeClock()
	c := NewBarCache(WithClock(clock.now))

	c.Put("old_key", nil)
	clock.advance(3 * time.Minute)
	c.Put("new_key", nil)
	clock.advance(2 * time.Minute) // old is 5m, new is 2m

	removed := c.SweepOnce()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
}

func TestBackgroundSweeperStartStop(t *testing.T) {
	c := NewBarCache(WithSweepInterval(time.Hour))
	c.Start()
	c.Stop() // must not hang or panic
}

func TestStatsHitRate(t *testing.T) {
	c := NewBarCache()
	c.Put("k", nil)
	c.Get("k")
	c.Get("absent")

	stats := c.Stats()
	assert.InDelta(t, 50.0, stats.HitRatePct, 0.001)
	assert.Equal(t, 1, stats.Entries)
}
