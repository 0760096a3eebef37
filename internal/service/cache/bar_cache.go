package cache

import (
	"strings"
	"sync"
	"time"

	"NiftyPulse/internal/domain/models"
)

// Option configures BarCache.
type Option func(*BarCache)

// WithMaxAge sets the entry TTL.
func WithMaxAge(d time.Duration) Option {
	return func(c *BarCache) { c.maxAge = d }
}

// WithCapacity sets the entry count bound.
func WithCapacity(n int) Option {
	return func(c *BarCache) { c.capacity = n }
}

// WithSweepInterval sets the background sweep period.
func WithSweepInterval(d time.Duration) Option {
	return func(c *BarCache) { c.sweepEvery = d }
}

// WithClock injects a time source. Tests use this for deterministic expiry.
func WithClock(now func() time.Time) Option {
	return func(c *BarCache) { c.now = now }
}

type entry struct {
	bars       []models.Bar
	insertedAt time.Time
}

// BarCache holds recent query results keyed by a request signature, with TTL
// expiry, a size bound with oldest-entry eviction, and a periodic sweep. The
// cache exclusively owns its entries: Put stores a copy and Get returns one,
// so callers never share a slice with the cache.
//
// A single mutex guards all operations; nothing blocks on I/O while holding
// it, so lock-hold time is bounded by the scan cost of sweep and eviction.
type BarCache struct {
	mu      sync.Mutex
	entries map[string]*entry

	maxAge     time.Duration
	capacity   int
	sweepEvery time.Duration
	now        func() time.Time

	hits   uint64
	misses uint64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	HitRatePct float64 `json:"hit_rate_pct"`
	Entries    int     `json:"entries"`
}

// NewBarCache creates a cache with a 5-minute TTL, 500-entry capacity and a
// 5-minute sweep period unless overridden.
func NewBarCache(opts ...Option) *BarCache {
	c := &BarCache{
		entries:    make(map[string]*entry),
		maxAge:     5 * time.Minute,
		capacity:   500,
		sweepEvery: 5 * time.Minute,
		now:        time.Now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached snapshot for key. A stale entry is removed
// and counts as a miss.
func (c *BarCache) Get(key string) ([]models.Bar, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok {
		if c.now().Sub(e.insertedAt) < c.maxAge {
			c.hits++
			return cloneBars(e.bars), true
		}
		delete(c.entries, key)
	}
	c.misses++
	return nil, false
}

// Put stores a copy of bars under key, evicting the globally-oldest entry
// when the capacity is exceeded.
func (c *BarCache) Put(key string, bars []models.Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{bars: cloneBars(bars), insertedAt: c.now()}
	if len(c.entries) > c.capacity {
		c.evictOldest()
	}
}

// Invalidate removes every entry whose key contains symbol as a substring.
// The match is deliberately permissive: any key built from that symbol is
// dropped regardless of surrounding parameters. It returns the removal count.
func (c *BarCache) Invalidate(symbol string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if strings.Contains(k, symbol) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// SweepOnce removes every entry older than the TTL, independent of access
// pattern, and returns the removal count. The background sweeper calls this
// on its period; tests call it directly.
func (c *BarCache) SweepOnce() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.insertedAt) >= c.maxAge {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Start launches the periodic sweeper. Stop cancels it; Start after Stop is
// not supported.
func (c *BarCache) Start() {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.SweepOnce()
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop halts the background sweeper and waits for it to exit.
func (c *BarCache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

// Stats reports hit/miss counters and the live entry count.
func (c *BarCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
	if total := c.hits + c.misses; total > 0 {
		s.HitRatePct = float64(c.hits) / float64(total) * 100
	}
	return s
}

// Len returns the number of live entries.
func (c *BarCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest removes the single entry with the oldest insertion time.
// Caller holds the lock.
func (c *BarCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.insertedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.insertedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func cloneBars(bars []models.Bar) []models.Bar {
	out := make([]models.Bar, len(bars))
	copy(out, bars)
	return out
}
