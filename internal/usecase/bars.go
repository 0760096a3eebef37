package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"NiftyPulse/internal/domain/models"
	drepo "NiftyPulse/internal/domain/repository"
	"NiftyPulse/internal/service/cache"
	"NiftyPulse/internal/service/constituents"
	"NiftyPulse/internal/service/validation"
	applogger "NiftyPulse/pkg/logger"
)

// ValidationMode controls the side effects of a validation run. The verdict
// itself is identical in both modes.
type ValidationMode string

const (
	// ModeValidateOnly computes the report without recording it anywhere.
	ModeValidateOnly ValidationMode = "validate"
	// ModeValidateAndLog additionally writes the verdict to the quality log
	// and publishes it for downstream consumers.
	ModeValidateAndLog ValidationMode = "log"
)

// cacheHitRateWarnPct is the hit rate below which Health reports a warning.
const cacheHitRateWarnPct = 60.0

// HealthStatus summarizes the state of the manager's dependencies.
type HealthStatus struct {
	Status   string      `json:"status"` // healthy or degraded
	Storage  string      `json:"storage"`
	Cache    cache.Stats `json:"cache"`
	Warnings []string    `json:"warnings,omitempty"`
}

// PerformanceStats aggregates runtime counters for the stats endpoint.
type PerformanceStats struct {
	Cache           cache.Stats `json:"cache"`
	TrackedSymbols  int         `json:"tracked_symbols"`
	ValidationRuns  int64       `json:"validation_runs"`
	BarsStored      int64       `json:"bars_stored"`
	LastStoreSymbol string      `json:"last_store_symbol,omitempty"`
	LastStoreAt     time.Time   `json:"last_store_at,omitempty"`
}

// Manager orchestrates validation, caching, and persistence of bars.
// All reads of recent data go through the cache; historical range reads
// bypass it.
type Manager struct {
	validator *validation.Validator
	persister *BatchPersister
	storage   drepo.BarStorage
	cache     *cache.BarCache
	source    drepo.BarSource
	qlog      drepo.QualityLog
	publisher drepo.QualityPublisher
	liveStore drepo.LiveQuoteStore
	table     *constituents.Table
	metrics   drepo.Metrics
	log       *applogger.Logger

	mu       sync.Mutex
	counters struct {
		validations int64
		stored      int64
		lastSymbol  string
		lastStoreAt time.Time
	}
}

// NewManager creates a Manager. The quality log, publisher, live store, and
// source may be nil; the corresponding side effects are skipped.
func NewManager(
	validator *validation.Validator,
	persister *BatchPersister,
	storage drepo.BarStorage,
	barCache *cache.BarCache,
	source drepo.BarSource,
	qlog drepo.QualityLog,
	publisher drepo.QualityPublisher,
	liveStore drepo.LiveQuoteStore,
	table *constituents.Table,
	metrics drepo.Metrics,
	log *applogger.Logger,
) *Manager {
	return &Manager{
		validator: validator,
		persister: persister,
		storage:   storage,
		cache:     barCache,
		source:    source,
		qlog:      qlog,
		publisher: publisher,
		liveStore: liveStore,
		table:     table,
		metrics:   metrics,
		log:       log,
	}
}

// Validate runs the full validation battery over bars. In log mode the
// verdict is also recorded and published; failures there are logged and do
// not change the report.
func (m *Manager) Validate(ctx context.Context, bars []models.Bar, symbol string, mode ValidationMode) models.QualityReport {
	report := m.validator.Validate(bars, symbol)
	m.mu.Lock()
	m.counters.validations++
	m.mu.Unlock()
	m.metrics.RecordValidation(symbol, report.OverallScore, report.IsValid)

	if mode == ModeValidateAndLog {
		if m.qlog != nil {
			if err := m.qlog.Record(ctx, symbol, report.Issues, report.OverallScore); err != nil {
				m.log.Warn("quality log write failed", applogger.String("symbol", symbol), applogger.Error(err))
			}
		}
		if m.publisher != nil {
			if err := m.publisher.PublishReport(ctx, report); err != nil {
				m.log.Warn("quality report publish failed", applogger.String("symbol", symbol), applogger.Error(err))
			}
		}
	}

	return report
}

// StoreOption adjusts a single Store call.
type StoreOption func(*storeOptions)

type storeOptions struct {
	skipValidation bool
}

// SkipValidation stores bars as-is with a full quality score. For data
// already validated upstream.
func SkipValidation() StoreOption {
	return func(o *storeOptions) { o.skipValidation = true }
}

// Store validates bars, stamps them with the resulting quality score, and
// persists them in chunks. An invalid verdict rejects the whole batch:
// nothing is written and the report is returned with a zero outcome.
func (m *Manager) Store(ctx context.Context, bars []models.Bar, symbol, source string, opts ...StoreOption) (models.QualityReport, models.StoreOutcome, error) {
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}

	var report models.QualityReport
	if o.skipValidation {
		report = models.QualityReport{Symbol: symbol, IsValid: true, OverallScore: 1.0, Issues: []string{}}
	} else {
		report = m.Validate(ctx, bars, symbol, ModeValidateAndLog)
		if !report.IsValid {
			m.log.Warn("batch rejected",
				applogger.String("symbol", symbol),
				applogger.Float64("score", report.OverallScore),
				applogger.Int("issues", len(report.Issues)))
			return report, models.StoreOutcome{}, nil
		}
	}

	stamped := make([]models.Bar, len(bars))
	copy(stamped, bars)
	for i := range stamped {
		stamped[i].QualityScore = report.OverallScore
		if m.table != nil {
			stamped[i].Sector = m.table.Sector(symbol)
		}
	}

	outcome := m.persister.Store(ctx, stamped, symbol, source)
	if len(bars) > 0 && !outcome.Success() {
		return report, outcome, fmt.Errorf("store %s: all %d chunks failed", symbol, outcome.FailedChunks)
	}

	m.mu.Lock()
	m.counters.stored += int64(outcome.TotalRows)
	m.counters.lastSymbol = symbol
	m.counters.lastStoreAt = time.Now()
	m.mu.Unlock()

	return report, outcome, nil
}

// GetLatest returns the most recent count bars for symbol in ascending
// timestamp order, serving from the cache when fresh.
func (m *Manager) GetLatest(ctx context.Context, symbol string, count int) ([]models.Bar, error) {
	key := fmt.Sprintf("latest_%s_%d", symbol, count)
	if bars, ok := m.cache.Get(key); ok {
		m.metrics.RecordCacheAccess(true)
		return bars, nil
	}
	m.metrics.RecordCacheAccess(false)

	bars, err := m.storage.QueryLatest(ctx, symbol, count)
	if err != nil {
		m.metrics.RecordError("query_latest")
		return nil, fmt.Errorf("query latest %s: %w", symbol, err)
	}

	m.cache.Put(key, bars)
	return bars, nil
}

// GetHistorical returns bars for symbol within [from, to]. Range queries
// bypass the cache.
func (m *Manager) GetHistorical(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	bars, err := m.storage.QueryRange(ctx, symbol, from, to)
	if err != nil {
		m.metrics.RecordError("query_range")
		return nil, fmt.Errorf("query range %s: %w", symbol, err)
	}
	return bars, nil
}

// GetSectorData returns the latest bars for every constituent of sector.
// Unknown sectors are a caller error. Per-symbol query failures are skipped
// with a warning so one bad symbol does not sink the sector.
func (m *Manager) GetSectorData(ctx context.Context, sector string, count int) (map[string][]models.Bar, error) {
	symbols, ok := m.table.SectorSymbols(sector)
	if !ok {
		return nil, fmt.Errorf("unknown sector: %s", sector)
	}

	out := make(map[string][]models.Bar, len(symbols))
	for _, sym := range symbols {
		bars, err := m.GetLatest(ctx, sym, count)
		if err != nil {
			m.log.Warn("sector read skipped symbol", applogger.String("symbol", sym), applogger.Error(err))
			continue
		}
		out[sym] = bars
	}
	return out, nil
}

// GetLatestAllSymbols returns the latest bars for every tracked symbol.
func (m *Manager) GetLatestAllSymbols(ctx context.Context, count int) map[string][]models.Bar {
	out := make(map[string][]models.Bar, m.table.Len())
	for _, sym := range m.table.Symbols() {
		bars, err := m.GetLatest(ctx, sym, count)
		if err != nil {
			m.log.Warn("latest read skipped symbol", applogger.String("symbol", sym), applogger.Error(err))
			continue
		}
		out[sym] = bars
	}
	return out
}

// IngestHistorical pulls bars from the broker API and stores them. Pass
// SkipValidation to accept the feed as-is with a full quality score.
func (m *Manager) IngestHistorical(ctx context.Context, symbol string, from, to time.Time, interval drepo.Interval, opts ...StoreOption) (models.QualityReport, models.StoreOutcome, error) {
	if m.source == nil {
		return models.QualityReport{}, models.StoreOutcome{}, fmt.Errorf("no bar source configured")
	}

	bars, err := m.source.FetchHistorical(ctx, symbol, from, to, interval)
	if err != nil {
		m.metrics.RecordError("fetch_historical")
		return models.QualityReport{}, models.StoreOutcome{}, fmt.Errorf("fetch historical %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		m.log.Info("no bars returned for ingest",
			applogger.String("symbol", symbol),
			applogger.String("interval", string(interval)))
		return models.QualityReport{Symbol: symbol, IsValid: true, OverallScore: 1.0, Issues: []string{}}, models.StoreOutcome{}, nil
	}

	return m.Store(ctx, bars, symbol, "zerodha_kite", opts...)
}

// UpdateLive fetches current quotes for symbols and writes them to the live
// quote store. Defaults to all tracked symbols when symbols is empty.
func (m *Manager) UpdateLive(ctx context.Context, symbols []string) (map[string]models.LiveQuote, error) {
	if m.source == nil {
		return nil, fmt.Errorf("no bar source configured")
	}
	if len(symbols) == 0 {
		symbols = m.table.Symbols()
	}

	quotes, err := m.source.FetchLiveQuotes(ctx, symbols)
	if err != nil {
		m.metrics.RecordError("fetch_live")
		return nil, fmt.Errorf("fetch live quotes: %w", err)
	}

	if m.liveStore != nil {
		for _, q := range quotes {
			if err := m.liveStore.Upsert(ctx, q); err != nil {
				m.log.Warn("live quote store write failed", applogger.String("symbol", q.Symbol), applogger.Error(err))
			}
		}
	}
	return quotes, nil
}

// GetLive returns the most recent stored quote for symbol.
func (m *Manager) GetLive(ctx context.Context, symbol string) (models.LiveQuote, error) {
	if m.liveStore == nil {
		return models.LiveQuote{}, fmt.Errorf("no live quote store configured")
	}
	return m.liveStore.Get(ctx, symbol)
}

// Invalidate drops every cache entry whose key mentions symbol and returns
// the number removed.
func (m *Manager) Invalidate(symbol string) int {
	return m.cache.Invalidate(symbol)
}

// CacheStats exposes cache counters.
func (m *Manager) CacheStats() cache.Stats {
	return m.cache.Stats()
}

// Health pings storage and inspects cache behavior.
func (m *Manager) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{Status: "healthy", Storage: "ok", Cache: m.cache.Stats()}

	if err := m.storage.Health(ctx); err != nil {
		status.Status = "degraded"
		status.Storage = err.Error()
	}

	if total := status.Cache.Hits + status.Cache.Misses; total > 0 && status.Cache.HitRatePct < cacheHitRateWarnPct {
		status.Warnings = append(status.Warnings,
			fmt.Sprintf("cache hit rate %.1f%% below %.0f%%", status.Cache.HitRatePct, cacheHitRateWarnPct))
	}

	return status
}

// Stats returns runtime counters for the stats endpoint.
func (m *Manager) Stats() PerformanceStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return PerformanceStats{
		Cache:           m.cache.Stats(),
		TrackedSymbols:  m.table.Len(),
		ValidationRuns:  m.counters.validations,
		BarsStored:      m.counters.stored,
		LastStoreSymbol: m.counters.lastSymbol,
		LastStoreAt:     m.counters.lastStoreAt,
	}
}

// Symbols returns the tracked universe in sorted order.
func (m *Manager) Symbols() []string {
	return m.table.Symbols()
}

// Sectors returns the sector grouping of the tracked universe.
func (m *Manager) Sectors() map[string][]string {
	return m.table.Sectors()
}

// Close releases downstream resources.
func (m *Manager) Close() {
	m.cache.Stop()
	if m.publisher != nil {
		_ = m.publisher.Close()
	}
	if m.liveStore != nil {
		_ = m.liveStore.Close()
	}
	if m.storage != nil {
		_ = m.storage.Close()
	}
}
