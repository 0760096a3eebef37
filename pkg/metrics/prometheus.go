package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	validations  *prometheus.CounterVec
	qualityScore *prometheus.GaugeVec
	barsStored   *prometheus.CounterVec
	chunkFails   *prometheus.CounterVec
	cacheAccess  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		validations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "niftypulse_validations_total",
				Help: "Total validation runs by verdict",
			},
			[]string{"symbol", "verdict"},
		),
		qualityScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "niftypulse_quality_score",
				Help: "Last validation score for a symbol",
			},
			[]string{"symbol"},
		),
		barsStored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "niftypulse_bars_stored_total",
				Help: "Total bars written to storage",
			},
			[]string{"symbol"},
		),
		chunkFails: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "niftypulse_store_chunk_failures_total",
				Help: "Chunks that exhausted their write retries",
			},
			[]string{"symbol"},
		),
		cacheAccess: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "niftypulse_cache_accesses_total",
				Help: "Bar cache lookups by result",
			},
			[]string{"result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "niftypulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "niftypulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordValidation records one validation run and its score.
func (r *Recorder) RecordValidation(symbol string, score float64, valid bool) {
	verdict := "valid"
	if !valid {
		verdict = "invalid"
	}
	r.validations.WithLabelValues(symbol, verdict).Inc()
	r.qualityScore.WithLabelValues(symbol).Set(score)
}

// RecordBarsStored counts rows written for a symbol.
func (r *Recorder) RecordBarsStored(symbol string, n int) {
	r.barsStored.WithLabelValues(symbol).Add(float64(n))
}

// RecordChunkFailure counts a chunk whose retries were exhausted.
func (r *Recorder) RecordChunkFailure(symbol string) {
	r.chunkFails.WithLabelValues(symbol).Inc()
}

// RecordCacheAccess counts a cache hit or miss.
func (r *Recorder) RecordCacheAccess(hit bool) {
	result := "hit"
	if !hit {
		result = "miss"
	}
	r.cacheAccess.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
