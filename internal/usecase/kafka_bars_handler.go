package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"NiftyPulse/internal/domain/models"
	drepo "NiftyPulse/internal/domain/repository"
	pkgkafka "NiftyPulse/pkg/kafka"
)

// KafkaBarsHandler consumes bar batches from the ingest topic and stores them
// through the manager, so consumed bars get the same validation and quality
// stamping as API ingests.
type KafkaBarsHandler struct {
	topic   string
	manager *Manager
	metrics drepo.Metrics
}

func NewKafkaBarsHandler(topic string, manager *Manager, metrics drepo.Metrics) *KafkaBarsHandler {
	return &KafkaBarsHandler{topic: topic, manager: manager, metrics: metrics}
}

func (h *KafkaBarsHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, source, bars: [{t, o, h, l, c, v}]}
func (h *KafkaBarsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string `json:"symbol"`
		Source string `json:"source"`
		Bars   []struct {
			T int64   `json:"t"`
			O float64 `json:"o"`
			H float64 `json:"h"`
			L float64 `json:"l"`
			C float64 `json:"c"`
			V int64   `json:"v"`
		} `json:"bars"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.Symbol == "" {
		h.metrics.RecordError("consumer_no_symbol")
		return fmt.Errorf("message without symbol")
	}
	if len(m.Bars) == 0 {
		return nil
	}
	source := m.Source
	if source == "" {
		source = "kafka"
	}

	bars := make([]models.Bar, 0, len(m.Bars))
	var newest int64
	for _, raw := range m.Bars {
		t := raw.T
		if t > 1e11 { // ms
			t = t / 1000
		}
		if t > newest {
			newest = t
		}
		bars = append(bars, models.Bar{
			Timestamp: time.Unix(t, 0).UTC(),
			Symbol:    m.Symbol,
			Open:      raw.O,
			High:      raw.H,
			Low:       raw.L,
			Close:     raw.C,
			Volume:    raw.V,
		})
	}
	// E2E latency from newest event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(newest, 0)).Seconds())

	start := time.Now()
	_, _, err := h.manager.Store(ctx, bars, m.Symbol, source)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaBarsHandler)(nil)
