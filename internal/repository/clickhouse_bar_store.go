package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"NiftyPulse/internal/domain/models"
	"NiftyPulse/internal/domain/repository"
)

// ClickHouseBarStore implements BarStorage on ClickHouse. The table uses
// ReplacingMergeTree ordered by (symbol, ts), so re-inserting an existing
// (symbol, ts) key replaces the row at merge time and reads use FINAL to
// collapse duplicates early.
type ClickHouseBarStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseBarStore creates ClickHouse bar storage.
func NewClickHouseBarStore(db *sql.DB, table string) repository.BarStorage {
	return &ClickHouseBarStore{db: db, table: table}
}

func (s *ClickHouseBarStore) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts DateTime64(3, 'UTC'),
		symbol LowCardinality(String),
		open Float64,
		high Float64,
		low Float64,
		close Float64,
		volume Int64,
		quality_score Float64,
		source LowCardinality(String),
		sector LowCardinality(String),
		ingested_at DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(ingested_at)
	ORDER BY (symbol, ts)`, s.table)

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init bar table: %w", err)
	}
	return nil
}

func (s *ClickHouseBarStore) UpsertBatch(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	// Multi-row VALUES to reduce round-trips. The caller already chunks.
	values := make([]string, 0, len(bars))
	args := make([]interface{}, 0, len(bars)*10)
	for _, b := range bars {
		if b.Symbol == "" || b.Timestamp.IsZero() {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			b.Timestamp,
			b.Symbol,
			b.Open,
			b.High,
			b.Low,
			b.Close,
			b.Volume,
			b.QualityScore,
			b.Source,
			b.Sector,
		)
	}
	if len(values) == 0 {
		return nil
	}

	q := fmt.Sprintf(
		"INSERT INTO %s (ts, symbol, open, high, low, close, volume, quality_score, source, sector) VALUES %s",
		s.table, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("upsert bars: %w", err)
	}
	return nil
}

func (s *ClickHouseBarStore) QueryLatest(ctx context.Context, symbol string, count int) ([]models.Bar, error) {
	q := fmt.Sprintf(
		"SELECT ts, symbol, open, high, low, close, volume, quality_score, source, sector FROM %s FINAL WHERE symbol = ? ORDER BY ts DESC LIMIT ?",
		s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, err
	}

	// Query returns newest first; callers expect ascending timestamps.
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

func (s *ClickHouseBarStore) QueryRange(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	q := fmt.Sprintf(
		"SELECT ts, symbol, open, high, low, close, volume, quality_score, source, sector FROM %s FINAL WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts ASC",
		s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBars(rows)
}

func (s *ClickHouseBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseBarStore) Close() error {
	return nil // connection pool is owned by pkg/clickhouse
}

func scanBars(rows *sql.Rows) ([]models.Bar, error) {
	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Timestamp, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close,
			&b.Volume, &b.QualityScore, &b.Source, &b.Sector); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}
