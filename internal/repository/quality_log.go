package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"NiftyPulse/internal/domain/repository"
)

// ClickHouseQualityLog records validation verdicts for audit.
type ClickHouseQualityLog struct {
	db    *sql.DB
	table string
}

// NewClickHouseQualityLog creates the audit log store.
func NewClickHouseQualityLog(db *sql.DB, table string) *ClickHouseQualityLog {
	return &ClickHouseQualityLog{db: db, table: table}
}

var _ repository.QualityLog = (*ClickHouseQualityLog)(nil)

func (l *ClickHouseQualityLog) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		logged_at DateTime64(3, 'UTC'),
		symbol LowCardinality(String),
		issues String,
		quality_score Float64,
		severity UInt8
	) ENGINE = MergeTree
	ORDER BY (symbol, logged_at)`, l.table)

	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init quality log table: %w", err)
	}
	return nil
}

func (l *ClickHouseQualityLog) Record(ctx context.Context, symbol string, issues []string, score float64) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (logged_at, symbol, issues, quality_score, severity) VALUES (?, ?, ?, ?, ?)",
		l.table)
	_, err := l.db.ExecContext(ctx, q,
		time.Now().UTC(),
		symbol,
		strings.Join(issues, "; "),
		score,
		severityFor(score),
	)
	return err
}

// severityFor maps a score to an alert level: 1 is informational, 3 means
// the batch failed most checks.
func severityFor(score float64) uint8 {
	switch {
	case score > 0.8:
		return 1
	case score > 0.5:
		return 2
	default:
		return 3
	}
}
