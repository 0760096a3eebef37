package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"NiftyPulse/internal/domain/models"
	applogger "NiftyPulse/pkg/logger"
)

// Writer persists one batch of bars to a file.
type Writer interface {
	Write(bars []models.Bar, path string) error
	Extension() string
}

// NewWriter returns the writer for format (csv, json, parquet).
func NewWriter(format string) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVWriter{}, nil
	case "json":
		return JSONWriter{}, nil
	case "parquet":
		return ParquetWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %q (use csv, json, parquet)", format)
	}
}

// Record describes one completed export.
type Record struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Rows   int    `json:"rows"`
}

// Service writes exports under a single output directory.
type Service struct {
	dir string
	log *applogger.Logger
}

func NewService(dir string, log *applogger.Logger) *Service {
	return &Service{dir: dir, log: log}
}

// ExportBars writes bars for symbol to a file named after the range.
func (s *Service) ExportBars(symbol string, from, to time.Time, format string, bars []models.Bar) (Record, error) {
	w, err := NewWriter(format)
	if err != nil {
		return Record{}, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Record{}, fmt.Errorf("create export dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s.%s", symbol, from.Format("20060102"), to.Format("20060102"), w.Extension())
	path := filepath.Join(s.dir, name)
	if err := w.Write(bars, path); err != nil {
		return Record{}, fmt.Errorf("export %s: %w", path, err)
	}

	s.log.Info("export written",
		applogger.String("symbol", symbol),
		applogger.String("format", format),
		applogger.String("path", path),
		applogger.Int("rows", len(bars)))

	return Record{Path: path, Format: w.Extension(), Rows: len(bars)}, nil
}

// CSVWriter writes bars as CSV with a header row.
type CSVWriter struct{}

func (CSVWriter) Extension() string { return "csv" }

func (CSVWriter) Write(bars []models.Bar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "symbol", "open", "high", "low", "close", "volume", "quality_score", "source", "sector"}); err != nil {
		return err
	}
	for _, b := range bars {
		if err := w.Write([]string{
			b.Timestamp.Format(time.RFC3339),
			b.Symbol,
			floatStr(b.Open),
			floatStr(b.High),
			floatStr(b.Low),
			floatStr(b.Close),
			strconv.FormatInt(b.Volume, 10),
			floatStr(b.QualityScore),
			b.Source,
			b.Sector,
		}); err != nil {
			return err
		}
	}
	return nil
}

// JSONWriter writes bars as an indented JSON array.
type JSONWriter struct{}

func (JSONWriter) Extension() string { return "json" }

func (JSONWriter) Write(bars []models.Bar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(bars)
}

// parquetRow is the flat DTO written to parquet; timestamps go out as
// epoch milliseconds.
type parquetRow struct {
	Timestamp    int64   `parquet:"timestamp"`
	Symbol       string  `parquet:"symbol"`
	Open         float64 `parquet:"open"`
	High         float64 `parquet:"high"`
	Low          float64 `parquet:"low"`
	Close        float64 `parquet:"close"`
	Volume       int64   `parquet:"volume"`
	QualityScore float64 `parquet:"quality_score"`
	Source       string  `parquet:"source"`
	Sector       string  `parquet:"sector,optional"`
}

// ParquetWriter writes bars as a parquet file.
type ParquetWriter struct{}

func (ParquetWriter) Extension() string { return "parquet" }

func (ParquetWriter) Write(bars []models.Bar, path string) error {
	rows := make([]parquetRow, len(bars))
	for i, b := range bars {
		rows[i] = parquetRow{
			Timestamp:    b.Timestamp.UnixMilli(),
			Symbol:       b.Symbol,
			Open:         b.Open,
			High:         b.High,
			Low:          b.Low,
			Close:        b.Close,
			Volume:       b.Volume,
			QualityScore: b.QualityScore,
			Source:       b.Source,
			Sector:       b.Sector,
		}
	}
	return parquet.WriteFile(path, rows)
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
