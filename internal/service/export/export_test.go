package export

import (
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"NiftyPulse/internal/domain/models"
	applogger "NiftyPulse/pkg/logger"
)

func exportBars() []models.Bar {
	base := time.Date(2024, 6, 10, 9, 15, 0, 0, time.UTC)
	return []models.Bar{
		{Timestamp: base, Symbol: "RELIANCE", Open: 2900, High: 2910, Low: 2890, Close: 2905, Volume: 1200, QualityScore: 1, Source: "zerodha_kite", Sector: "Oil & Gas"},
		{Timestamp: base.Add(time.Minute), Symbol: "RELIANCE", Open: 2905, High: 2912, Low: 2901, Close: 2908, Volume: 900, QualityScore: 1, Source: "zerodha_kite", Sector: "Oil & Gas"},
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(t.TempDir(), applogger.NewNop())
}

func TestNewWriterUnsupportedFormat(t *testing.T) {
	_, err := NewWriter("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")
}

func TestExportBarsCSV(t *testing.T) {
	s := newTestService(t)

	rec, err := s.ExportBars("RELIANCE", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), "csv", exportBars())
	require.NoError(t, err)
	assert.Equal(t, "csv", rec.Format)
	assert.Equal(t, 2, rec.Rows)
	assert.Contains(t, rec.Path, "RELIANCE_20240610_20240611.csv")

	f, err := os.Open(rec.Path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "timestamp", rows[0][0])
	assert.Equal(t, "RELIANCE", rows[1][1])
	assert.Equal(t, "2905", rows[1][5])
}

func TestExportBarsJSON(t *testing.T) {
	s := newTestService(t)

	rec, err := s.ExportBars("RELIANCE", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), "json", exportBars())
	require.NoError(t, err)

	data, err := os.ReadFile(rec.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"symbol": "RELIANCE"`)
}

func TestExportBarsParquetRoundTrip(t *testing.T) {
	s := newTestService(t)

	rec, err := s.ExportBars("INFY", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), "parquet", exportBars())
	require.NoError(t, err)

	rows, err := parquet.ReadFile[parquetRow](rec.Path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "RELIANCE", rows[0].Symbol)
	assert.Equal(t, int64(1200), rows[0].Volume)
}

func TestExportAnomaliesWorkbook(t *testing.T) {
	s := newTestService(t)
	sat := time.Date(2024, 6, 8, 10, 0, 0, 0, time.UTC)
	report := models.QualityReport{
		Symbol:       "TCS",
		Issues:       []string{"Data on non-trading days (weekends/holidays): 1"},
		OverallScore: 0.9,
		Anomalies: models.AnomalyBundle{
			NonTradingInstants: []models.NonTradingInstant{
				{Timestamp: sat, Reason: models.ReasonWeekend, Day: "Saturday", Open: 100, High: 101, Low: 99, Close: 100, Volume: 10},
			},
			Gaps: []models.Gap{
				{Start: sat, End: sat.Add(5 * time.Minute), DurationMinutes: 5, MissingIntervals: 4, ExpectedIntervalMinutes: 1},
			},
			MissingMinutes: []models.MissingMinute{
				{Missing: sat.Add(time.Minute), Prev: sat, Next: sat.Add(2 * time.Minute)},
			},
		},
	}

	rec, err := s.ExportAnomalies(report)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", rec.Format)
	assert.Equal(t, 3, rec.Rows)

	f, err := excelize.OpenFile(rec.Path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.ElementsMatch(t, []string{
		"Non_Trading_Days", "Non_Trading_OHLCV", "Missing_Intervals", "Missing_Consecutive_Minutes", "Summary",
	}, sheets)

	day, err := f.GetCellValue("Non_Trading_Days", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Saturday", day)

	symbol, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "TCS", symbol)
}
