package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"NiftyPulse/internal/domain/models"
	applogger "NiftyPulse/pkg/logger"
)

// Sheet names of the anomaly workbook.
const (
	sheetNonTradingDays    = "Non_Trading_Days"
	sheetNonTradingOHLCV   = "Non_Trading_OHLCV"
	sheetMissingIntervals  = "Missing_Intervals"
	sheetMissingConsMinute = "Missing_Consecutive_Minutes"
	sheetSummary           = "Summary"
)

// ExportAnomalies writes the findings of a validation run to an Excel
// workbook, one sheet per anomaly class plus a summary.
func (s *Service) ExportAnomalies(report models.QualityReport) (Record, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Record{}, fmt.Errorf("create export dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeNonTradingDays(f, report.Anomalies.NonTradingInstants); err != nil {
		return Record{}, err
	}
	if err := writeNonTradingOHLCV(f, report.Anomalies.NonTradingInstants); err != nil {
		return Record{}, err
	}
	if err := writeGaps(f, report.Anomalies.Gaps); err != nil {
		return Record{}, err
	}
	if err := writeMissingMinutes(f, report.Anomalies.MissingMinutes); err != nil {
		return Record{}, err
	}
	if err := writeSummary(f, report); err != nil {
		return Record{}, err
	}

	// Drop the default sheet created by NewFile.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return Record{}, err
	}

	name := fmt.Sprintf("%s_anomalies_%s.xlsx", report.Symbol, time.Now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)
	if err := f.SaveAs(path); err != nil {
		return Record{}, fmt.Errorf("save workbook: %w", err)
	}

	rows := len(report.Anomalies.NonTradingInstants) + len(report.Anomalies.Gaps) + len(report.Anomalies.MissingMinutes)
	s.log.Info("anomaly workbook written",
		applogger.String("symbol", report.Symbol),
		applogger.String("path", path),
		applogger.Int("findings", rows))

	return Record{Path: path, Format: "xlsx", Rows: rows}, nil
}

func writeNonTradingDays(f *excelize.File, instants []models.NonTradingInstant) error {
	if _, err := f.NewSheet(sheetNonTradingDays); err != nil {
		return err
	}
	header := []interface{}{"timestamp", "reason", "day", "holiday_name"}
	if err := f.SetSheetRow(sheetNonTradingDays, "A1", &header); err != nil {
		return err
	}
	for i, in := range instants {
		row := []interface{}{
			in.Timestamp.Format(time.RFC3339),
			string(in.Reason),
			in.Day,
			in.HolidayName,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetNonTradingDays, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeNonTradingOHLCV(f *excelize.File, instants []models.NonTradingInstant) error {
	if _, err := f.NewSheet(sheetNonTradingOHLCV); err != nil {
		return err
	}
	header := []interface{}{"timestamp", "open", "high", "low", "close", "volume"}
	if err := f.SetSheetRow(sheetNonTradingOHLCV, "A1", &header); err != nil {
		return err
	}
	for i, in := range instants {
		row := []interface{}{
			in.Timestamp.Format(time.RFC3339),
			in.Open, in.High, in.Low, in.Close, in.Volume,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetNonTradingOHLCV, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeGaps(f *excelize.File, gaps []models.Gap) error {
	if _, err := f.NewSheet(sheetMissingIntervals); err != nil {
		return err
	}
	header := []interface{}{"gap_start", "gap_end", "gap_duration_minutes", "missing_intervals", "expected_interval_minutes"}
	if err := f.SetSheetRow(sheetMissingIntervals, "A1", &header); err != nil {
		return err
	}
	for i, g := range gaps {
		row := []interface{}{
			g.Start.Format(time.RFC3339),
			g.End.Format(time.RFC3339),
			g.DurationMinutes,
			g.MissingIntervals,
			g.ExpectedIntervalMinutes,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetMissingIntervals, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeMissingMinutes(f *excelize.File, minutes []models.MissingMinute) error {
	if _, err := f.NewSheet(sheetMissingConsMinute); err != nil {
		return err
	}
	header := []interface{}{"missing_timestamp", "prev_timestamp", "next_timestamp"}
	if err := f.SetSheetRow(sheetMissingConsMinute, "A1", &header); err != nil {
		return err
	}
	for i, m := range minutes {
		row := []interface{}{
			m.Missing.Format(time.RFC3339),
			m.Prev.Format(time.RFC3339),
			m.Next.Format(time.RFC3339),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetMissingConsMinute, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, report models.QualityReport) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"symbol", report.Symbol},
		{"overall_score", report.OverallScore},
		{"is_valid", report.IsValid},
		{"issues", len(report.Issues)},
		{"non_trading_timestamps", len(report.Anomalies.NonTradingInstants)},
		{"gaps", len(report.Anomalies.Gaps)},
		{"missing_consecutive_minutes", len(report.Anomalies.MissingMinutes)},
	}
	for i := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheetSummary, cell, &rows[i]); err != nil {
			return err
		}
	}
	for i, issue := range report.Issues {
		cell := fmt.Sprintf("A%d", len(rows)+2+i)
		row := []interface{}{issue}
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
