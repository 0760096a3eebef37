package usecase

import (
	"context"
	"fmt"

	"NiftyPulse/internal/service/export"
	applogger "NiftyPulse/pkg/logger"
	"NiftyPulse/pkg/queue"
	xutil "NiftyPulse/pkg/util"
)

// ExportJobType is the queue message type for background export jobs.
const ExportJobType = "export_bars"

// ExportPayload is the queued export request.
type ExportPayload struct {
	Symbols []string `json:"symbols"`
	Format  string   `json:"format"`
	Start   string   `json:"start"`
	End     string   `json:"end"`
}

// ExportJob runs queued historical exports in the background.
type ExportJob struct {
	manager  *Manager
	exporter *export.Service
	log      *applogger.Logger
}

func NewExportJob(manager *Manager, exporter *export.Service, log *applogger.Logger) *ExportJob {
	return &ExportJob{manager: manager, exporter: exporter, log: log}
}

func (j *ExportJob) Name() string { return "export-bars" }
func (j *ExportJob) Type() string { return ExportJobType }

func (j *ExportJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ExportPayload](payload)
	if err != nil {
		return fmt.Errorf("export payload: %w", err)
	}
	start, ok := xutil.ParseTime(p.Start)
	if !ok {
		return fmt.Errorf("invalid start time: %q", p.Start)
	}
	end, ok := xutil.ParseTime(p.End)
	if !ok {
		return fmt.Errorf("invalid end time: %q", p.End)
	}

	for _, symbol := range p.Symbols {
		bars, err := j.manager.GetHistorical(ctx, symbol, start, end)
		if err != nil {
			return fmt.Errorf("export %s: %w", symbol, err)
		}
		rec, err := j.exporter.ExportBars(symbol, start, end, p.Format, bars)
		if err != nil {
			return fmt.Errorf("export %s: %w", symbol, err)
		}
		j.log.Info("export job wrote file",
			applogger.String("symbol", symbol),
			applogger.String("path", rec.Path),
			applogger.Int("rows", rec.Rows))
	}
	return nil
}

var _ queue.Job = (*ExportJob)(nil)
