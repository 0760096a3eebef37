package api

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	models "NiftyPulse/internal/domain/models"
	domrepo "NiftyPulse/internal/domain/repository"
	"NiftyPulse/internal/service/export"
	"NiftyPulse/internal/usecase"
	xhttp "NiftyPulse/pkg/http"
	xlogger "NiftyPulse/pkg/logger"
	"NiftyPulse/pkg/queue"
	xutil "NiftyPulse/pkg/util"
)

// BarsEchoHandler exposes the bar store, validator, and exporter over HTTP.
// The job queue may be nil; async exports are rejected then.
type BarsEchoHandler struct {
	logger   *xlogger.Logger
	manager  *usecase.Manager
	exporter *export.Service
	jobs     queue.QueueService
}

func NewBarsEchoHandler(logger *xlogger.Logger, manager *usecase.Manager, exporter *export.Service, jobs queue.QueueService) *BarsEchoHandler {
	return &BarsEchoHandler{logger: logger, manager: manager, exporter: exporter, jobs: jobs}
}

func (h *BarsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/symbols", h.Symbols)
	g.GET("/stats", h.Stats)
	g.GET("/latest", h.LatestAll)
	g.GET("/latest/:symbol", h.Latest)
	g.GET("/historical/:symbol", h.Historical)
	g.GET("/sector/:sector", h.Sector)
	g.POST("/validate", h.Validate)
	g.POST("/export", h.Export)
	g.POST("/export/async", h.ExportAsync)
	g.POST("/export/anomalies", h.ExportAnomalies)
	g.POST("/ingest/historical", h.IngestHistorical)
	g.POST("/live/update", h.LiveUpdate)
	g.GET("/live/:symbol", h.Live)
	g.POST("/cache/invalidate/:symbol", h.InvalidateCache)
}

func (h *BarsEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.manager.Health(c.Request().Context()))
}

func (h *BarsEchoHandler) Symbols(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbols": h.manager.Symbols(),
		"sectors": h.manager.Sectors(),
	})
}

func (h *BarsEchoHandler) Stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.manager.Stats())
}

func (h *BarsEchoHandler) LatestAll(c echo.Context) error {
	req := &models.LatestAllBarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.manager.GetLatestAllSymbols(c.Request().Context(), req.Count))
}

func (h *BarsEchoHandler) Latest(c echo.Context) error {
	req := &models.LatestBarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	bars, err := h.manager.GetLatest(c.Request().Context(), req.Symbol, req.Count)
	if err != nil {
		h.logger.Error("latest bars failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, bars)
}

func (h *BarsEchoHandler) Historical(c echo.Context) error {
	req := &models.HistoricalBarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from, to, err := parseRange(req.Start, req.End)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	bars, err := h.manager.GetHistorical(c.Request().Context(), req.Symbol, from, to)
	if err != nil {
		h.logger.Error("historical bars failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, bars)
}

func (h *BarsEchoHandler) Sector(c echo.Context) error {
	req := &models.SectorBarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	data, err := h.manager.GetSectorData(c.Request().Context(), req.Sector, req.Count)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, data)
}

func (h *BarsEchoHandler) Validate(c echo.Context) error {
	req := &models.ValidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	mode := usecase.ModeValidateAndLog
	if req.Mode == string(usecase.ModeValidateOnly) {
		mode = usecase.ModeValidateOnly
	}

	report := h.manager.Validate(c.Request().Context(), req.Bars, req.Symbol, mode)
	return xhttp.SuccessResponse(c, report)
}

func (h *BarsEchoHandler) Export(c echo.Context) error {
	req := &models.ExportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from, to, err := parseRange(req.Start, req.End)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	records := make([]export.Record, 0, len(req.Symbols))
	for _, symbol := range req.Symbols {
		bars, err := h.manager.GetHistorical(c.Request().Context(), symbol, from, to)
		if err != nil {
			h.logger.Error("export query failed", xlogger.String("symbol", symbol), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		rec, err := h.exporter.ExportBars(symbol, from, to, req.Format, bars)
		if err != nil {
			return xhttp.BadRequestResponse(c, err.Error())
		}
		records = append(records, rec)
	}
	return xhttp.SuccessResponse(c, records)
}

func (h *BarsEchoHandler) ExportAsync(c echo.Context) error {
	req := &models.ExportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.jobs == nil {
		return xhttp.AppErrorResponse(c, fmt.Errorf("export queue not configured"))
	}

	from, to, err := parseRange(req.Start, req.End)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	payload := usecase.ExportPayload{
		Symbols: req.Symbols,
		Format:  req.Format,
		Start:   from.Format(time.RFC3339),
		End:     to.Format(time.RFC3339),
	}
	if err := h.jobs.PublishMessage(c.Request().Context(), usecase.ExportJobType, payload); err != nil {
		h.logger.Error("export enqueue failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"queued":  true,
		"symbols": len(req.Symbols),
	})
}

func (h *BarsEchoHandler) ExportAnomalies(c echo.Context) error {
	req := &models.ValidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report := h.manager.Validate(c.Request().Context(), req.Bars, req.Symbol, usecase.ModeValidateOnly)
	rec, err := h.exporter.ExportAnomalies(report)
	if err != nil {
		h.logger.Error("anomaly export failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"report": report,
		"export": rec,
	})
}

func (h *BarsEchoHandler) IngestHistorical(c echo.Context) error {
	req := &models.IngestHistoricalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from, to, err := parseRange(req.Start, req.End)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	interval := domrepo.NormalizeInterval(req.Interval)
	from, to = xutil.AlignRange(from, to, string(interval))

	type ingestResult struct {
		Report  models.QualityReport `json:"report"`
		Outcome models.StoreOutcome  `json:"outcome"`
		Error   string               `json:"error,omitempty"`
	}
	var opts []usecase.StoreOption
	if req.SkipValidation {
		opts = append(opts, usecase.SkipValidation())
	}

	results := make(map[string]ingestResult, len(req.Symbols))
	for _, symbol := range req.Symbols {
		report, outcome, err := h.manager.IngestHistorical(c.Request().Context(), symbol, from, to, interval, opts...)
		res := ingestResult{Report: report, Outcome: outcome}
		if err != nil {
			h.logger.Error("ingest failed", xlogger.String("symbol", symbol), xlogger.Error(err))
			res.Error = err.Error()
		}
		results[symbol] = res
	}
	return xhttp.SuccessResponse(c, results)
}

func (h *BarsEchoHandler) LiveUpdate(c echo.Context) error {
	req := &models.LiveUpdateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	quotes, err := h.manager.UpdateLive(c.Request().Context(), req.Symbols)
	if err != nil {
		h.logger.Error("live update failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, quotes)
}

func (h *BarsEchoHandler) Live(c echo.Context) error {
	symbol := c.Param("symbol")
	quote, err := h.manager.GetLive(c.Request().Context(), symbol)
	if err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, quote)
}

func (h *BarsEchoHandler) InvalidateCache(c echo.Context) error {
	symbol := c.Param("symbol")
	removed := h.manager.Invalidate(symbol)
	return xhttp.SuccessResponse(c, map[string]int{"removed": removed})
}

// parseRange accepts dates as 2006-01-02 or RFC3339 and requires start < end.
func parseRange(start, end string) (time.Time, time.Time, error) {
	from, ok := xhttp.ParseTime(start)
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %q", start)
	}
	to, ok := xhttp.ParseTime(end)
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %q", end)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("start must be before end")
	}
	return from, to, nil
}
