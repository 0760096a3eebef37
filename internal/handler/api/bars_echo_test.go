package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NiftyPulse/internal/domain/models"
	"NiftyPulse/internal/service/cache"
	"NiftyPulse/internal/service/calendar"
	"NiftyPulse/internal/service/constituents"
	"NiftyPulse/internal/service/export"
	"NiftyPulse/internal/service/validation"
	"NiftyPulse/internal/usecase"
	applogger "NiftyPulse/pkg/logger"
	"NiftyPulse/pkg/queue"
)

type stubStorage struct {
	latest map[string][]models.Bar
	ranged []models.Bar
}

func (s *stubStorage) Init(context.Context) error                      { return nil }
func (s *stubStorage) UpsertBatch(context.Context, []models.Bar) error { return nil }
func (s *stubStorage) Health(context.Context) error                    { return nil }
func (s *stubStorage) Close() error                                    { return nil }

func (s *stubStorage) QueryLatest(_ context.Context, symbol string, _ int) ([]models.Bar, error) {
	return s.latest[symbol], nil
}

func (s *stubStorage) QueryRange(context.Context, string, time.Time, time.Time) ([]models.Bar, error) {
	return s.ranged, nil
}

type stubMetrics struct{}

func (stubMetrics) RecordValidation(string, float64, bool) {}
func (stubMetrics) RecordBarsStored(string, int)           {}
func (stubMetrics) RecordChunkFailure(string)              {}
func (stubMetrics) RecordCacheAccess(bool)                 {}
func (stubMetrics) RecordLatency(string, float64)          {}
func (stubMetrics) RecordError(string)                     {}

func newHandlerFixture(t *testing.T) (*echo.Echo, *stubStorage) {
	t.Helper()
	return newHandlerFixtureWithQueue(t, nil)
}

func newHandlerFixtureWithQueue(t *testing.T, jobs queue.QueueService) (*echo.Echo, *stubStorage) {
	t.Helper()

	cal, err := calendar.New(nil, "IN", calendar.DefaultTradingStart, calendar.DefaultTradingEnd)
	require.NoError(t, err)

	storage := &stubStorage{latest: map[string][]models.Bar{}}
	log := applogger.NewNop()
	persister := usecase.NewBatchPersister(storage, stubMetrics{}, log, usecase.WithSleeper(func(time.Duration) {}))
	manager := usecase.NewManager(
		validation.New(validation.DefaultRules(), cal),
		persister,
		storage,
		cache.NewBarCache(),
		nil, nil, nil, nil,
		constituents.Nifty50(),
		stubMetrics{},
		log,
	)

	e := echo.New()
	h := NewBarsEchoHandler(log, manager, export.NewService(t.TempDir(), log), jobs)
	h.RegisterRoutes(e)
	return e, storage
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHealthEndpoint(t *testing.T) {
	e, _ := newHandlerFixture(t)

	rec := doRequest(e, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusOK, env.Status)
	assert.Contains(t, string(env.Data), `"status":"healthy"`)
}

func TestSymbolsEndpoint(t *testing.T) {
	e, _ := newHandlerFixture(t)

	rec := doRequest(e, http.MethodGet, "/api/symbols", "")
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusOK, env.Status)

	var payload struct {
		Symbols []string            `json:"symbols"`
		Sectors map[string][]string `json:"sectors"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Contains(t, payload.Symbols, "RELIANCE")
	assert.Contains(t, payload.Sectors, "Oil & Gas")
}

func TestLatestAllEndpoint(t *testing.T) {
	e, storage := newHandlerFixture(t)
	storage.latest["RELIANCE"] = []models.Bar{
		{Timestamp: time.Date(2024, 6, 10, 9, 15, 0, 0, time.UTC), Symbol: "RELIANCE", Open: 2900, High: 2910, Low: 2890, Close: 2905, Volume: 100},
	}

	rec := doRequest(e, http.MethodGet, "/api/latest", "")
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusOK, env.Status)

	var out map[string][]models.Bar
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Len(t, out, 50)
	require.Len(t, out["RELIANCE"], 1)
	assert.Equal(t, 2905.0, out["RELIANCE"][0].Close)
}

func TestLatestEndpoint(t *testing.T) {
	e, storage := newHandlerFixture(t)
	storage.latest["RELIANCE"] = []models.Bar{
		{Timestamp: time.Date(2024, 6, 10, 9, 15, 0, 0, time.UTC), Symbol: "RELIANCE", Open: 2900, High: 2910, Low: 2890, Close: 2905, Volume: 100},
	}

	rec := doRequest(e, http.MethodGet, "/api/latest/RELIANCE?count=10", "")
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusOK, env.Status)

	var bars []models.Bar
	require.NoError(t, json.Unmarshal(env.Data, &bars))
	require.Len(t, bars, 1)
	assert.Equal(t, "RELIANCE", bars[0].Symbol)
}

func TestLatestEndpointRejectsBadCount(t *testing.T) {
	e, _ := newHandlerFixture(t)

	rec := doRequest(e, http.MethodGet, "/api/latest/RELIANCE?count=999999", "")
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestValidateEndpoint(t *testing.T) {
	e, _ := newHandlerFixture(t)

	body := `{"symbol":"RELIANCE","mode":"validate","bars":[
		{"timestamp":"2024-06-10T09:15:00Z","open":100,"high":101,"low":99,"close":100.5,"volume":10},
		{"timestamp":"2024-06-10T09:16:00Z","open":100.5,"high":101,"low":100,"close":100.8,"volume":12}
	]}`
	rec := doRequest(e, http.MethodPost, "/api/validate", body)
	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	var report models.QualityReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "RELIANCE", report.Symbol)
	assert.True(t, report.IsValid)
}

func TestValidateEndpointRejectsUnknownMode(t *testing.T) {
	e, _ := newHandlerFixture(t)

	rec := doRequest(e, http.MethodPost, "/api/validate", `{"symbol":"RELIANCE","mode":"loud","bars":[]}`)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadRequest, env.Status)
	assert.Contains(t, string(env.Data), "ERR_ONEOF")
}

func TestSectorEndpointUnknownSector(t *testing.T) {
	e, _ := newHandlerFixture(t)

	rec := doRequest(e, http.MethodGet, "/api/sector/Aerospace", "")
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadRequest, env.Status)
	assert.Contains(t, string(env.Data), "unknown sector")
}

func TestHistoricalEndpointRejectsBadRange(t *testing.T) {
	e, _ := newHandlerFixture(t)

	rec := doRequest(e, http.MethodGet, "/api/historical/RELIANCE?start=2024-06-11&end=2024-06-10", "")
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadRequest, env.Status)
	assert.Contains(t, string(env.Data), "start must be before end")
}

func TestExportEndpointWritesCSV(t *testing.T) {
	e, storage := newHandlerFixture(t)
	storage.ranged = []models.Bar{
		{Timestamp: time.Date(2024, 6, 10, 9, 15, 0, 0, time.UTC), Symbol: "INFY", Open: 1500, High: 1510, Low: 1495, Close: 1505, Volume: 100},
	}

	body := `{"symbols":["INFY"],"start":"2024-06-10","end":"2024-06-11","format":"csv"}`
	rec := doRequest(e, http.MethodPost, "/api/export", body)
	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	var records []export.Record
	require.NoError(t, json.Unmarshal(env.Data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "csv", records[0].Format)
	assert.Equal(t, 1, records[0].Rows)
}

type recordingQueue struct {
	types    []string
	payloads []interface{}
}

func (q *recordingQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.types = append(q.types, msgType)
	q.payloads = append(q.payloads, payload)
	return nil
}

func TestExportAsyncEndpointQueuesJob(t *testing.T) {
	jobs := &recordingQueue{}
	e, _ := newHandlerFixtureWithQueue(t, jobs)

	body := `{"symbols":["RELIANCE","TCS"],"format":"parquet","start":"2024-06-10","end":"2024-06-11"}`
	rec := doRequest(e, http.MethodPost, "/api/export/async", body)
	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)
	assert.Contains(t, string(env.Data), `"queued":true`)

	require.Len(t, jobs.types, 1)
	assert.Equal(t, usecase.ExportJobType, jobs.types[0])
	payload, ok := jobs.payloads[0].(usecase.ExportPayload)
	require.True(t, ok)
	assert.Equal(t, []string{"RELIANCE", "TCS"}, payload.Symbols)
	assert.Equal(t, "parquet", payload.Format)
}

func TestExportAsyncWithoutQueueFails(t *testing.T) {
	e, _ := newHandlerFixture(t)

	body := `{"symbols":["RELIANCE"],"format":"csv","start":"2024-06-10","end":"2024-06-11"}`
	rec := doRequest(e, http.MethodPost, "/api/export/async", body)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusInternalServerError, env.Status)
}

func TestLiveUpdateWithoutSourceFails(t *testing.T) {
	e, _ := newHandlerFixture(t)

	rec := doRequest(e, http.MethodPost, "/api/live/update", `{"symbols":["RELIANCE"]}`)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusInternalServerError, env.Status)
}

func TestInvalidateCacheEndpoint(t *testing.T) {
	e, storage := newHandlerFixture(t)
	storage.latest["TCS"] = []models.Bar{{Timestamp: time.Now(), Symbol: "TCS"}}

	// Prime the cache, then invalidate.
	doRequest(e, http.MethodGet, "/api/latest/TCS?count=5", "")
	rec := doRequest(e, http.MethodPost, "/api/cache/invalidate/TCS", "")
	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)
	assert.Contains(t, string(env.Data), `"removed":1`)
}
