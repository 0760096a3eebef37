package kite

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	drepo "NiftyPulse/internal/domain/repository"
	"NiftyPulse/internal/service/ratelimit"
	pkghttp "NiftyPulse/pkg/http"
	applogger "NiftyPulse/pkg/logger"
)

const instrumentDump = `instrument_token,exchange_token,tradingsymbol,name,last_price,expiry,strike,tick_size,lot_size,instrument_type,segment,exchange
738561,2885,RELIANCE,RELIANCE INDUSTRIES,0,,0,0.05,1,EQ,NSE,NSE
408065,1594,INFY,INFOSYS,0,,0,0.05,1,EQ,NSE,NSE
`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := New(
		Credentials{APIKey: "key", AccessToken: "token"},
		srv.URL,
		pkghttp.NewClient(pkghttp.WithTimeout(5*time.Second)),
		ratelimit.New(),
		applogger.NewNop(),
	)
	return client, srv
}

func TestInstrumentTokenResolvesAndCaches(t *testing.T) {
	var dumps int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/instruments/NSE", r.URL.Path)
		require.Equal(t, "token key:token", r.Header.Get("Authorization"))
		require.Equal(t, "3", r.Header.Get("X-Kite-Version"))
		dumps++
		fmt.Fprint(w, instrumentDump)
	}))

	token, err := client.InstrumentToken(context.Background(), "RELIANCE")
	require.NoError(t, err)
	assert.Equal(t, int64(738561), token)

	// Second lookup is served from the cached dump.
	token, err = client.InstrumentToken(context.Background(), "INFY")
	require.NoError(t, err)
	assert.Equal(t, int64(408065), token)
	assert.Equal(t, 1, dumps)

	_, err = client.InstrumentToken(context.Background(), "UNLISTED")
	require.Error(t, err)
}

func TestFetchHistoricalParsesCandles(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/instruments/NSE" {
			fmt.Fprint(w, instrumentDump)
			return
		}
		require.Equal(t, "/instruments/historical/738561/minute", r.URL.Path)
		fmt.Fprint(w, `{"status":"success","data":{"candles":[
			["2024-06-10T09:15:00+0530",2900,2910,2890,2905,1200],
			["2024-06-10T09:16:00+0530",2905,2912,2901,2908,900],
			["2024-06-10T09:15:00+0530",2900,2910,2890,2905,1200]
		]}}`)
	}))

	from := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	bars, err := client.FetchHistorical(context.Background(), "RELIANCE", from, from.AddDate(0, 0, 1), drepo.IntervalMinute)
	require.NoError(t, err)

	// Duplicate candle dropped, ascending order preserved.
	require.Len(t, bars, 2)
	assert.Equal(t, "RELIANCE", bars[0].Symbol)
	assert.Equal(t, 2900.0, bars[0].Open)
	assert.Equal(t, int64(1200), bars[0].Volume)
	assert.True(t, bars[0].Timestamp.Before(bars[1].Timestamp))
}

func TestFetchHistoricalChunksLongRanges(t *testing.T) {
	var historicalCalls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/instruments/NSE" {
			fmt.Fprint(w, instrumentDump)
			return
		}
		historicalCalls++
		fmt.Fprint(w, `{"status":"success","data":{"candles":[]}}`)
	}))

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := client.FetchHistorical(context.Background(), "RELIANCE", from, from.AddDate(0, 0, 120), drepo.IntervalMinute)
	require.NoError(t, err)
	assert.Equal(t, 3, historicalCalls) // 120 days in 50-day chunks
}

func TestFetchLiveQuotes(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote", r.URL.Path)
		require.ElementsMatch(t, []string{"NSE:RELIANCE"}, r.URL.Query()["i"])
		fmt.Fprint(w, `{"status":"success","data":{"NSE:RELIANCE":{
			"last_price":2905.5,"volume":123456,"timestamp":"2024-06-10 10:30:00",
			"ohlc":{"open":2900,"high":2910,"low":2890,"close":2898}
		}}}`)
	}))

	quotes, err := client.FetchLiveQuotes(context.Background(), []string{"RELIANCE"})
	require.NoError(t, err)
	require.Contains(t, quotes, "RELIANCE")

	q := quotes["RELIANCE"]
	assert.Equal(t, 2905.5, q.Close) // last traded price, not prior close
	assert.Equal(t, 2900.0, q.Open)
	assert.Equal(t, int64(123456), q.Volume)
	assert.Equal(t, 10, q.Timestamp.Hour())
}

func TestFetchLiveQuotesEmptySymbols(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	quotes, err := client.FetchLiveQuotes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestParseCandleRejectsMalformed(t *testing.T) {
	_, err := parseCandle([]interface{}{"2024-06-10T09:15:00+0530", 2900.0, 2910.0})
	require.Error(t, err)

	_, err = parseCandle([]interface{}{12345, 2900.0, 2910.0, 2890.0, 2905.0, 1200.0})
	require.Error(t, err)

	_, err = parseCandle([]interface{}{"not-a-time", 2900.0, 2910.0, 2890.0, 2905.0, 1200.0})
	require.Error(t, err)
}

func TestParseInstrumentsCSVMissingColumns(t *testing.T) {
	_, err := parseInstrumentsCSV([]byte("a,b,c\n1,2,3\n"))
	require.Error(t, err)
}
