package kite

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"NiftyPulse/internal/domain/models"
	drepo "NiftyPulse/internal/domain/repository"
	"NiftyPulse/internal/service/ratelimit"
	pkghttp "NiftyPulse/pkg/http"
	applogger "NiftyPulse/pkg/logger"
)

const (
	// DefaultBaseURL is the Kite Connect REST endpoint.
	DefaultBaseURL = "https://api.kite.trade"

	// historicalChunkDays bounds one historical request; the API rejects
	// wider minute-interval ranges.
	historicalChunkDays = 50

	// instrumentsTTL caches the NSE instrument dump; it changes daily.
	instrumentsTTL = time.Hour

	// requestsPerSec paces historical and quote calls under the broker's
	// 3 req/s limit.
	requestsPerSec = 3.0

	candleTimeLayout = "2006-01-02T15:04:05-0700"
	rangeTimeLayout  = "2006-01-02 15:04:05"
)

// Credentials identify one Kite Connect session.
type Credentials struct {
	APIKey      string
	AccessToken string
}

// Client implements BarSource against the Kite Connect REST API.
type Client struct {
	creds   Credentials
	baseURL string
	http    *pkghttp.Client
	limiter *ratelimit.Limiter
	log     *applogger.Logger

	mu            sync.Mutex
	tokens        map[string]int64 // tradingsymbol -> instrument token
	tokensLoaded  time.Time
}

// New creates a Kite REST client. baseURL falls back to DefaultBaseURL.
func New(creds Credentials, baseURL string, httpClient *pkghttp.Client, limiter *ratelimit.Limiter, log *applogger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		creds:   creds,
		baseURL: baseURL,
		http:    httpClient,
		limiter: limiter,
		log:     log,
		tokens:  make(map[string]int64),
	}
}

var _ drepo.BarSource = (*Client)(nil)

func (c *Client) headers() map[string]string {
	return map[string]string{
		"X-Kite-Version": "3",
		"Authorization":  fmt.Sprintf("token %s:%s", c.creds.APIKey, c.creds.AccessToken),
	}
}

// pace blocks until the rate limiter grants a token for key.
func (c *Client) pace(ctx context.Context, key string) error {
	for !c.limiter.Allow(key, requestsPerSec, requestsPerSec) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil
}

// InstrumentToken resolves the NSE instrument token for a trading symbol.
// The instrument dump is cached for an hour.
func (c *Client) InstrumentToken(ctx context.Context, symbol string) (int64, error) {
	c.mu.Lock()
	if time.Since(c.tokensLoaded) < instrumentsTTL {
		token, ok := c.tokens[symbol]
		c.mu.Unlock()
		if !ok {
			return 0, fmt.Errorf("instrument token not found for %s", symbol)
		}
		return token, nil
	}
	c.mu.Unlock()

	if err := c.pace(ctx, "instruments"); err != nil {
		return 0, err
	}

	var body []byte
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:  pkghttp.MethodGet,
		URL:     c.baseURL + "/instruments/NSE",
		Headers: c.headers(),
	}, &body)
	if err != nil {
		return 0, fmt.Errorf("fetch instruments: %w", err)
	}

	tokens, err := parseInstrumentsCSV(body)
	if err != nil {
		return 0, fmt.Errorf("parse instruments: %w", err)
	}

	c.mu.Lock()
	c.tokens = tokens
	c.tokensLoaded = time.Now()
	token, ok := c.tokens[symbol]
	c.mu.Unlock()

	if !ok {
		return 0, fmt.Errorf("instrument token not found for %s", symbol)
	}
	return token, nil
}

type historicalResponse struct {
	Status string `json:"status"`
	Data   struct {
		Candles [][]interface{} `json:"candles"`
	} `json:"data"`
}

// FetchHistorical pulls candles for symbol in 50-day chunks, deduplicates
// by timestamp, and returns them in ascending order.
func (c *Client) FetchHistorical(ctx context.Context, symbol string, from, to time.Time, interval drepo.Interval) ([]models.Bar, error) {
	token, err := c.InstrumentToken(ctx, symbol)
	if err != nil {
		return nil, err
	}

	var all []models.Bar
	chunk := historicalChunkDays * 24 * time.Hour
	for cur := from; cur.Before(to); cur = cur.Add(chunk).Add(24 * time.Hour) {
		end := cur.Add(chunk)
		if end.After(to) {
			end = to
		}

		if err := c.pace(ctx, "historical"); err != nil {
			return nil, err
		}

		var resp historicalResponse
		err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
			Method:  pkghttp.MethodGet,
			URL:     fmt.Sprintf("%s/instruments/historical/%d/%s", c.baseURL, token, interval),
			Headers: c.headers(),
			QueryParams: map[string][]string{
				"from": {cur.Format(rangeTimeLayout)},
				"to":   {end.Format(rangeTimeLayout)},
			},
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("fetch historical %s: %w", symbol, err)
		}

		for _, candle := range resp.Data.Candles {
			bar, err := parseCandle(candle)
			if err != nil {
				c.log.Warn("skipping malformed candle", applogger.String("symbol", symbol), applogger.Error(err))
				continue
			}
			bar.Symbol = symbol
			all = append(all, bar)
		}
	}

	return dedupSort(all), nil
}

type quotePayload struct {
	LastPrice float64 `json:"last_price"`
	Volume    int64   `json:"volume"`
	Timestamp string  `json:"timestamp"`
	OHLC      struct {
		Open  float64 `json:"open"`
		High  float64 `json:"high"`
		Low   float64 `json:"low"`
		Close float64 `json:"close"`
	} `json:"ohlc"`
}

type quoteResponse struct {
	Status string                  `json:"status"`
	Data   map[string]quotePayload `json:"data"`
}

// FetchLiveQuotes pulls current session snapshots for symbols in one call.
func (c *Client) FetchLiveQuotes(ctx context.Context, symbols []string) (map[string]models.LiveQuote, error) {
	if len(symbols) == 0 {
		return map[string]models.LiveQuote{}, nil
	}

	if err := c.pace(ctx, "quote"); err != nil {
		return nil, err
	}

	keys := make([]string, len(symbols))
	bySymbol := make(map[string]string, len(symbols))
	for i, s := range symbols {
		keys[i] = "NSE:" + s
		bySymbol[keys[i]] = s
	}

	var resp quoteResponse
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         c.baseURL + "/quote",
		Headers:     c.headers(),
		QueryParams: map[string][]string{"i": keys},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}

	now := time.Now()
	quotes := make(map[string]models.LiveQuote, len(resp.Data))
	for key, q := range resp.Data {
		symbol, ok := bySymbol[key]
		if !ok {
			continue
		}
		ts := now
		if q.Timestamp != "" {
			if parsed, err := time.Parse(rangeTimeLayout, q.Timestamp); err == nil {
				ts = parsed
			}
		}
		quotes[symbol] = models.LiveQuote{
			Symbol:    symbol,
			Timestamp: ts,
			Open:      q.OHLC.Open,
			High:      q.OHLC.High,
			Low:       q.OHLC.Low,
			Close:     q.LastPrice,
			Volume:    q.Volume,
		}
	}
	return quotes, nil
}

func parseCandle(candle []interface{}) (models.Bar, error) {
	if len(candle) < 6 {
		return models.Bar{}, fmt.Errorf("candle has %d fields", len(candle))
	}

	tsRaw, ok := candle[0].(string)
	if !ok {
		return models.Bar{}, fmt.Errorf("candle timestamp is %T", candle[0])
	}
	ts, err := time.Parse(candleTimeLayout, tsRaw)
	if err != nil {
		return models.Bar{}, fmt.Errorf("candle timestamp: %w", err)
	}

	nums := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		f, ok := candle[i].(float64)
		if !ok {
			return models.Bar{}, fmt.Errorf("candle field %d is %T", i, candle[i])
		}
		nums[i-1] = f
	}

	return models.Bar{
		Timestamp: ts,
		Open:      nums[0],
		High:      nums[1],
		Low:       nums[2],
		Close:     nums[3],
		Volume:    int64(nums[4]),
	}, nil
}

// dedupSort drops duplicate timestamps (keeping the first occurrence) and
// sorts ascending.
func dedupSort(bars []models.Bar) []models.Bar {
	if len(bars) == 0 {
		return bars
	}
	seen := make(map[int64]struct{}, len(bars))
	out := bars[:0]
	for _, b := range bars {
		key := b.Timestamp.UnixNano()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func parseInstrumentsCSV(data []byte) (map[string]int64, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty instrument dump")
	}

	tokenCol, symbolCol := -1, -1
	for i, name := range records[0] {
		switch name {
		case "instrument_token":
			tokenCol = i
		case "tradingsymbol":
			symbolCol = i
		}
	}
	if tokenCol < 0 || symbolCol < 0 {
		return nil, fmt.Errorf("instrument dump missing token or symbol column")
	}

	tokens := make(map[string]int64, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) <= tokenCol || len(rec) <= symbolCol {
			continue
		}
		token, err := strconv.ParseInt(rec[tokenCol], 10, 64)
		if err != nil {
			continue
		}
		tokens[rec[symbolCol]] = token
	}
	return tokens, nil
}
