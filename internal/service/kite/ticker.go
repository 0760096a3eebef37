package kite

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"NiftyPulse/internal/domain/models"
	drepo "NiftyPulse/internal/domain/repository"
	applogger "NiftyPulse/pkg/logger"
)

// DefaultTickerURL is the Kite streaming endpoint.
const DefaultTickerURL = "wss://ws.kite.trade"

// quotePacketLen is the size of one quote-mode packet: instrument token,
// last price, last quantity, average price, volume, buy/sell quantity, OHLC.
const quotePacketLen = 44

// TokenResolver maps trading symbols to instrument tokens.
type TokenResolver interface {
	InstrumentToken(ctx context.Context, symbol string) (int64, error)
}

// Ticker implements QuoteStream over the Kite WebSocket feed. Quote frames
// arrive as binary packets; prices are paise and divided by 100 on parse.
type Ticker struct {
	creds          Credentials
	url            string
	symbols        []string
	resolver       TokenResolver
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *applogger.Logger

	conn      *websocket.Conn
	connected bool
	bySymbol  map[uint32]string // instrument token -> symbol
}

// NewTicker creates a Kite quote stream for symbols.
func NewTicker(creds Credentials, url string, symbols []string, resolver TokenResolver, reconnectDelay, pingInterval time.Duration, log *applogger.Logger) drepo.QuoteStream {
	if url == "" {
		url = DefaultTickerURL
	}
	return &Ticker{
		creds:          creds,
		url:            url,
		symbols:        symbols,
		resolver:       resolver,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
		bySymbol:       make(map[uint32]string),
	}
}

// Connect establishes the WebSocket connection.
func (t *Ticker) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?api_key=%s&access_token=%s", t.url, t.creds.APIKey, t.creds.AccessToken)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("kite ticker connect: %w", err)
	}
	t.conn = conn
	t.connected = true
	t.log.Info("kite ticker connected")
	return nil
}

// Subscribe resolves instrument tokens and subscribes in quote mode.
func (t *Ticker) Subscribe(ctx context.Context) error {
	if t.conn == nil || !t.connected {
		return fmt.Errorf("kite ticker not connected")
	}

	tokens := make([]int64, 0, len(t.symbols))
	for _, s := range t.symbols {
		token, err := t.resolver.InstrumentToken(ctx, s)
		if err != nil {
			t.log.Warn("skipping unresolvable symbol", applogger.String("symbol", s), applogger.Error(err))
			continue
		}
		tokens = append(tokens, token)
		t.bySymbol[uint32(token)] = s
	}
	if len(tokens) == 0 {
		return fmt.Errorf("no instrument tokens resolved")
	}

	if err := t.conn.WriteJSON(map[string]interface{}{"a": "subscribe", "v": tokens}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := t.conn.WriteJSON(map[string]interface{}{"a": "mode", "v": []interface{}{"quote", tokens}}); err != nil {
		return fmt.Errorf("set quote mode: %w", err)
	}

	t.log.Info("kite ticker subscribed", applogger.Int("symbols", len(tokens)))
	return nil
}

// Read streams quotes and errors until the context is cancelled or the
// connection drops.
func (t *Ticker) Read(ctx context.Context) (<-chan models.LiveQuote, <-chan error) {
	quotes := make(chan models.LiveQuote, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(t.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if t.conn != nil {
					_ = t.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(quotes)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if t.conn == nil {
					errs <- fmt.Errorf("kite ticker conn nil")
					return
				}
				msgType, b, err := t.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("kite ticker read: %w", err)
					return
				}
				if msgType != websocket.BinaryMessage {
					// text frames carry order postbacks and errors
					continue
				}
				for _, q := range t.parseFrame(b) {
					select {
					case quotes <- q:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return quotes, errs
}

// parseFrame splits a binary frame into packets: a 2-byte packet count, then
// per packet a 2-byte length and the payload.
func (t *Ticker) parseFrame(b []byte) []models.LiveQuote {
	if len(b) < 2 {
		return nil
	}
	count := int(binary.BigEndian.Uint16(b[0:2]))
	offset := 2

	quotes := make([]models.LiveQuote, 0, count)
	for i := 0; i < count; i++ {
		if offset+2 > len(b) {
			break
		}
		packetLen := int(binary.BigEndian.Uint16(b[offset : offset+2]))
		offset += 2
		if offset+packetLen > len(b) {
			break
		}
		if q, ok := t.parseQuotePacket(b[offset : offset+packetLen]); ok {
			quotes = append(quotes, q)
		}
		offset += packetLen
	}
	return quotes
}

func (t *Ticker) parseQuotePacket(p []byte) (models.LiveQuote, bool) {
	if len(p) < quotePacketLen {
		return models.LiveQuote{}, false
	}

	token := binary.BigEndian.Uint32(p[0:4])
	symbol, ok := t.bySymbol[token]
	if !ok {
		return models.LiveQuote{}, false
	}

	paise := func(off int) float64 {
		return float64(int32(binary.BigEndian.Uint32(p[off:off+4]))) / 100
	}

	return models.LiveQuote{
		Symbol:    symbol,
		Timestamp: time.Now(),
		Close:     paise(4), // last traded price
		Volume:    int64(binary.BigEndian.Uint32(p[16:20])),
		Open:      paise(28),
		High:      paise(32),
		Low:       paise(36),
	}, true
}

// Reconnect closes and re-establishes the stream.
func (t *Ticker) Reconnect(ctx context.Context) error {
	_ = t.Close()
	time.Sleep(t.reconnectDelay)
	if err := t.Connect(ctx); err != nil {
		return err
	}
	return t.Subscribe(ctx)
}

// Close closes the WS connection.
func (t *Ticker) Close() error {
	t.connected = false
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (t *Ticker) IsConnected() bool { return t.connected }
