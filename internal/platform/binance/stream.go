// Package binance provides the Binance market-data clients: a WebSocket
// ticker stream with automatic reconnect and a 24h-ticker REST client.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crosspair/spreadbot/internal/domain"
	"github.com/crosspair/spreadbot/internal/metrics"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message.
	pongWait = 30 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// handshakeTimeout bounds the WebSocket dial.
	handshakeTimeout = 15 * time.Second
)

// TickerHandler is called for every parsed ticker update.
type TickerHandler func(Ticker)

// Ticker is one 24h-rolling ticker update for a single symbol.
type Ticker struct {
	Symbol       string
	LastPrice    float64
	Change24hPct float64
	Bid          float64
	Ask          float64
	QuoteVolume  float64
}

// StreamClient maintains a persistent connection to the Binance combined
// ticker stream. Run drives an explicit connect/stream/backoff loop: the
// reconnect delay is carried as data, doubled after each failed cycle, capped
// at the configured maximum, and reset to the base on every successful
// connect.
type StreamClient struct {
	wsURL         string
	symbols       []string
	reconnectBase time.Duration
	reconnectMax  time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	stopped bool
	stop    chan struct{}
}

// NewStreamClient creates a stream client that subscribes to the @ticker
// stream of every given symbol (e.g. "BTCUSDT", "ETHUSDT") on each connect.
func NewStreamClient(wsURL string, symbols []string, reconnectBase, reconnectMax time.Duration, logger *slog.Logger) *StreamClient {
	return &StreamClient{
		wsURL:         wsURL,
		symbols:       symbols,
		reconnectBase: reconnectBase,
		reconnectMax:  reconnectMax,
		logger:        logger.With(slog.String("component", "binance_stream")),
		stop:          make(chan struct{}),
	}
}

// Run connects, subscribes, and delivers ticker updates to onTicker until the
// context is cancelled or Stop is called. Transport errors and malformed
// frames never escape: the former trigger a backoff-and-reconnect cycle, the
// latter are logged and skipped.
func (s *StreamClient) Run(ctx context.Context, onTicker TickerHandler) error {
	delay := s.reconnectBase

	for {
		if s.halted(ctx) {
			return nil
		}

		connected, err := s.streamOnce(ctx, onTicker)
		if connected {
			delay = s.reconnectBase
		}
		if s.halted(ctx) {
			return nil
		}

		metrics.WSReconnectsTotal.Inc()
		s.logger.WarnContext(ctx, "stream disconnected, backing off",
			slog.String("error", errString(err)),
			slog.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.reconnectMax {
			delay = s.reconnectMax
		}
	}
}

// Stop signals the stream loop to exit. The loop terminates within one
// in-flight iteration (at worst one backoff sleep). Safe to call more than
// once.
func (s *StreamClient) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stop)
}

// streamOnce performs one full connect/subscribe/read cycle. It returns when
// the connection drops or the client is stopped; the caller owns backoff.
// connected reports whether the dial and subscribe both succeeded, so the
// caller knows to reset its delay.
func (s *StreamClient) streamOnce(ctx context.Context, onTicker TickerHandler) (connected bool, err error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return false, fmt.Errorf("binance/stream: connect: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Resubscribe on every (re)connect; Binance does not persist
	// subscriptions across connections.
	if err := s.sendSubscribe(conn); err != nil {
		return false, fmt.Errorf("binance/stream: subscribe: %w", err)
	}

	s.logger.InfoContext(ctx, "connected to binance stream",
		slog.String("url", s.wsURL),
		slog.Any("symbols", s.symbols),
	)

	// Ping loop for this connection only.
	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-pingDone:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		if s.halted(ctx) {
			return true, nil
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("binance/stream: read: %w", err)
		}

		tick, ok, err := ParseTickerFrame(raw)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping malformed frame",
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ok {
			// Subscribe ack or other control frame.
			continue
		}

		onTicker(tick)
	}
}

// sendSubscribe writes the SUBSCRIBE command for all tracked symbols.
func (s *StreamClient) sendSubscribe(conn *websocket.Conn) error {
	params := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		params = append(params, strings.ToLower(sym)+"@ticker")
	}

	cmd := map[string]any{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     1,
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// halted reports whether the loop should exit.
func (s *StreamClient) halted(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-s.stop:
		return true
	default:
		return false
	}
}

// tickerFrame is the raw ticker payload from the @ticker stream. Result and
// ID are only present on subscribe acknowledgements.
type tickerFrame struct {
	Result json.RawMessage `json:"result"`
	ID     *int64          `json:"id"`

	Symbol      string `json:"s"`
	LastPrice   string `json:"c"`
	ChangePct   string `json:"P"`
	BestBid     string `json:"b"`
	BestAsk     string `json:"a"`
	QuoteVolume string `json:"q"`
}

// ParseTickerFrame decodes one stream frame. It returns ok=false for
// subscribe acknowledgements (frames carrying "result"/"id") and frames for
// no symbol, and an error when the frame is not valid JSON or carries
// unparseable numeric fields.
func ParseTickerFrame(raw []byte) (Ticker, bool, error) {
	var frame tickerFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Ticker{}, false, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	if frame.ID != nil || len(frame.Result) > 0 {
		return Ticker{}, false, nil
	}
	if frame.Symbol == "" {
		return Ticker{}, false, nil
	}

	last, err := strconv.ParseFloat(frame.LastPrice, 64)
	if err != nil {
		return Ticker{}, false, fmt.Errorf("%w: last price %q", domain.ErrInvalidPayload, frame.LastPrice)
	}
	change, err := strconv.ParseFloat(frame.ChangePct, 64)
	if err != nil {
		return Ticker{}, false, fmt.Errorf("%w: change pct %q", domain.ErrInvalidPayload, frame.ChangePct)
	}

	tick := Ticker{
		Symbol:       frame.Symbol,
		LastPrice:    last,
		Change24hPct: change,
	}

	// Book and volume are optional context; a venue-side omission is not an
	// error.
	if v, err := strconv.ParseFloat(frame.BestBid, 64); err == nil {
		tick.Bid = v
	}
	if v, err := strconv.ParseFloat(frame.BestAsk, 64); err == nil {
		tick.Ask = v
	}
	if v, err := strconv.ParseFloat(frame.QuoteVolume, 64); err == nil {
		tick.QuoteVolume = v
	}

	return tick, true, nil
}

func errString(err error) string {
	if err == nil {
		return "connection closed"
	}
	return err.Error()
}
