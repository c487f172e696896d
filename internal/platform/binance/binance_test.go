package binance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crosspair/spreadbot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestParseTickerFrame(t *testing.T) {
	raw := []byte(`{"e":"24hrTicker","s":"BTCUSDT","c":"97123.45","P":"1.25","b":"97120.00","a":"97125.00","q":"123456789.0"}`)

	tick, ok, err := ParseTickerFrame(raw)
	if err != nil {
		t.Fatalf("ParseTickerFrame: %v", err)
	}
	if !ok {
		t.Fatal("expected ticker frame, got control frame")
	}
	if tick.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %q, want BTCUSDT", tick.Symbol)
	}
	if math.Abs(tick.LastPrice-97123.45) > 1e-9 {
		t.Errorf("last = %v, want 97123.45", tick.LastPrice)
	}
	if math.Abs(tick.Change24hPct-1.25) > 1e-9 {
		t.Errorf("change = %v, want 1.25", tick.Change24hPct)
	}
	if tick.Bid != 97120 || tick.Ask != 97125 {
		t.Errorf("book = %v/%v, want 97120/97125", tick.Bid, tick.Ask)
	}
}

func TestParseTickerFrameSkipsSubscribeAck(t *testing.T) {
	for _, raw := range []string{
		`{"result":null,"id":1}`,
		`{"id":1}`,
	} {
		_, ok, err := ParseTickerFrame([]byte(raw))
		if err != nil {
			t.Errorf("ack frame %s returned error: %v", raw, err)
		}
		if ok {
			t.Errorf("ack frame %s parsed as ticker", raw)
		}
	}
}

func TestParseTickerFrameMalformed(t *testing.T) {
	_, _, err := ParseTickerFrame([]byte(`{not json`))
	if !errors.Is(err, domain.ErrInvalidPayload) {
		t.Errorf("error = %v, want ErrInvalidPayload", err)
	}

	_, _, err = ParseTickerFrame([]byte(`{"s":"BTCUSDT","c":"abc","P":"1.0"}`))
	if !errors.Is(err, domain.ErrInvalidPayload) {
		t.Errorf("error = %v, want ErrInvalidPayload for bad price", err)
	}
}

func TestStreamResetsBackoffAfterSuccessfulConnect(t *testing.T) {
	connects := make(chan time.Time, 16)
	var delivered atomic.Int64

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connects <- time.Now()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Consume the subscribe command, deliver one ticker, then drop the
		// connection to force a reconnect cycle.
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"e":"24hrTicker","s":"BTCUSDT","c":"97000.0","P":"1.0","b":"96999","a":"97001","q":"1"}`))
	}))
	defer srv.Close()

	base := 50 * time.Millisecond
	client := NewStreamClient(wsURL(srv), []string{"BTCUSDT"}, base, 400*time.Millisecond, discardLogger())

	done := make(chan struct{})
	go func() {
		client.Run(context.Background(), func(Ticker) { delivered.Add(1) })
		close(done)
	}()
	defer func() {
		client.Stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after Stop")
		}
	}()

	// Every cycle connects successfully, so the gap between cycles must stay
	// near the base delay instead of doubling toward the cap. Five connects
	// with doubling would take base*(1+2+4+8) = 750ms of sleep alone.
	var stamps []time.Time
	for len(stamps) < 5 {
		select {
		case ts := <-connects:
			stamps = append(stamps, ts)
		case <-time.After(3 * time.Second):
			t.Fatalf("saw %d connects, want 5", len(stamps))
		}
	}

	if elapsed := stamps[4].Sub(stamps[0]); elapsed > 500*time.Millisecond {
		t.Errorf("5 successful cycles took %v, backoff is not resetting to base", elapsed)
	}
	if delivered.Load() == 0 {
		t.Error("no tickers delivered")
	}
}

func TestStreamDoublesBackoffWhileConnectFails(t *testing.T) {
	attempts := make(chan time.Time, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts <- time.Now()
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	base := 40 * time.Millisecond
	client := NewStreamClient(wsURL(srv), []string{"BTCUSDT"}, base, 300*time.Millisecond, discardLogger())

	done := make(chan struct{})
	go func() {
		client.Run(context.Background(), func(Ticker) {})
		close(done)
	}()

	var stamps []time.Time
	for len(stamps) < 4 {
		select {
		case ts := <-attempts:
			stamps = append(stamps, ts)
		case <-time.After(3 * time.Second):
			t.Fatalf("saw %d attempts, want 4", len(stamps))
		}
	}

	client.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	// Gaps should roughly follow base, 2*base, 4*base.
	first := stamps[1].Sub(stamps[0])
	third := stamps[3].Sub(stamps[2])
	if first >= 100*time.Millisecond {
		t.Errorf("first retry gap = %v, want near %v", first, base)
	}
	if third < 100*time.Millisecond {
		t.Errorf("third retry gap = %v, want at least 4x base after two failures", third)
	}
}

func TestRESTTicker24h(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ticker/24hr" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "ETHUSDT" {
			t.Errorf("symbol = %q, want ETHUSDT", got)
		}
		w.Write([]byte(`{"symbol":"ETHUSDT","lastPrice":"3456.78","priceChangePercent":"-2.10","bidPrice":"3456.50","askPrice":"3457.00","quoteVolume":"987654.0"}`))
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL)
	tick, err := client.Ticker24h(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("Ticker24h: %v", err)
	}
	if tick.LastPrice != 3456.78 {
		t.Errorf("last = %v, want 3456.78", tick.LastPrice)
	}
	if tick.Change24hPct != -2.10 {
		t.Errorf("change = %v, want -2.10", tick.Change24hPct)
	}
}

func TestRESTRateLimitMapsToDomainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL)
	_, err := client.Ticker24h(context.Background(), "BTCUSDT")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
}
