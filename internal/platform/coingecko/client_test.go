package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crosspair/spreadbot/internal/domain"
)

func TestSimplePrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("ids") != "bitcoin,ethereum" {
			t.Errorf("ids = %q", q.Get("ids"))
		}
		if q.Get("include_24hr_change") != "true" {
			t.Errorf("include_24hr_change = %q", q.Get("include_24hr_change"))
		}
		w.Write([]byte(`{
			"bitcoin":  {"usd": 97000.5, "usd_24h_change": 1.2, "usd_24h_vol": 1000000},
			"ethereum": {"usd": 3400.25, "usd_24h_change": -0.8}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	quotes, err := client.SimplePrices(context.Background())
	if err != nil {
		t.Fatalf("SimplePrices: %v", err)
	}

	btc, ok := quotes["BTC"]
	if !ok {
		t.Fatal("missing BTC quote")
	}
	if btc.Price != 97000.5 || btc.Change24hPct != 1.2 {
		t.Errorf("btc = %+v", btc)
	}
	if btc.Platform != "coingecko" {
		t.Errorf("platform = %q", btc.Platform)
	}

	eth, ok := quotes["ETH"]
	if !ok {
		t.Fatal("missing ETH quote")
	}
	if eth.Price != 3400.25 || eth.Change24hPct != -0.8 {
		t.Errorf("eth = %+v", eth)
	}
	if eth.Volume24h != 0 {
		t.Errorf("eth volume = %v, want 0 when absent", eth.Volume24h)
	}
}

func TestSimplePricesOmitsMissingCoin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin": {"usd": 97000, "usd_24h_change": 1.0}}`))
	}))
	defer srv.Close()

	quotes, err := NewClient(srv.URL).SimplePrices(context.Background())
	if err != nil {
		t.Fatalf("SimplePrices: %v", err)
	}
	if _, ok := quotes["ETH"]; ok {
		t.Error("ETH should be omitted when absent from response")
	}
	if _, ok := quotes["BTC"]; !ok {
		t.Error("BTC should be present")
	}
}

func TestSimplePricesRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SimplePrices(context.Background())
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
}

func TestHealthCheck(t *testing.T) {
	var pinged bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ping" {
			pinged = true
			w.Write([]byte(`{"gecko_says":"(V3) To the Moon!"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if !pinged {
		t.Error("expected /ping to be called")
	}
}
