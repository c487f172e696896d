// Package extended provides the Extended Exchange REST client used to enrich
// alerts with supplementary BTC/ETH quotes.
package extended

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/crosspair/spreadbot/internal/domain"
)

// marketSymbols maps Extended market names to tracked symbols.
var marketSymbols = map[string]string{
	"BTC-USD": "BTC",
	"ETH-USD": "ETH",
}

// Client fetches market stats from the Extended Exchange API. Quotes are
// alert context only; they never feed signal computation.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the given API root, e.g.
// "https://api.extended.exchange/api/v1".
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With(slog.String("component", "extended")),
	}
}

// marketsResponse is the /info/markets envelope.
type marketsResponse struct {
	Status string           `json:"status"`
	Data   []map[string]any `json:"data"`
}

// Quotes fetches BTC and ETH stats in one call. Markets that fail to parse
// are skipped with a warning; the venue's schema has drifted more than once,
// so price fields are resolved by trying known field-name variants.
func (c *Client) Quotes(ctx context.Context) (map[string]domain.PriceQuote, error) {
	body, err := c.doGet(ctx, "/info/markets?market=BTC-USD&market=ETH-USD")
	if err != nil {
		return nil, fmt.Errorf("extended: get markets: %w", err)
	}

	var resp marketsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("extended: decode markets: %w", err)
	}
	if resp.Status != "OK" {
		return nil, fmt.Errorf("extended: %w: status %q", domain.ErrUnavailable, resp.Status)
	}

	now := time.Now().UTC()
	quotes := make(map[string]domain.PriceQuote, 2)
	for _, market := range resp.Data {
		name, _ := market["name"].(string)
		symbol, ok := marketSymbols[name]
		if !ok {
			continue
		}

		stats, ok := market["marketStats"].(map[string]any)
		if !ok {
			c.logger.WarnContext(ctx, "market without stats", slog.String("market", name))
			continue
		}

		price, ok := pickFloat(stats, "lastPrice", "last_price", "markPrice", "mark_price")
		if !ok || price <= 0 {
			c.logger.WarnContext(ctx, "market without usable price", slog.String("market", name))
			continue
		}

		q := domain.PriceQuote{
			Symbol:    symbol,
			Price:     price,
			Timestamp: now,
			Platform:  "extended",
		}
		if v, ok := pickFloat(stats, "dailyPriceChangePercentage", "dailyPriceChange", "priceChangePercent"); ok {
			q.Change24hPct = v
		}
		if v, ok := pickFloat(stats, "bidPrice", "bid_price", "bestBid"); ok {
			q.Bid = v
		}
		if v, ok := pickFloat(stats, "askPrice", "ask_price", "bestAsk"); ok {
			q.Ask = v
		}
		if v, ok := pickFloat(stats, "dailyVolume", "daily_volume", "volume24h"); ok {
			q.Volume24h = v
		}
		if v, ok := pickFloat(stats, "fundingRate", "funding_rate"); ok {
			// Given as a decimal fraction; report as percent.
			pct := v * 100
			q.FundingRatePct = &pct
		}

		quotes[symbol] = q
	}

	return quotes, nil
}

// Name identifies the venue in health-check logs and alert payloads.
func (c *Client) Name() string {
	return "extended"
}

// HealthCheck fetches a single market and verifies the API reports OK.
func (c *Client) HealthCheck(ctx context.Context) error {
	body, err := c.doGet(ctx, "/info/markets?market=BTC-USD")
	if err != nil {
		return fmt.Errorf("extended: health check: %w", err)
	}
	var resp marketsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("extended: health check decode: %w", err)
	}
	if resp.Status != "OK" {
		return fmt.Errorf("extended: health check: %w: status %q", domain.ErrUnavailable, resp.Status)
	}
	return nil
}

// doGet sends an unauthenticated GET request to the Extended API.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// pickFloat resolves a numeric field by trying each key in order. Values may
// arrive as JSON numbers or numeric strings depending on API version.
func pickFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f, true
			}
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
