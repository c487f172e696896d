// Package variational provides the Variational Omni REST client used to
// enrich alerts with supplementary BTC/ETH quotes.
package variational

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

// Client fetches listing stats from the Variational metadata API. Quotes are
// alert context only; Variational does not publish a 24h change figure, so
// Change24hPct is always zero here.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the given API root.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With(slog.String("component", "variational")),
	}
}

// statsResponse is the /metadata/stats envelope.
type statsResponse struct {
	Listings []map[string]any `json:"listings"`
}

// Quotes fetches BTC and ETH listings. Listings that fail to parse are
// skipped with a warning; numeric fields are resolved by trying known
// field-name variants because the API has shipped both snake_case and
// camelCase versions.
func (c *Client) Quotes(ctx context.Context) (map[string]domain.PriceQuote, error) {
	body, err := c.doGet(ctx, "/metadata/stats")
	if err != nil {
		return nil, fmt.Errorf("variational: get stats: %w", err)
	}

	var resp statsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("variational: decode stats: %w", err)
	}

	quotes := make(map[string]domain.PriceQuote, 2)
	for _, listing := range resp.Listings {
		ticker, _ := listing["ticker"].(string)
		if ticker != "BTC" && ticker != "ETH" {
			continue
		}

		price, ok := pickFloat(listing, "mark_price", "markPrice", "last_price", "lastPrice")
		if !ok || price <= 0 {
			c.logger.WarnContext(ctx, "listing without usable price", slog.String("ticker", ticker))
			continue
		}

		q := domain.PriceQuote{
			Symbol:    ticker,
			Price:     price,
			Timestamp: listingTimestamp(listing),
			Platform:  "variational",
		}
		if quoteBlock, ok := listing["quotes"].(map[string]any); ok {
			if size1k, ok := quoteBlock["size_1k"].(map[string]any); ok {
				if v, ok := pickFloat(size1k, "bid"); ok {
					q.Bid = v
				}
				if v, ok := pickFloat(size1k, "ask"); ok {
					q.Ask = v
				}
			}
		}
		if v, ok := pickFloat(listing, "volume_24h", "volume24h"); ok {
			q.Volume24h = v
		}
		if v, ok := pickFloat(listing, "funding_rate", "fundingRate"); ok {
			// Given as a decimal fraction; report as percent.
			pct := v * 100
			q.FundingRatePct = &pct
		}

		quotes[ticker] = q
	}

	return quotes, nil
}

// Name identifies the venue in health-check logs and alert payloads.
func (c *Client) Name() string {
	return "variational"
}

// HealthCheck verifies the stats endpoint answers at all.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.doGet(ctx, "/metadata/stats"); err != nil {
		return fmt.Errorf("variational: health check: %w", err)
	}
	return nil
}

// listingTimestamp extracts quotes.updated_at when present, falling back to
// now.
func listingTimestamp(listing map[string]any) time.Time {
	if quoteBlock, ok := listing["quotes"].(map[string]any); ok {
		if raw, ok := quoteBlock["updated_at"].(string); ok {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				return ts
			}
		}
	}
	return time.Now().UTC()
}

// doGet sends an unauthenticated GET request to the Variational API.
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
