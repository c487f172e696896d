// Package coingecko provides the CoinGecko simple-price REST client used as
// the polling fallback data source.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/crosspair/spreadbot/internal/domain"
)

// coinIDs maps tracked symbols to CoinGecko coin identifiers.
var coinIDs = map[string]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
}

// Client is the CoinGecko REST client. The free tier allows 10-30 calls per
// minute; callers are expected to poll no faster than every 30 seconds and to
// honor ErrRateLimited with a cooldown.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given API root, e.g.
// "https://api.coingecko.com/api/v3".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SimplePrices fetches the current USD price, 24h change, and 24h volume for
// BTC and ETH in a single call. A 429 response maps to domain.ErrRateLimited.
// Coins missing from the response are omitted from the result map.
func (c *Client) SimplePrices(ctx context.Context) (map[string]domain.PriceQuote, error) {
	params := url.Values{}
	params.Set("ids", coinIDs["BTC"]+","+coinIDs["ETH"])
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_change", "true")
	params.Set("include_24hr_vol", "true")

	body, err := c.doGet(ctx, "/simple/price?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("coingecko: simple price: %w", err)
	}

	var resp map[string]struct {
		USD          float64  `json:"usd"`
		USD24hChange float64  `json:"usd_24h_change"`
		USD24hVol    *float64 `json:"usd_24h_vol"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("coingecko: decode simple price: %w", err)
	}

	now := time.Now().UTC()
	quotes := make(map[string]domain.PriceQuote, len(coinIDs))
	for symbol, id := range coinIDs {
		coin, ok := resp[id]
		if !ok || coin.USD == 0 {
			continue
		}
		q := domain.PriceQuote{
			Symbol:       symbol,
			Price:        coin.USD,
			Change24hPct: coin.USD24hChange,
			Timestamp:    now,
			Platform:     "coingecko",
		}
		if coin.USD24hVol != nil {
			q.Volume24h = *coin.USD24hVol
		}
		quotes[symbol] = q
	}

	return quotes, nil
}

// Name identifies the client in health-check logs.
func (c *Client) Name() string {
	return "coingecko"
}

// HealthCheck pings the API root.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.doGet(ctx, "/ping"); err != nil {
		return fmt.Errorf("coingecko: health check: %w", err)
	}
	return nil
}

// doGet sends an unauthenticated GET request to the CoinGecko API.
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

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
