package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/crosspair/spreadbot/internal/domain"
)

// RESTClient fetches 24h ticker statistics from the Binance REST API. Used
// for the one-shot fetch that decides source selection at startup.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRESTClient creates a REST client for the given API root, e.g.
// "https://api.binance.com/api/v3".
func NewRESTClient(baseURL string) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ticker24h is the /ticker/24hr response shape.
type ticker24h struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	BidPrice           string `json:"bidPrice"`
	AskPrice           string `json:"askPrice"`
	QuoteVolume        string `json:"quoteVolume"`
}

// Ticker24h returns the rolling 24h ticker for one symbol.
func (c *RESTClient) Ticker24h(ctx context.Context, symbol string) (Ticker, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.doGet(ctx, "/ticker/24hr?"+params.Encode())
	if err != nil {
		return Ticker{}, fmt.Errorf("binance/rest: ticker 24h %s: %w", symbol, err)
	}

	var resp ticker24h
	if err := json.Unmarshal(body, &resp); err != nil {
		return Ticker{}, fmt.Errorf("binance/rest: decode ticker %s: %w", symbol, err)
	}

	last, err := strconv.ParseFloat(resp.LastPrice, 64)
	if err != nil {
		return Ticker{}, fmt.Errorf("binance/rest: %w: last price %q", domain.ErrInvalidPayload, resp.LastPrice)
	}
	change, err := strconv.ParseFloat(resp.PriceChangePercent, 64)
	if err != nil {
		return Ticker{}, fmt.Errorf("binance/rest: %w: change pct %q", domain.ErrInvalidPayload, resp.PriceChangePercent)
	}

	tick := Ticker{
		Symbol:       resp.Symbol,
		LastPrice:    last,
		Change24hPct: change,
	}
	if v, err := strconv.ParseFloat(resp.BidPrice, 64); err == nil {
		tick.Bid = v
	}
	if v, err := strconv.ParseFloat(resp.AskPrice, 64); err == nil {
		tick.Ask = v
	}
	if v, err := strconv.ParseFloat(resp.QuoteVolume, 64); err == nil {
		tick.QuoteVolume = v
	}

	return tick, nil
}

// doGet sends an unauthenticated GET request to the Binance REST API.
func (c *RESTClient) doGet(ctx context.Context, path string) ([]byte, error) {
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

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests, http.StatusTeapot:
		// Binance uses 418 for auto-banned IPs that kept hitting 429.
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
