package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crosspair/spreadbot/internal/domain"
)

// PriceCache implements domain.PriceCache. The latest quote per symbol lives
// in a hash at "price:{symbol}"; the latest spread observation lives at
// "spread:latest". Both carry a TTL so a stopped bot leaves no stale data
// behind.
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: c.Underlying(), ttl: ttl}
}

func priceKey(symbol string) string {
	return "price:" + symbol
}

// SetQuote stores the latest quote for a symbol.
func (pc *PriceCache) SetQuote(ctx context.Context, q domain.PriceQuote) error {
	key := priceKey(q.Symbol)
	fields := map[string]any{
		"price":    strconv.FormatFloat(q.Price, 'f', -1, 64),
		"change":   strconv.FormatFloat(q.Change24hPct, 'f', -1, 64),
		"platform": q.Platform,
		"ts":       strconv.FormatInt(q.Timestamp.UnixNano(), 10),
	}

	pipe := pc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	if pc.ttl > 0 {
		pipe.Expire(ctx, key, pc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", q.Symbol, err)
	}
	return nil
}

// SetSpread stores the latest spread observation.
func (pc *PriceCache) SetSpread(ctx context.Context, obs domain.SpreadObservation) error {
	fields := map[string]any{
		"spread_pct": strconv.FormatFloat(obs.SpreadPct, 'f', -1, 64),
		"btc_price":  strconv.FormatFloat(obs.BTC.Price, 'f', -1, 64),
		"eth_price":  strconv.FormatFloat(obs.ETH.Price, 'f', -1, 64),
		"ts":         strconv.FormatInt(obs.Timestamp.UnixNano(), 10),
	}

	pipe := pc.rdb.Pipeline()
	pipe.HSet(ctx, "spread:latest", fields)
	if pc.ttl > 0 {
		pipe.Expire(ctx, "spread:latest", pc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set spread: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
