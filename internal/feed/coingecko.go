package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crosspair/spreadbot/internal/domain"
	"github.com/crosspair/spreadbot/internal/metrics"
	"github.com/crosspair/spreadbot/internal/platform/coingecko"
	"github.com/crosspair/spreadbot/internal/strategy"
)

// heartbeatEvery bounds how often the quiet-mode heartbeat line is emitted.
const heartbeatEvery = time.Minute

// CoinGeckoFeed is the pull source. It polls the simple-price endpoint on a
// fixed interval and backs off for a fixed window after a 429.
type CoinGeckoFeed struct {
	client   *coingecko.Client
	interval time.Duration

	// entryThreshold and debug only affect logging verbosity, never which
	// observations are delivered.
	entryThreshold float64
	debug          bool

	// rateLimitCooldown is how long fetching pauses after a 429. Shortened in
	// tests.
	rateLimitCooldown time.Duration

	logger *slog.Logger

	mu            sync.Mutex
	stopped       bool
	stop          chan struct{}
	cooldownUntil time.Time
	fetchCount    int
	lastHeartbeat time.Time
}

// NewCoinGeckoFeed creates the pull feed. entryThreshold feeds the tiered log
// output; debug switches per-update logging on.
func NewCoinGeckoFeed(client *coingecko.Client, interval time.Duration, entryThreshold float64, debug bool, logger *slog.Logger) *CoinGeckoFeed {
	return &CoinGeckoFeed{
		client:            client,
		interval:          interval,
		entryThreshold:    entryThreshold,
		debug:             debug,
		rateLimitCooldown: 60 * time.Second,
		logger:            logger.With(slog.String("component", "coingecko_feed")),
		stop:              make(chan struct{}),
	}
}

// Name identifies the source in status snapshots and logs.
func (f *CoinGeckoFeed) Name() string {
	return "coingecko"
}

// Subscribe polls until the context is cancelled or Stop is called. Fetch
// errors are logged and absorbed; a rate-limit response suspends fetching for
// the cooldown window while the loop keeps ticking so it resumes exactly when
// the window lapses.
func (f *CoinGeckoFeed) Subscribe(ctx context.Context, fn func(domain.SpreadObservation)) error {
	f.poll(ctx, fn)

	for {
		wait := f.interval
		if remaining := f.cooldownRemaining(); remaining > 0 && remaining < wait {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return nil
		case <-f.stop:
			return nil
		case <-time.After(wait):
		}

		f.poll(ctx, fn)
	}
}

// Fetch performs a single fetch of both legs, bypassing the poll loop but not
// the rate-limit cooldown.
func (f *CoinGeckoFeed) Fetch(ctx context.Context) (domain.SpreadObservation, error) {
	if remaining := f.cooldownRemaining(); remaining > 0 {
		return domain.SpreadObservation{}, fmt.Errorf("feed/coingecko: %w: cooling down for %s", domain.ErrRateLimited, remaining.Round(time.Second))
	}

	quotes, err := f.client.SimplePrices(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			f.enterCooldown()
		}
		return domain.SpreadObservation{}, err
	}

	btc, haveBTC := quotes["BTC"]
	eth, haveETH := quotes["ETH"]
	if !haveBTC || !haveETH {
		return domain.SpreadObservation{}, fmt.Errorf("feed/coingecko: %w: partial response", domain.ErrNoObservation)
	}
	return strategy.Evaluate(&btc, &eth)
}

// Stop signals the poll loop to exit. Safe to call more than once.
func (f *CoinGeckoFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	f.stopped = true
	close(f.stop)
}

// HealthCheck delegates to the underlying client's /ping probe.
func (f *CoinGeckoFeed) HealthCheck(ctx context.Context) error {
	return f.client.HealthCheck(ctx)
}

// poll runs one fetch cycle: skipped while cooling down, logged-and-absorbed
// on failure, reported and delivered on success.
func (f *CoinGeckoFeed) poll(ctx context.Context, fn func(domain.SpreadObservation)) {
	if remaining := f.cooldownRemaining(); remaining > 0 {
		f.logger.DebugContext(ctx, "rate-limit cooldown active",
			slog.Duration("remaining", remaining.Round(time.Second)),
		)
		return
	}

	obs, err := f.Fetch(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			f.logger.WarnContext(ctx, "rate limited, entering cooldown",
				slog.Duration("cooldown", f.rateLimitCooldown),
			)
			return
		}
		f.logger.WarnContext(ctx, "fetch failed", slog.String("error", err.Error()))
		return
	}

	f.mu.Lock()
	f.fetchCount++
	count := f.fetchCount
	f.mu.Unlock()

	f.report(ctx, obs, count)
	fn(obs)
}

// report emits the tiered log line for a successful update. It never changes
// state beyond the heartbeat timestamp.
func (f *CoinGeckoFeed) report(ctx context.Context, obs domain.SpreadObservation, count int) {
	abs := obs.SpreadPct
	if abs < 0 {
		abs = -abs
	}

	attrs := []any{
		slog.Float64("spread_pct", obs.SpreadPct),
		slog.Float64("btc_price", obs.BTC.Price),
		slog.Float64("eth_price", obs.ETH.Price),
		slog.Int("fetch_count", count),
	}

	switch {
	case abs >= f.entryThreshold:
		f.logger.WarnContext(ctx, "spread in signal zone", attrs...)
	case f.debug:
		if abs >= 0.75*f.entryThreshold {
			attrs = append(attrs, slog.Bool("approaching", true))
		}
		f.logger.InfoContext(ctx, "spread update", attrs...)
	default:
		now := timeNow()
		f.mu.Lock()
		due := now.Sub(f.lastHeartbeat) >= heartbeatEvery
		if due {
			f.lastHeartbeat = now
		}
		f.mu.Unlock()
		if due {
			f.logger.InfoContext(ctx, "heartbeat", attrs...)
		}
	}
}

// enterCooldown opens a fresh rate-limit window from now.
func (f *CoinGeckoFeed) enterCooldown() {
	metrics.RateLimitHitsTotal.Inc()
	f.mu.Lock()
	f.cooldownUntil = timeNow().Add(f.rateLimitCooldown)
	f.mu.Unlock()
}

// cooldownRemaining reports how much of the rate-limit window is left, zero
// when fetching is allowed.
func (f *CoinGeckoFeed) cooldownRemaining() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cooldownUntil.IsZero() {
		return 0
	}
	remaining := f.cooldownUntil.Sub(timeNow())
	if remaining <= 0 {
		f.cooldownUntil = time.Time{}
		return 0
	}
	return remaining
}
