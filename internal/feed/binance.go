package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/crosspair/spreadbot/internal/domain"
	"github.com/crosspair/spreadbot/internal/platform/binance"
	"github.com/crosspair/spreadbot/internal/strategy"
)

// tradingPairs maps Binance trading-pair symbols to tracked asset symbols.
var tradingPairs = map[string]string{
	"BTCUSDT": "BTC",
	"ETHUSDT": "ETH",
}

// BinanceFeed is the push source. It caches the latest quote per tracked
// symbol and emits an observation only once BOTH symbols have been seen since
// the feed started, so a consumer never receives half-populated state.
type BinanceFeed struct {
	stream *binance.StreamClient
	rest   *binance.RESTClient
	logger *slog.Logger

	mu     sync.Mutex
	quotes map[string]domain.PriceQuote
}

// NewBinanceFeed creates the push feed on top of the given stream and REST
// clients.
func NewBinanceFeed(stream *binance.StreamClient, rest *binance.RESTClient, logger *slog.Logger) *BinanceFeed {
	return &BinanceFeed{
		stream: stream,
		rest:   rest,
		logger: logger.With(slog.String("component", "binance_feed")),
		quotes: make(map[string]domain.PriceQuote),
	}
}

// Name identifies the source in status snapshots and logs.
func (f *BinanceFeed) Name() string {
	return "binance"
}

// Subscribe streams observations to fn until the context is cancelled or
// Stop is called. Reconnects, malformed frames, and unknown symbols are
// handled inside the stream client; this layer only assembles pairs.
func (f *BinanceFeed) Subscribe(ctx context.Context, fn func(domain.SpreadObservation)) error {
	return f.stream.Run(ctx, func(tick binance.Ticker) {
		obs, ok := f.absorb(tick)
		if ok {
			fn(obs)
		}
	})
}

// Fetch performs a one-shot REST fetch of both legs. It reports
// domain.ErrNoObservation when either leg cannot be retrieved.
func (f *BinanceFeed) Fetch(ctx context.Context) (domain.SpreadObservation, error) {
	var btc, eth *domain.PriceQuote
	for pair, symbol := range tradingPairs {
		tick, err := f.rest.Ticker24h(ctx, pair)
		if err != nil {
			return domain.SpreadObservation{}, fmt.Errorf("feed/binance: %w: %v", domain.ErrNoObservation, err)
		}
		q := quoteFromTicker(symbol, tick)
		switch symbol {
		case "BTC":
			btc = &q
		case "ETH":
			eth = &q
		}
	}
	return strategy.Evaluate(btc, eth)
}

// Stop signals the stream loop to exit within one in-flight iteration.
func (f *BinanceFeed) Stop() {
	f.stream.Stop()
}

// HealthCheck verifies the REST endpoint answers for one symbol.
func (f *BinanceFeed) HealthCheck(ctx context.Context) error {
	if _, err := f.rest.Ticker24h(ctx, "BTCUSDT"); err != nil {
		return fmt.Errorf("feed/binance: health check: %w", err)
	}
	return nil
}

// absorb folds one ticker into the per-symbol cache and returns an
// observation when both legs are populated.
func (f *BinanceFeed) absorb(tick binance.Ticker) (domain.SpreadObservation, bool) {
	symbol, ok := tradingPairs[tick.Symbol]
	if !ok {
		return domain.SpreadObservation{}, false
	}

	f.mu.Lock()
	f.quotes[symbol] = quoteFromTicker(symbol, tick)
	btc, haveBTC := f.quotes["BTC"]
	eth, haveETH := f.quotes["ETH"]
	f.mu.Unlock()

	if !haveBTC || !haveETH {
		return domain.SpreadObservation{}, false
	}

	obs, err := strategy.Evaluate(&btc, &eth)
	if err != nil {
		return domain.SpreadObservation{}, false
	}
	return obs, true
}

// quoteFromTicker converts a Binance ticker into the domain snapshot.
func quoteFromTicker(symbol string, tick binance.Ticker) domain.PriceQuote {
	return domain.PriceQuote{
		Symbol:       symbol,
		Price:        tick.LastPrice,
		Change24hPct: tick.Change24hPct,
		Timestamp:    timeNow(),
		Platform:     "binance",
		Bid:          tick.Bid,
		Ask:          tick.Ask,
		Volume24h:    tick.QuoteVolume,
	}
}
