// Package strategy implements the pair-trading core: the spread evaluator,
// the position tracker state machine, and the orchestrator that drives a
// price source into the tracker and hands decisions to the alert dispatcher.
package strategy

import (
	"time"

	"github.com/crosspair/spreadbot/internal/domain"
)

// Evaluate derives a SpreadObservation from the two legs. The spread is
// ETH.Change24hPct - BTC.Change24hPct: positive when ETH is outperforming.
// It is a pure function; when either leg is missing it reports
// domain.ErrNoObservation rather than a degenerate zero-spread observation.
func Evaluate(btc, eth *domain.PriceQuote) (domain.SpreadObservation, error) {
	if btc == nil || eth == nil {
		return domain.SpreadObservation{}, domain.ErrNoObservation
	}
	return domain.SpreadObservation{
		BTC:       *btc,
		ETH:       *eth,
		SpreadPct: eth.Change24hPct - btc.Change24hPct,
		Timestamp: time.Now().UTC(),
	}, nil
}
