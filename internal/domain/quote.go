// Package domain defines the core data types and small interfaces shared by
// every component of the spread bot. Types here carry no behavior beyond pure
// calculations; all I/O lives in the platform, feed, and store packages.
package domain

import "time"

// PriceQuote is an immutable snapshot of one asset's price on one venue.
// A new snapshot replaces the previous one wholesale; quotes are never
// mutated in place.
type PriceQuote struct {
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	Change24hPct float64   `json:"change_24h_pct"`
	Timestamp    time.Time `json:"timestamp"`
	Platform     string    `json:"platform"`

	// Optional depth/context fields. Zero means the venue did not provide
	// the value. FundingRatePct is a pointer because 0 is a meaningful rate.
	Bid            float64  `json:"bid,omitempty"`
	Ask            float64  `json:"ask,omitempty"`
	Volume24h      float64  `json:"volume_24h,omitempty"`
	FundingRatePct *float64 `json:"funding_rate_pct,omitempty"`
}

// SpreadBps returns the bid-ask spread in basis points, or 0 when either
// side of the book is missing.
func (q PriceQuote) SpreadBps() float64 {
	if q.Bid <= 0 || q.Ask <= 0 || q.Price <= 0 {
		return 0
	}
	return (q.Ask - q.Bid) / q.Price * 10000
}

// SpreadObservation pairs a BTC and an ETH quote taken at (approximately) the
// same instant with the derived relative-performance spread. SpreadPct is
// ETH.Change24hPct - BTC.Change24hPct: positive means ETH is outperforming.
type SpreadObservation struct {
	BTC       PriceQuote `json:"btc"`
	ETH       PriceQuote `json:"eth"`
	SpreadPct float64    `json:"spread_pct"`
	Timestamp time.Time  `json:"timestamp"`
}
