package domain

import "time"

// SignalKind distinguishes entry signals from close signals.
type SignalKind string

const (
	SignalEntry SignalKind = "entry"
	SignalClose SignalKind = "close"
)

// Signal is a strategy decision produced by the position tracker. An entry
// signal carries the freshly opened position; a close signal carries the
// closed position's snapshot and the PnL estimate that justified the close.
type Signal struct {
	ID              string            `json:"id"`
	Kind            SignalKind        `json:"kind"`
	Direction       Direction         `json:"direction"`
	Observation     SpreadObservation `json:"observation"`
	Position        *Position         `json:"position,omitempty"`
	EstimatedPnLUSD *float64          `json:"estimated_pnl_usd,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Alert is a Signal enriched with supplementary per-venue quotes fetched at
// dispatch time. VenueQuotes maps venue name -> symbol ("BTC"/"ETH") -> quote;
// venues that failed to respond are simply absent.
type Alert struct {
	Signal      Signal                           `json:"signal"`
	VenueQuotes map[string]map[string]PriceQuote `json:"venue_quotes,omitempty"`
}

// AlertResult records the outcome of delivering one Alert to one sink. Used
// only for the audit trail; delivery failures never propagate to the strategy.
type AlertResult struct {
	ID        string    `json:"id"`
	SignalID  string    `json:"signal_id"`
	Sink      string    `json:"sink"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PositionSummary is the trimmed position view exposed by the status endpoint.
type PositionSummary struct {
	Direction      Direction `json:"direction"`
	EntrySpreadPct float64   `json:"entry_spread_pct"`
	Duration       string    `json:"duration"`
}

// StatusSnapshot is the orchestrator's introspection view, safe to read while
// the feed loop is running.
type StatusSnapshot struct {
	Running       bool             `json:"running"`
	Source        string           `json:"source"`
	LastSpreadPct *float64         `json:"last_spread_pct,omitempty"`
	HasPosition   bool             `json:"has_position"`
	Position      *PositionSummary `json:"position,omitempty"`
	Senders       []string         `json:"senders"`
}
