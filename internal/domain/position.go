package domain

import (
	"fmt"
	"time"
)

// Direction identifies which leg of the pair is long. The two values are
// mirror images of each other: the spread sign at entry decides which one
// fires.
type Direction string

const (
	// LongBTCShortETH fires when ETH has outperformed BTC (spread >= +threshold).
	LongBTCShortETH Direction = "long_btc_short_eth"
	// ShortBTCLongETH fires when ETH has underperformed BTC (spread <= -threshold).
	ShortBTCLongETH Direction = "short_btc_long_eth"
)

// Action returns the human-readable trade instruction for the direction.
func (d Direction) Action() string {
	switch d {
	case LongBTCShortETH:
		return "Long BTC / Short ETH"
	case ShortBTCLongETH:
		return "Short BTC / Long ETH"
	default:
		return "No Action"
	}
}

// Reason describes why the direction fired, given the spread at entry.
func (d Direction) Reason(spreadPct float64) string {
	switch d {
	case LongBTCShortETH:
		return fmt.Sprintf("ETH outperforming BTC by %.2f%%", abs(spreadPct))
	case ShortBTCLongETH:
		return fmt.Sprintf("ETH underperforming BTC by %.2f%%", abs(spreadPct))
	default:
		return "Spread within normal range"
	}
}

// Position is the single synthetic open position tracked by the strategy.
// At most one Position exists at any time; it is created when an entry signal
// fires and discarded when a close signal fires. Positions are not persisted
// across restarts.
type Position struct {
	ID             string    `json:"id"`
	Direction      Direction `json:"direction"`
	EntrySpreadPct float64   `json:"entry_spread_pct"`
	EntryBTCPrice  float64   `json:"entry_btc_price"`
	EntryETHPrice  float64   `json:"entry_eth_price"`
	EntryTime      time.Time `json:"entry_time"`
	SizeUSD        float64   `json:"size_usd"`
}

// EstimatePnL estimates the dollar PnL of closing both legs at the given
// current prices. Each leg contributes its fractional price change times the
// notional size, with the short leg's sign flipped. The two directions are
// exact mirrors of each other.
func (p Position) EstimatePnL(currentBTC, currentETH float64) float64 {
	btcChange := (currentBTC - p.EntryBTCPrice) / p.EntryBTCPrice
	ethChange := (currentETH - p.EntryETHPrice) / p.EntryETHPrice

	if p.Direction == LongBTCShortETH {
		return btcChange*p.SizeUSD - ethChange*p.SizeUSD
	}
	return -btcChange*p.SizeUSD + ethChange*p.SizeUSD
}

// DurationString renders the time the position has been open as "2h 13m" or
// "45m" relative to now.
func (p Position) DurationString(now time.Time) string {
	d := now.Sub(p.EntryTime)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
