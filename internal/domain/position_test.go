package domain

import (
	"math"
	"testing"
	"time"
)

func TestEstimatePnLLongBTCShortETH(t *testing.T) {
	p := Position{
		Direction:     LongBTCShortETH,
		EntryBTCPrice: 50000,
		EntryETHPrice: 3000,
		SizeUSD:       1000,
	}

	// BTC flat, ETH up 3%: the short ETH leg loses 3% of the notional.
	pnl := p.EstimatePnL(50000, 3090)
	if math.Abs(pnl-(-30)) > 1e-9 {
		t.Errorf("pnl = %.4f, want -30", pnl)
	}

	// BTC up 2%, ETH down 1%: both legs profit.
	pnl = p.EstimatePnL(51000, 2970)
	if math.Abs(pnl-30) > 1e-9 {
		t.Errorf("pnl = %.4f, want 30", pnl)
	}
}

func TestEstimatePnLMirrorSymmetry(t *testing.T) {
	long := Position{
		Direction:     LongBTCShortETH,
		EntryBTCPrice: 50000,
		EntryETHPrice: 3000,
		SizeUSD:       1000,
	}
	short := long
	short.Direction = ShortBTCLongETH

	// The same price path under the opposite direction yields the negated PnL.
	paths := [][2]float64{
		{51000, 3090},
		{49500, 2940},
		{50000, 3000},
		{52000, 2850},
	}
	for _, path := range paths {
		a := long.EstimatePnL(path[0], path[1])
		b := short.EstimatePnL(path[0], path[1])
		if math.Abs(a+b) > 1e-9 {
			t.Errorf("pnl not mirrored for path %v: long=%.4f short=%.4f", path, a, b)
		}
	}
}

func TestDurationString(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p := Position{EntryTime: now.Add(-45 * time.Minute)}
	if got := p.DurationString(now); got != "45m" {
		t.Errorf("duration = %q, want %q", got, "45m")
	}

	p.EntryTime = now.Add(-2*time.Hour - 13*time.Minute)
	if got := p.DurationString(now); got != "2h 13m" {
		t.Errorf("duration = %q, want %q", got, "2h 13m")
	}
}

func TestDirectionAction(t *testing.T) {
	if got := LongBTCShortETH.Action(); got != "Long BTC / Short ETH" {
		t.Errorf("action = %q", got)
	}
	if got := ShortBTCLongETH.Action(); got != "Short BTC / Long ETH" {
		t.Errorf("action = %q", got)
	}
}

func TestQuoteSpreadBps(t *testing.T) {
	q := PriceQuote{Price: 50000, Bid: 49990, Ask: 50010}
	if got := q.SpreadBps(); math.Abs(got-4) > 1e-9 {
		t.Errorf("spread bps = %.4f, want 4", got)
	}

	q = PriceQuote{Price: 50000}
	if got := q.SpreadBps(); got != 0 {
		t.Errorf("spread bps without book = %.4f, want 0", got)
	}
}
