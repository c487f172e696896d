package strategy

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/crosspair/spreadbot/internal/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTrackerConfig() TrackerConfig {
	return TrackerConfig{
		EntryThresholdPct: 2.0,
		MaxSpreadPct:      8.0,
		CloseThresholdPct: 1.0,
		PositionSizeUSD:   1000,
		TakeProfitUSD:     25,
		Cooldown:          5 * time.Minute,
	}
}

// obsAt builds an observation with the given prices; the spread is implied by
// the change percents.
func obsAt(btcPrice, btcChange, ethPrice, ethChange float64) domain.SpreadObservation {
	return domain.SpreadObservation{
		BTC:       domain.PriceQuote{Symbol: "BTC", Price: btcPrice, Change24hPct: btcChange},
		ETH:       domain.PriceQuote{Symbol: "ETH", Price: ethPrice, Change24hPct: ethChange},
		SpreadPct: ethChange - btcChange,
		Timestamp: time.Now().UTC(),
	}
}

func newTestTracker(t *testing.T) (*Tracker, *time.Time) {
	t.Helper()
	tr := NewTracker(testTrackerConfig(), discard())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestEvaluateNilLeg(t *testing.T) {
	q := domain.PriceQuote{Symbol: "BTC", Price: 97000}
	if _, err := Evaluate(nil, &q); err != domain.ErrNoObservation {
		t.Errorf("err = %v, want ErrNoObservation", err)
	}
	if _, err := Evaluate(&q, nil); err != domain.ErrNoObservation {
		t.Errorf("err = %v, want ErrNoObservation", err)
	}
}

func TestEvaluateEqualChangesGiveZeroSpread(t *testing.T) {
	btc := domain.PriceQuote{Symbol: "BTC", Price: 97000, Change24hPct: 2.5}
	eth := domain.PriceQuote{Symbol: "ETH", Price: 3400, Change24hPct: 2.5}
	obs, err := Evaluate(&btc, &eth)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if obs.SpreadPct != 0 {
		t.Errorf("spread = %v, want 0", obs.SpreadPct)
	}
}

func TestEntryAtExactThreshold(t *testing.T) {
	tr, _ := newTestTracker(t)

	sig, ok := tr.OnObservation(context.Background(), obsAt(97000, 1.0, 3400, 3.0))
	if !ok {
		t.Fatal("entry at exact threshold should fire")
	}
	if sig.Kind != domain.SignalEntry {
		t.Errorf("kind = %q, want entry", sig.Kind)
	}
	if sig.Direction != domain.LongBTCShortETH {
		t.Errorf("direction = %q, want long_btc_short_eth", sig.Direction)
	}
	if sig.Position == nil || sig.Position.EntrySpreadPct != 2.0 {
		t.Errorf("position = %+v", sig.Position)
	}
	if sig.ID == "" || sig.Position.ID == "" {
		t.Error("signal and position need ids")
	}
}

func TestEntryBelowThresholdDoesNotFire(t *testing.T) {
	tr, _ := newTestTracker(t)

	if _, ok := tr.OnObservation(context.Background(), obsAt(97000, 1.0, 3400, 2.9)); ok {
		t.Fatal("spread 1.9 below threshold 2.0 should not fire")
	}
}

func TestEntryNegativeSpreadFiresMirrorDirection(t *testing.T) {
	tr, _ := newTestTracker(t)

	sig, ok := tr.OnObservation(context.Background(), obsAt(97000, 3.0, 3400, 0.5))
	if !ok {
		t.Fatal("spread -2.5 should fire")
	}
	if sig.Direction != domain.ShortBTCLongETH {
		t.Errorf("direction = %q, want short_btc_long_eth", sig.Direction)
	}
}

func TestEntryBeyondCeilingIgnored(t *testing.T) {
	tr, _ := newTestTracker(t)

	if _, ok := tr.OnObservation(context.Background(), obsAt(97000, 0, 3400, 9.0)); ok {
		t.Fatal("spread beyond max_spread ceiling should be ignored")
	}
	// The anomaly must not poison the cooldown ledger: a sane spread right
	// after still fires.
	if _, ok := tr.OnObservation(context.Background(), obsAt(97000, 0, 3400, 3.0)); !ok {
		t.Fatal("sane spread after anomaly should fire")
	}
}

func TestEntryCooldownPerDirection(t *testing.T) {
	tr, now := newTestTracker(t)
	ctx := context.Background()

	if _, ok := tr.OnObservation(ctx, obsAt(97000, 0, 3400, 3.0)); !ok {
		t.Fatal("first entry should fire")
	}

	// Close immediately at a profit so the tracker is FLAT again.
	*now = now.Add(time.Minute)
	if _, ok := tr.OnObservation(ctx, obsAt(97000*1.04, 0, 3400*1.01, 0.5)); !ok {
		t.Fatal("close should fire")
	}

	// Same direction inside the 5m window: suppressed.
	if _, ok := tr.OnObservation(ctx, obsAt(97000, 0, 3400, 3.0)); ok {
		t.Fatal("same-direction entry inside cooldown should be suppressed")
	}

	// Opposite direction is tracked independently.
	if _, ok := tr.OnObservation(ctx, obsAt(97000, 3.0, 3400, 0)); !ok {
		t.Fatal("opposite-direction entry should not share the cooldown")
	}

	// Back to the first direction once its window lapses.
	tr2, now2 := newTestTracker(t)
	if _, ok := tr2.OnObservation(ctx, obsAt(97000, 0, 3400, 3.0)); !ok {
		t.Fatal("entry should fire")
	}
	*now2 = now2.Add(time.Minute)
	if _, ok := tr2.OnObservation(ctx, obsAt(97000*1.04, 0, 3400*1.01, 0.5)); !ok {
		t.Fatal("close should fire")
	}
	*now2 = now2.Add(5 * time.Minute)
	if _, ok := tr2.OnObservation(ctx, obsAt(97000, 0, 3400, 3.0)); !ok {
		t.Fatal("entry should fire again after cooldown lapses")
	}
}

func TestNoSecondEntryWhileOpen(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	if _, ok := tr.OnObservation(ctx, obsAt(97000, 0, 3400, 3.0)); !ok {
		t.Fatal("entry should fire")
	}
	// A fresh above-threshold spread while OPEN runs close logic only.
	if _, ok := tr.OnObservation(ctx, obsAt(97000, 0, 3400, 4.0)); ok {
		t.Fatal("no second entry while a position is open")
	}
	if _, open := tr.OpenPosition(); !open {
		t.Fatal("position should still be open")
	}
}

func TestCloseRequiresTakeProfit(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	// Entry long BTC / short ETH at spread +3.
	if _, ok := tr.OnObservation(ctx, obsAt(97000, 0, 3400, 3.0)); !ok {
		t.Fatal("entry should fire")
	}

	// Spread normalizes to 0.5 but ETH rallied 3%: the short leg lost,
	// estimated PnL is -30 and the position must stay open.
	if _, ok := tr.OnObservation(ctx, obsAt(97000, 0, 3400*1.03, 0.5)); ok {
		t.Fatal("close with negative pnl should not fire")
	}
	if _, open := tr.OpenPosition(); !open {
		t.Fatal("position should remain open at insufficient pnl")
	}

	// BTC up 4%, ETH up 1%: pnl = 40 - 10 = 30 >= 25, spread back inside the
	// close threshold.
	sig, ok := tr.OnObservation(ctx, obsAt(97000*1.04, 0, 3400*1.01, 0.5))
	if !ok {
		t.Fatal("close should fire once pnl clears take profit")
	}
	if sig.Kind != domain.SignalClose {
		t.Errorf("kind = %q, want close", sig.Kind)
	}
	if sig.EstimatedPnLUSD == nil {
		t.Fatal("close signal must carry the pnl estimate")
	}
	if got := *sig.EstimatedPnLUSD; got < 29.9 || got > 30.1 {
		t.Errorf("pnl = %v, want ~30", got)
	}
	if _, open := tr.OpenPosition(); open {
		t.Fatal("tracker should be flat after close")
	}
}

func TestCloseIgnoresSpreadCeiling(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	if _, ok := tr.OnObservation(ctx, obsAt(97000, 0, 3400, 3.0)); !ok {
		t.Fatal("entry should fire")
	}
	// Spread still wide: close logic simply does not trigger, and no anomaly
	// handling applies on the close path.
	if _, ok := tr.OnObservation(ctx, obsAt(97000, 0, 3400, 9.0)); ok {
		t.Fatal("wide spread while open should produce no signal")
	}
}

func TestStatusReflectsState(t *testing.T) {
	tr, now := newTestTracker(t)
	ctx := context.Background()

	last, pos := tr.Status()
	if last != nil || pos != nil {
		t.Fatal("fresh tracker should report no spread and no position")
	}

	tr.OnObservation(ctx, obsAt(97000, 0, 3400, 3.0))
	*now = now.Add(2*time.Hour + 13*time.Minute)

	last, pos = tr.Status()
	if last == nil || *last != 3.0 {
		t.Errorf("last spread = %v, want 3.0", last)
	}
	if pos == nil {
		t.Fatal("status should expose the open position")
	}
	if pos.Duration != "2h 13m" {
		t.Errorf("duration = %q, want 2h 13m", pos.Duration)
	}
	if pos.Direction != domain.LongBTCShortETH || pos.EntrySpreadPct != 3.0 {
		t.Errorf("summary = %+v", pos)
	}
}
