package strategy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crosspair/spreadbot/internal/domain"
)

// TrackerConfig holds the thresholds and sizing driving entry/close decisions.
type TrackerConfig struct {
	EntryThresholdPct float64
	MaxSpreadPct      float64
	CloseThresholdPct float64
	PositionSizeUSD   float64
	TakeProfitUSD     float64
	Cooldown          time.Duration
}

// Tracker is the FLAT -> OPEN -> FLAT state machine. At most one position is
// open at any time, and open positions do not survive a restart. Observations
// arrive from a single feed goroutine, but Status is read concurrently by the
// HTTP server, so all state sits behind a mutex.
type Tracker struct {
	cfg    TrackerConfig
	logger *slog.Logger

	// now is stubbed in tests to step through cooldown windows.
	now func() time.Time

	mu         sync.Mutex
	position   *domain.Position
	lastFire   map[domain.Direction]time.Time
	lastSpread *float64
}

// NewTracker creates a tracker in the FLAT state.
func NewTracker(cfg TrackerConfig, logger *slog.Logger) *Tracker {
	return &Tracker{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "tracker")),
		now:      func() time.Time { return time.Now().UTC() },
		lastFire: make(map[domain.Direction]time.Time),
	}
}

// OnObservation folds one observation into the state machine and returns the
// signal it produced, if any. While FLAT only entry logic runs; while OPEN
// only close logic runs.
func (t *Tracker) OnObservation(ctx context.Context, obs domain.SpreadObservation) (*domain.Signal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	spread := obs.SpreadPct
	t.lastSpread = &spread

	if t.position != nil {
		return t.maybeClose(ctx, obs)
	}
	return t.maybeEnter(ctx, obs)
}

// maybeEnter runs the entry preconditions. Caller holds the mutex.
func (t *Tracker) maybeEnter(ctx context.Context, obs domain.SpreadObservation) (*domain.Signal, bool) {
	abs := absFloat(obs.SpreadPct)
	if abs < t.cfg.EntryThresholdPct {
		return nil, false
	}

	// The sanity ceiling guards the entry path only: a spread this wide is
	// more likely a data glitch than a tradable dislocation.
	if abs > t.cfg.MaxSpreadPct {
		t.logger.WarnContext(ctx, "spread beyond sanity ceiling, possible anomaly",
			slog.Float64("spread_pct", obs.SpreadPct),
			slog.Float64("max_spread_pct", t.cfg.MaxSpreadPct),
		)
		return nil, false
	}

	direction := domain.LongBTCShortETH
	if obs.SpreadPct < 0 {
		direction = domain.ShortBTCLongETH
	}

	now := t.now()
	if last, ok := t.lastFire[direction]; ok && now.Sub(last) < t.cfg.Cooldown {
		t.logger.DebugContext(ctx, "entry suppressed by cooldown",
			slog.String("direction", string(direction)),
			slog.Duration("remaining", t.cfg.Cooldown-now.Sub(last)),
		)
		return nil, false
	}

	pos := &domain.Position{
		ID:             uuid.NewString(),
		Direction:      direction,
		EntrySpreadPct: obs.SpreadPct,
		EntryBTCPrice:  obs.BTC.Price,
		EntryETHPrice:  obs.ETH.Price,
		EntryTime:      now,
		SizeUSD:        t.cfg.PositionSizeUSD,
	}
	t.position = pos
	t.lastFire[direction] = now

	t.logger.InfoContext(ctx, "entry signal",
		slog.String("position_id", pos.ID),
		slog.String("direction", string(direction)),
		slog.Float64("spread_pct", obs.SpreadPct),
	)

	posCopy := *pos
	return &domain.Signal{
		ID:          uuid.NewString(),
		Kind:        domain.SignalEntry,
		Direction:   direction,
		Observation: obs,
		Position:    &posCopy,
		CreatedAt:   now,
	}, true
}

// maybeClose runs the close preconditions. Caller holds the mutex.
func (t *Tracker) maybeClose(ctx context.Context, obs domain.SpreadObservation) (*domain.Signal, bool) {
	pos := t.position
	if absFloat(obs.SpreadPct) > t.cfg.CloseThresholdPct {
		return nil, false
	}

	pnl := pos.EstimatePnL(obs.BTC.Price, obs.ETH.Price)
	if pnl < t.cfg.TakeProfitUSD {
		// Spread has normalized but the trade has not paid for itself yet;
		// hold until it does. There is no forced timeout close.
		t.logger.DebugContext(ctx, "spread normalized but pnl below take profit",
			slog.Float64("spread_pct", obs.SpreadPct),
			slog.Float64("estimated_pnl_usd", pnl),
		)
		return nil, false
	}

	now := t.now()
	t.position = nil

	t.logger.InfoContext(ctx, "close signal",
		slog.String("position_id", pos.ID),
		slog.Float64("spread_pct", obs.SpreadPct),
		slog.Float64("estimated_pnl_usd", pnl),
	)

	posCopy := *pos
	return &domain.Signal{
		ID:              uuid.NewString(),
		Kind:            domain.SignalClose,
		Direction:       pos.Direction,
		Observation:     obs,
		Position:        &posCopy,
		EstimatedPnLUSD: &pnl,
		CreatedAt:       now,
	}, true
}

// Status reports the last seen spread and the open position summary, if any.
func (t *Tracker) Status() (lastSpread *float64, position *domain.PositionSummary) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastSpread != nil {
		v := *t.lastSpread
		lastSpread = &v
	}
	if t.position != nil {
		position = &domain.PositionSummary{
			Direction:      t.position.Direction,
			EntrySpreadPct: t.position.EntrySpreadPct,
			Duration:       t.position.DurationString(t.now()),
		}
	}
	return lastSpread, position
}

// OpenPosition returns a copy of the open position, if any.
func (t *Tracker) OpenPosition() (domain.Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.position == nil {
		return domain.Position{}, false
	}
	return *t.position, true
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
