package strategy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crosspair/spreadbot/internal/domain"
	"github.com/crosspair/spreadbot/internal/metrics"
)

const (
	// sourceProbeTimeout bounds the one-shot fetch that decides between the
	// push and pull sources at startup.
	sourceProbeTimeout = 10 * time.Second

	// healthCheckTimeout bounds each startup probe.
	healthCheckTimeout = 5 * time.Second

	// cacheWriteTimeout bounds the best-effort cache writes per observation.
	cacheWriteTimeout = 2 * time.Second
)

// Source is a price feed the orchestrator can drive. Both feeds in
// internal/feed satisfy it.
type Source interface {
	Subscribe(ctx context.Context, fn func(domain.SpreadObservation)) error
	Fetch(ctx context.Context) (domain.SpreadObservation, error)
	Stop()
	Name() string
}

// Dispatcher fans a fired signal out to the notification sinks and audit
// hooks. Dispatch never returns an error: delivery failures are the
// dispatcher's problem, not the strategy's.
type Dispatcher interface {
	Dispatch(ctx context.Context, sig domain.Signal)
	SenderNames() []string
}

// Orchestrator wires a price source into the tracker and hands decisions to
// the dispatcher. It owns source selection: the push source is probed once at
// startup and on failure the pull source takes over for the remainder of the
// run. There is no re-promotion.
type Orchestrator struct {
	push       Source
	pull       Source
	tracker    *Tracker
	dispatcher Dispatcher
	cache      domain.PriceCache
	health     []domain.HealthChecker
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
	active  Source

	dispatches sync.WaitGroup
}

// NewOrchestrator assembles the strategy loop. cache may be nil when the
// price cache is disabled.
func NewOrchestrator(push, pull Source, tracker *Tracker, dispatcher Dispatcher, cache domain.PriceCache, health []domain.HealthChecker, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		push:       push,
		pull:       pull,
		tracker:    tracker,
		dispatcher: dispatcher,
		cache:      cache,
		health:     health,
		logger:     logger.With(slog.String("component", "orchestrator")),
	}
}

// Run performs startup health checks, selects the source, and drives the feed
// loop until the context is cancelled or Stop is called. In-flight alert
// dispatches are allowed to finish before Run returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.runHealthChecks(ctx)

	active := o.selectSource(ctx)

	o.mu.Lock()
	o.active = active
	o.running = true
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "feed loop starting", slog.String("source", active.Name()))

	err := active.Subscribe(ctx, func(obs domain.SpreadObservation) {
		o.onObservation(ctx, active.Name(), obs)
	})

	o.mu.Lock()
	o.running = false
	o.mu.Unlock()

	o.dispatches.Wait()
	return err
}

// Stop halts the active source. The feed loop exits within one iteration.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	active := o.active
	o.running = false
	o.mu.Unlock()

	if active != nil {
		active.Stop()
	}
}

// Status returns a point-in-time snapshot safe for concurrent reads.
func (o *Orchestrator) Status() domain.StatusSnapshot {
	o.mu.Lock()
	running := o.running
	source := ""
	if o.active != nil {
		source = o.active.Name()
	}
	o.mu.Unlock()

	lastSpread, position := o.tracker.Status()

	return domain.StatusSnapshot{
		Running:       running,
		Source:        source,
		LastSpreadPct: lastSpread,
		HasPosition:   position != nil,
		Position:      position,
		Senders:       o.dispatcher.SenderNames(),
	}
}

// selectSource probes the push source once. Any failure demotes the run to
// the pull source permanently.
func (o *Orchestrator) selectSource(ctx context.Context) Source {
	probeCtx, cancel := context.WithTimeout(ctx, sourceProbeTimeout)
	defer cancel()

	if _, err := o.push.Fetch(probeCtx); err != nil {
		o.logger.WarnContext(ctx, "push source unavailable, falling back to pull source",
			slog.String("push", o.push.Name()),
			slog.String("pull", o.pull.Name()),
			slog.String("error", err.Error()),
		)
		return o.pull
	}
	return o.push
}

// runHealthChecks probes every registered collaborator. Results are logged
// and never block startup.
func (o *Orchestrator) runHealthChecks(ctx context.Context) {
	for _, hc := range o.health {
		probeCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := hc.HealthCheck(probeCtx)
		cancel()

		if err != nil {
			o.logger.WarnContext(ctx, "health check failed",
				slog.String("target", hc.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		o.logger.InfoContext(ctx, "health check passed", slog.String("target", hc.Name()))
	}
}

// onObservation is the per-observation pipeline: metrics, best-effort cache
// write, tracker, and (when a signal fires) an asynchronous dispatch.
func (o *Orchestrator) onObservation(ctx context.Context, source string, obs domain.SpreadObservation) {
	metrics.ObservationsTotal.WithLabelValues(source).Inc()
	metrics.SpreadPct.Set(obs.SpreadPct)

	o.writeCache(ctx, obs)

	sig, ok := o.tracker.OnObservation(ctx, obs)
	if !ok {
		return
	}

	metrics.SignalsTotal.WithLabelValues(string(sig.Kind), string(sig.Direction)).Inc()
	if sig.Kind == domain.SignalEntry {
		metrics.PositionOpen.Set(1)
	} else {
		metrics.PositionOpen.Set(0)
	}

	// Detach from the feed context so a shutdown mid-dispatch does not drop
	// the alert; Run waits for in-flight dispatches.
	dispatchCtx := context.WithoutCancel(ctx)
	o.dispatches.Add(1)
	go func() {
		defer o.dispatches.Done()
		o.dispatcher.Dispatch(dispatchCtx, *sig)
	}()
}

// writeCache pushes the latest quotes and spread into the external cache.
// Failures are logged at debug and otherwise ignored.
func (o *Orchestrator) writeCache(ctx context.Context, obs domain.SpreadObservation) {
	if o.cache == nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, cacheWriteTimeout)
	defer cancel()

	for _, q := range []domain.PriceQuote{obs.BTC, obs.ETH} {
		if err := o.cache.SetQuote(writeCtx, q); err != nil {
			o.logger.DebugContext(ctx, "cache quote write failed",
				slog.String("symbol", q.Symbol),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := o.cache.SetSpread(writeCtx, obs); err != nil {
		o.logger.DebugContext(ctx, "cache spread write failed", slog.String("error", err.Error()))
	}
}
