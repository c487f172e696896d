// Package alert fans fired signals out to venues, notification sinks, and
// the audit hooks. Every failure in here is isolated and logged; nothing ever
// propagates back into strategy state.
package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/crosspair/spreadbot/internal/domain"
	"github.com/crosspair/spreadbot/internal/metrics"
	"github.com/crosspair/spreadbot/internal/notify"
)

// dispatchTimeout bounds all work for one signal so a hung venue or sink
// cannot stall the feed loop indefinitely.
const dispatchTimeout = 30 * time.Second

// VenueClient supplies supplementary quotes for the alert body.
type VenueClient interface {
	Name() string
	Quotes(ctx context.Context) (map[string]domain.PriceQuote, error)
}

// Archiver buffers alert lines for blob storage.
type Archiver interface {
	Append(alert domain.Alert)
}

// Dispatcher enriches signals with venue quotes and delivers the resulting
// alert to every sink. The audit hooks (store, bus, archiver) are optional;
// nil disables them.
type Dispatcher struct {
	venues   []VenueClient
	senders  []notify.Sender
	store    domain.AuditStore
	bus      domain.SignalBus
	archiver Archiver
	logger   *slog.Logger
}

// NewDispatcher assembles a dispatcher. store, bus, and archiver may be nil.
func NewDispatcher(venues []VenueClient, senders []notify.Sender, store domain.AuditStore, bus domain.SignalBus, archiver Archiver, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		venues:   venues,
		senders:  senders,
		store:    store,
		bus:      bus,
		archiver: archiver,
		logger:   logger.With(slog.String("component", "dispatcher")),
	}
}

// SenderNames lists the configured sinks for status snapshots.
func (d *Dispatcher) SenderNames() []string {
	names := make([]string, 0, len(d.senders))
	for _, s := range d.senders {
		names = append(names, s.Name())
	}
	return names
}

// Dispatch handles one fired signal end to end: venue enrichment, audit
// hooks, and the concurrent sink fan-out.
func (d *Dispatcher) Dispatch(ctx context.Context, sig domain.Signal) {
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	alert := domain.Alert{
		Signal:      sig,
		VenueQuotes: d.fetchVenueQuotes(ctx),
	}

	d.audit(ctx, alert)
	d.fanOut(ctx, alert)
}

// fetchVenueQuotes collects quotes from every venue concurrently. A failing
// venue is logged and omitted from the result.
func (d *Dispatcher) fetchVenueQuotes(ctx context.Context) map[string]map[string]domain.PriceQuote {
	if len(d.venues) == 0 {
		return nil
	}

	var mu sync.Mutex
	quotes := make(map[string]map[string]domain.PriceQuote)

	g, gctx := errgroup.WithContext(ctx)
	for _, venue := range d.venues {
		g.Go(func() error {
			vq, err := venue.Quotes(gctx)
			if err != nil {
				d.logger.WarnContext(ctx, "venue fetch failed",
					slog.String("venue", venue.Name()),
					slog.String("error", err.Error()),
				)
				return nil
			}
			mu.Lock()
			quotes[venue.Name()] = vq
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return quotes
}

// audit runs the optional best-effort hooks: postgres append, signal-bus
// publish, archive line.
func (d *Dispatcher) audit(ctx context.Context, alert domain.Alert) {
	if d.store != nil {
		if err := d.store.InsertSignal(ctx, alert.Signal); err != nil {
			d.logger.WarnContext(ctx, "audit signal insert failed", slog.String("error", err.Error()))
		}
	}
	if d.bus != nil {
		if err := d.bus.Publish(ctx, alert.Signal); err != nil {
			d.logger.WarnContext(ctx, "signal bus publish failed", slog.String("error", err.Error()))
		}
	}
	if d.archiver != nil {
		d.archiver.Append(alert)
	}
}

// fanOut delivers the alert to every sender concurrently. Each failure is
// isolated: logged, counted, recorded in the audit trail, never propagated.
func (d *Dispatcher) fanOut(ctx context.Context, alert domain.Alert) {
	var wg sync.WaitGroup
	for _, sender := range d.senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.deliver(ctx, sender, alert)
		}()
	}
	wg.Wait()
}

// deliver sends to one sink and records the outcome.
func (d *Dispatcher) deliver(ctx context.Context, sender notify.Sender, alert domain.Alert) {
	err := sender.Send(ctx, alert)

	result := domain.AlertResult{
		ID:        uuid.NewString(),
		SignalID:  alert.Signal.ID,
		Sink:      sender.Name(),
		OK:        err == nil,
		CreatedAt: time.Now().UTC(),
	}

	if err != nil {
		result.Error = err.Error()
		metrics.AlertsSentTotal.WithLabelValues(sender.Name(), "error").Inc()
		d.logger.ErrorContext(ctx, "sender failed",
			slog.String("sender", sender.Name()),
			slog.String("signal_id", alert.Signal.ID),
			slog.String("error", err.Error()),
		)
	} else {
		metrics.AlertsSentTotal.WithLabelValues(sender.Name(), "ok").Inc()
		d.logger.InfoContext(ctx, "alert sent",
			slog.String("sender", sender.Name()),
			slog.String("signal_id", alert.Signal.ID),
			slog.String("kind", string(alert.Signal.Kind)),
		)
	}

	if d.store != nil {
		if err := d.store.InsertAlertResult(ctx, result); err != nil {
			d.logger.WarnContext(ctx, "audit alert result insert failed", slog.String("error", err.Error()))
		}
	}
}
