package domain

import (
	"context"
	"io"
)

// PriceCache stores the latest quotes and spread for external consumers
// (dashboards, other processes). The strategy never reads it back; a restart
// deliberately forgets all in-memory state.
type PriceCache interface {
	SetQuote(ctx context.Context, q PriceQuote) error
	SetSpread(ctx context.Context, obs SpreadObservation) error
}

// SignalBus publishes fired signals for external subscribers.
type SignalBus interface {
	Publish(ctx context.Context, sig Signal) error
}

// AuditStore appends fired signals and per-sink delivery outcomes to durable
// storage. Writes are append-only; nothing is ever loaded back into strategy
// state.
type AuditStore interface {
	InsertSignal(ctx context.Context, sig Signal) error
	InsertAlertResult(ctx context.Context, res AlertResult) error
}

// BlobWriter uploads a single object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// HealthChecker is implemented by every external collaborator that can be
// probed at startup (notification sinks, venue clients, data sources).
type HealthChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}
