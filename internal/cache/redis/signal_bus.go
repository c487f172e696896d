package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/crosspair/spreadbot/internal/domain"
)

const (
	signalChannel = "signals"
	signalStream  = "signals:stream"
)

// SignalBus implements domain.SignalBus. Fired signals are published on a
// Pub/Sub channel for live subscribers and mirrored into a capped stream so
// late consumers can replay recent history.
type SignalBus struct {
	rdb    *redis.Client
	maxLen int64
}

// NewSignalBus creates a SignalBus backed by the given Client. maxLen caps
// the stream via XADD MAXLEN ~.
func NewSignalBus(c *Client, maxLen int64) *SignalBus {
	return &SignalBus{rdb: c.Underlying(), maxLen: maxLen}
}

// Publish sends the signal JSON to the channel and appends it to the stream.
func (sb *SignalBus) Publish(ctx context.Context, sig domain.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("redis: marshal signal %s: %w", sig.ID, err)
	}

	if err := sb.rdb.Publish(ctx, signalChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", signalChannel, err)
	}

	args := &redis.XAddArgs{
		Stream: signalStream,
		MaxLen: sb.maxLen,
		Approx: true,
		Values: map[string]any{
			"payload": payload,
		},
	}
	if err := sb.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", signalStream, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SignalBus = (*SignalBus)(nil)
