// Package notify delivers fired alerts to the configured channels. Each
// channel implements Sender; formatting shared by the channels lives in
// format.go. A sender failure is the dispatcher's concern, never the
// strategy's.
package notify

import (
	"context"

	"github.com/crosspair/spreadbot/internal/domain"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
	// Send delivers one alert.
	Send(ctx context.Context, alert domain.Alert) error
	// HealthCheck probes the channel's API reachability.
	HealthCheck(ctx context.Context) error
}
