package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crosspair/spreadbot/internal/domain"
)

// Archiver buffers alert JSON lines in memory and uploads them as JSONL
// objects under alerts/YYYY/MM/DD/<uuid>.jsonl. A background flusher runs on
// a fixed interval; the buffer is also flushed early when it reaches its
// maximum line count, and one final time on stop.
type Archiver struct {
	writer        domain.BlobWriter
	flushInterval time.Duration
	maxLines      int
	logger        *slog.Logger

	mu    sync.Mutex
	lines [][]byte

	kick chan struct{}
}

// NewArchiver creates an Archiver uploading through the given writer.
func NewArchiver(writer domain.BlobWriter, flushInterval time.Duration, maxLines int, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:        writer,
		flushInterval: flushInterval,
		maxLines:      maxLines,
		logger:        logger.With(slog.String("component", "archiver")),
		kick:          make(chan struct{}, 1),
	}
}

// Append adds one alert to the buffer. A marshal failure drops the alert
// with a log line; archiving is best-effort by contract.
func (a *Archiver) Append(alert domain.Alert) {
	line, err := json.Marshal(alert)
	if err != nil {
		a.logger.Warn("marshal alert failed",
			slog.String("signal_id", alert.Signal.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	a.mu.Lock()
	a.lines = append(a.lines, line)
	full := a.maxLines > 0 && len(a.lines) >= a.maxLines
	a.mu.Unlock()

	if full {
		select {
		case a.kick <- struct{}{}:
		default:
		}
	}
}

// Run drives the background flusher until the context is cancelled, then
// performs a final flush. The final flush gets its own timeout since the
// run context is already dead.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			a.flush(flushCtx)
			cancel()
			return nil
		case <-ticker.C:
			a.flush(ctx)
		case <-a.kick:
			a.flush(ctx)
		}
	}
}

// flush uploads the buffered lines as one object and clears the buffer. The
// buffer is restored on upload failure so lines are retried next cycle.
func (a *Archiver) flush(ctx context.Context) {
	a.mu.Lock()
	lines := a.lines
	a.lines = nil
	a.mu.Unlock()

	if len(lines) == 0 {
		return
	}

	var buf bytes.Buffer
	for _, line := range lines {
		buf.Write(line)
		buf.WriteByte('\n')
	}

	key := archiveKey(time.Now().UTC())
	if err := a.writer.Put(ctx, key, &buf, "application/x-ndjson"); err != nil {
		a.logger.Warn("archive upload failed, requeueing",
			slog.String("key", key),
			slog.Int("lines", len(lines)),
			slog.String("error", err.Error()),
		)
		a.mu.Lock()
		a.lines = append(lines, a.lines...)
		a.mu.Unlock()
		return
	}

	a.logger.Info("archive uploaded",
		slog.String("key", key),
		slog.Int("lines", len(lines)),
	)
}

// archiveKey builds the object key, partitioned by day.
func archiveKey(now time.Time) string {
	return fmt.Sprintf("alerts/%s/%s.jsonl", now.Format("2006/01/02"), uuid.NewString())
}
