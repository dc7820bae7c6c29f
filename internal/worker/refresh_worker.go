// Package worker turns refresh events from the broker into snapshot
// invalidations.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"engdash/internal/amqp"
	"engdash/internal/log"
)

// Invalidator drops cached rows so the next read hits the source.
type Invalidator interface {
	Invalidate()
}

// Consumer delivers refresh events until ctx is done.
type Consumer interface {
	ConsumeRefresh(ctx context.Context, handler func(context.Context, *amqp.RefreshMessage) error) error
}

// RefreshWorker invalidates the local snapshot for every refresh event.
// Events older than the last handled one are acknowledged and ignored.
type RefreshWorker struct {
	target   Invalidator
	handled  atomic.Int64
	lastSeen atomic.Int64
}

func NewRefreshWorker(target Invalidator) *RefreshWorker {
	return &RefreshWorker{target: target}
}

// HandleRefreshMessage processes a single refresh message from AMQP
func (w *RefreshWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshMessage) error {
	if msg == nil {
		return errors.New("nil refresh message")
	}

	ts := msg.Timestamp.UnixNano()
	if last := w.lastSeen.Load(); !msg.Timestamp.IsZero() && ts < last {
		slog.DebugContext(ctx, "Skipping stale refresh event",
			log.FieldComponent, log.ComponentWorker,
			"message_id", msg.ID,
			"message_time", msg.Timestamp,
			"last_seen", time.Unix(0, last))
		return nil
	}

	w.target.Invalidate()
	w.handled.Add(1)
	if ts > w.lastSeen.Load() {
		w.lastSeen.Store(ts)
	}

	slog.InfoContext(ctx, "Snapshot invalidated by refresh event",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpRefresh,
		"message_id", msg.ID,
		"reason", msg.Reason,
		"origin", msg.Origin)
	return nil
}

// Handled reports how many events caused an invalidation.
func (w *RefreshWorker) Handled() int64 {
	return w.handled.Load()
}

// Run consumes refresh events until ctx is cancelled. Cancellation is not
// reported as an error.
func (w *RefreshWorker) Run(ctx context.Context, consumer Consumer) error {
	slog.InfoContext(ctx, "Refresh worker started", log.FieldComponent, log.ComponentWorker)
	err := consumer.ConsumeRefresh(ctx, w.HandleRefreshMessage)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.InfoContext(ctx, "Refresh worker stopped", log.FieldComponent, log.ComponentWorker)
		return nil
	}
	return err
}
