package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appoutbox "spacebook/internal/app/outbox"
	"spacebook/internal/pkg/errs"
)

// Publisher delivers one record.
type Publisher interface {
	Publish(ctx context.Context, rec appoutbox.EventRecord) error
}

// Worker relays records from the Mongo outbox to the publisher.
type Worker struct {
	Store     *Store
	Publisher Publisher
	Interval  time.Duration
	ID        string
	Backoff   []time.Duration
	Logger    *slog.Logger
}

var ErrWorkerNotConfigured = errs.New("outbox: worker missing dependencies")

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Publisher == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil && ctx.Err() == nil {
				w.logger().WarnContext(ctx, "outbox relay failed", "worker", w.ID, "error", err)
			}
		}
	}
}

// drain relays due records until none is left.
func (w *Worker) drain(ctx context.Context) error {
	for {
		sent, err := w.processOnce(ctx)
		if err != nil || !sent {
			return err
		}
	}
}

func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	doc, err := w.Store.Claim(ctx, w.ID)
	if err != nil || doc == nil {
		return false, err
	}
	if err := w.Publisher.Publish(ctx, doc.Record()); err != nil {
		w.logger().WarnContext(ctx, "outbox publish failed", "id", doc.ID, "name", doc.Name, "attempts", doc.Attempts+1, "error", err)
		return false, w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
	}
	return true, w.Store.MarkSent(ctx, doc.ID)
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
