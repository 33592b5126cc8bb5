package memory

import (
	"context"
	"log/slog"
	"sync"

	appoutbox "spacebook/internal/app/outbox"
	"spacebook/internal/app/uow"
)

// Publisher delivers flushed records, for example to Kafka.
type Publisher interface {
	Publish(ctx context.Context, record appoutbox.EventRecord) error
}

// Outbox queues records once their unit committed and hands them to the
// publisher on Flush. Without a publisher flushed records are only logged.
type Outbox struct {
	Publisher Publisher
	Logger    *slog.Logger

	mu      sync.Mutex
	pending []appoutbox.EventRecord
}

func NewOutbox(publisher Publisher, logger *slog.Logger) *Outbox {
	return &Outbox{Publisher: publisher, Logger: logger}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	uow.AfterCommit(ctx, func(context.Context) {
		o.mu.Lock()
		o.pending = append(o.pending, record)
		o.mu.Unlock()
	})
	return nil
}

// Flush publishes queued records in order. Records that fail stay queued for
// the next flush.
func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	batch := o.pending
	o.pending = nil
	o.mu.Unlock()

	for i, rec := range batch {
		if o.Publisher == nil {
			o.logger().DebugContext(ctx, "domain event", "name", rec.Name, "aggregate", rec.Aggregate, "id", rec.ID)
			continue
		}
		if err := o.Publisher.Publish(ctx, rec); err != nil {
			o.mu.Lock()
			o.pending = append(batch[i:len(batch):len(batch)], o.pending...)
			o.mu.Unlock()
			return err
		}
	}
	return nil
}

// Pending returns a copy of the queued records.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.pending...)
}

func (o *Outbox) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

var _ appoutbox.Outbox = (*Outbox)(nil)
