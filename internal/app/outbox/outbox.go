package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"spacebook/internal/domain/shared/events"
	"spacebook/internal/pkg/errs"
)

// EventRecord is a domain event serialized for the relay.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Outbox stages records in the current unit of work. Flush runs after the
// command completed and may hand staged records to a publisher.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

// JSONEventEncoder marshals the event struct as the payload. NewID defaults
// to a random "evt-" prefixed UUID.
type JSONEventEncoder struct {
	NewID func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	name := ev.EventName()
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, errs.Wrapf(err, "outbox: encode %s", name)
	}
	id := "evt-" + uuid.NewString()
	if e.NewID != nil {
		id = e.NewID()
	}
	return EventRecord{
		ID:         id,
		Name:       name,
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers: map[string]string{
			"event-name":   name,
			"aggregate-id": ev.AggregateID(),
		},
	}, nil
}
