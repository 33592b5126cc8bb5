// Package events holds the contract between aggregates and the outbox.
package events

import "time"

// DomainEvent is recorded by aggregates and relayed through the outbox.
// EventName is the wire name and selects the topic.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Source is implemented by aggregates embedding EventRecorder.
type Source interface {
	Drain() []DomainEvent
}

// EventRecorder is embedded by aggregates. The zero value is ready to use;
// repositories reset it on the copies they hand out.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(ev DomainEvent) {
	if ev != nil {
		r.pending = append(r.pending, ev)
	}
}

// Drain hands over the pending events in recording order.
func (r *EventRecorder) Drain() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}
