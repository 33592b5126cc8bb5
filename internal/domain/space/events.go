package space

import (
	"time"
)

type SpaceCreatedEvent struct {
	SpaceID SpaceID
	OwnerID OwnerID
	At      time.Time
}

func (e SpaceCreatedEvent) EventName() string     { return "space.created" }
func (e SpaceCreatedEvent) AggregateID() string   { return string(e.SpaceID) }
func (e SpaceCreatedEvent) OccurredAt() time.Time { return e.At }

type PricingReplacedEvent struct {
	SpaceID SpaceID
	Type    PricingType
	Version int64
	At      time.Time
}

func (e PricingReplacedEvent) EventName() string     { return "space.pricing_replaced" }
func (e PricingReplacedEvent) AggregateID() string   { return string(e.SpaceID) }
func (e PricingReplacedEvent) OccurredAt() time.Time { return e.At }
