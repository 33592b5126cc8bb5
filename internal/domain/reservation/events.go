package reservation

import (
	"time"

	"spacebook/internal/domain/shared/money"
	"spacebook/internal/domain/shared/timerange"
	"spacebook/internal/domain/space"
)

type ReservationCreated struct {
	ReservationID ReservationID
	SpaceID       space.SpaceID
	UserID        string
	BookingCode   string
	Range         timerange.Range
	Total         money.Money
	Status        Status
	At            time.Time
}

func (e ReservationCreated) EventName() string     { return "reservation.created" }
func (e ReservationCreated) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCreated) OccurredAt() time.Time { return e.At }

type ReservationApproved struct {
	ReservationID ReservationID
	By            string
	At            time.Time
}

func (e ReservationApproved) EventName() string     { return "reservation.approved" }
func (e ReservationApproved) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationApproved) OccurredAt() time.Time { return e.At }

type ReservationRejected struct {
	ReservationID ReservationID
	By            string
	Reason        string
	At            time.Time
}

func (e ReservationRejected) EventName() string     { return "reservation.rejected" }
func (e ReservationRejected) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationRejected) OccurredAt() time.Time { return e.At }

type ReservationCancelled struct {
	ReservationID ReservationID
	SpaceID       space.SpaceID
	Reason        string
	At            time.Time
}

func (e ReservationCancelled) EventName() string     { return "reservation.cancelled" }
func (e ReservationCancelled) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCancelled) OccurredAt() time.Time { return e.At }

type ReservationCheckedIn struct {
	ReservationID ReservationID
	By            string
	At            time.Time
}

func (e ReservationCheckedIn) EventName() string     { return "reservation.checked_in" }
func (e ReservationCheckedIn) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCheckedIn) OccurredAt() time.Time { return e.At }

type ReservationCheckedOut struct {
	ReservationID ReservationID
	By            string
	At            time.Time
}

func (e ReservationCheckedOut) EventName() string     { return "reservation.completed" }
func (e ReservationCheckedOut) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCheckedOut) OccurredAt() time.Time { return e.At }

type ReservationNoShow struct {
	ReservationID ReservationID
	By            string
	At            time.Time
}

func (e ReservationNoShow) EventName() string     { return "reservation.no_show" }
func (e ReservationNoShow) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationNoShow) OccurredAt() time.Time { return e.At }

type PaymentConfirmed struct {
	ReservationID ReservationID
	PaymentID     string
	Amount        money.Money
	At            time.Time
}

func (e PaymentConfirmed) EventName() string     { return "reservation.confirmed" }
func (e PaymentConfirmed) AggregateID() string   { return string(e.ReservationID) }
func (e PaymentConfirmed) OccurredAt() time.Time { return e.At }

type PaymentFailedEvent struct {
	ReservationID ReservationID
	Reason        string
	At            time.Time
}

func (e PaymentFailedEvent) EventName() string     { return "reservation.payment_failed" }
func (e PaymentFailedEvent) AggregateID() string   { return string(e.ReservationID) }
func (e PaymentFailedEvent) OccurredAt() time.Time { return e.At }

type ReservationRefunded struct {
	ReservationID ReservationID
	Amount        money.Money
	Reason        string
	At            time.Time
}

func (e ReservationRefunded) EventName() string     { return "reservation.refunded" }
func (e ReservationRefunded) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationRefunded) OccurredAt() time.Time { return e.At }
