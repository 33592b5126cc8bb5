package payment

import (
	"time"

	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/shared/money"
)

type PaymentInitialized struct {
	PaymentRowID  ID
	ReservationID reservation.ReservationID
	OrderID       string
	Amount        money.Money
	At            time.Time
}

func (e PaymentInitialized) EventName() string     { return "payment.initialized" }
func (e PaymentInitialized) AggregateID() string   { return string(e.PaymentRowID) }
func (e PaymentInitialized) OccurredAt() time.Time { return e.At }

type PaymentCaptured struct {
	PaymentRowID  ID
	ReservationID reservation.ReservationID
	PaymentID     string
	Amount        money.Money
	At            time.Time
}

func (e PaymentCaptured) EventName() string     { return "payment.captured" }
func (e PaymentCaptured) AggregateID() string   { return string(e.PaymentRowID) }
func (e PaymentCaptured) OccurredAt() time.Time { return e.At }

type PaymentFailed struct {
	PaymentRowID  ID
	ReservationID reservation.ReservationID
	Reason        string
	At            time.Time
}

func (e PaymentFailed) EventName() string     { return "payment.failed" }
func (e PaymentFailed) AggregateID() string   { return string(e.PaymentRowID) }
func (e PaymentFailed) OccurredAt() time.Time { return e.At }

type PaymentRefunded struct {
	PaymentRowID  ID
	ReservationID reservation.ReservationID
	RefundID      string
	Amount        money.Money
	At            time.Time
}

func (e PaymentRefunded) EventName() string     { return "payment.refunded" }
func (e PaymentRefunded) AggregateID() string   { return string(e.PaymentRowID) }
func (e PaymentRefunded) OccurredAt() time.Time { return e.At }
