package notify

import (
	"spacebook/internal/app/policies"
	"spacebook/internal/domain/shared/money"
)

// Task names as registered with the queue.
const (
	TaskSendEmail = "notify:email"
)

type Kind string

const (
	KindBookingConfirmed Kind = "booking_confirmed"
	KindPaymentFailed    Kind = "payment_failed"
	KindRefundProcessed  Kind = "refund_processed"
	KindBookingReminder  Kind = "booking_reminder"
)

// Job is the queued form of one notification.
type Job struct {
	Kind   Kind                       `json:"kind"`
	Notice policies.ReservationNotice `json:"notice"`
	Amount money.Money                `json:"amount,omitempty"`
	Reason string                     `json:"reason,omitempty"`
}
