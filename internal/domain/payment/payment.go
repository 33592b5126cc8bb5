package payment

import (
	"context"
	"time"

	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/shared/events"
	"spacebook/internal/domain/shared/money"
	"spacebook/internal/pkg/errs"
)

var (
	ErrPaymentNotFound     = errs.Mark(errs.New("payment: not found"), errs.ErrNotFound)
	ErrNoCompletedPayment  = errs.Mark(errs.New("payment: no completed payment for reservation"), errs.ErrNoCompletedPayment)
	ErrRefundExceedsAmount = errs.Field("amount", "refund exceeds the captured amount")
	ErrInvalidTransition   = errs.Mark(errs.New("payment: invalid state transition"), errs.ErrInvalidStateTransition)
	ErrOrderRequired       = errs.Field("orderId", "is required")
	ErrRefundInProgress    = errs.Mark(errs.New("payment: a refund is already in progress"), errs.ErrConflict)
)

type ID string

type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
	StatusCancelled  Status = "cancelled"

	// StatusRefundPending marks a refund claimed locally and not yet
	// confirmed by the provider.
	StatusRefundPending Status = "refund_pending"
)

// Payment is one attempt to pay for a reservation, keyed by the provider order.
type Payment struct {
	ID            ID
	ReservationID reservation.ReservationID
	UserID        string
	OrderID       string
	PaymentID     string
	Amount        money.Money
	Status        Status
	FailureReason string
	RefundID      string
	RefundAmount  money.Money
	RefundReason  string
	CapturedAt    *time.Time
	RefundedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

type Repository interface {
	Insert(ctx context.Context, p *Payment) error
	Save(ctx context.Context, p *Payment) error
	ByOrderID(ctx context.Context, orderID string) (*Payment, error)
	ByPaymentID(ctx context.Context, paymentID string) (*Payment, error)
	// LatestCompletedForReservation returns the most recent completed attempt.
	LatestCompletedForReservation(ctx context.Context, id reservation.ReservationID) (*Payment, error)
	ListByReservation(ctx context.Context, id reservation.ReservationID) ([]*Payment, error)
}

type CreateParams struct {
	ID            ID
	ReservationID reservation.ReservationID
	UserID        string
	OrderID       string
	Amount        money.Money
	Now           time.Time
}

func New(params CreateParams) (*Payment, error) {
	if params.OrderID == "" {
		return nil, ErrOrderRequired
	}
	if !params.Amount.IsPositive() {
		return nil, errs.Field("amount", "must be positive")
	}
	now := params.Now.UTC()
	p := &Payment{
		ID:            params.ID,
		ReservationID: params.ReservationID,
		UserID:        params.UserID,
		OrderID:       params.OrderID,
		Amount:        params.Amount,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p.Record(PaymentInitialized{PaymentRowID: p.ID, ReservationID: p.ReservationID, OrderID: p.OrderID, Amount: p.Amount, At: now})
	return p, nil
}

func (p *Payment) linkProviderPayment(paymentID string) {
	if paymentID != "" {
		p.PaymentID = paymentID
	}
}

// MarkAuthorized records an authorization that still waits for capture.
func (p *Payment) MarkAuthorized(paymentID string, now time.Time) bool {
	if p.Status != StatusPending && p.Status != StatusFailed {
		return false
	}
	p.Status = StatusAuthorized
	p.linkProviderPayment(paymentID)
	p.UpdatedAt = now.UTC()
	return true
}

// MarkCaptured completes the attempt. A refunded payment stays refunded.
func (p *Payment) MarkCaptured(paymentID string, now time.Time) bool {
	switch p.Status {
	case StatusCompleted, StatusRefundPending, StatusRefunded:
		return false
	}
	at := now.UTC()
	p.Status = StatusCompleted
	p.FailureReason = ""
	p.linkProviderPayment(paymentID)
	p.CapturedAt = &at
	p.UpdatedAt = at
	p.Record(PaymentCaptured{PaymentRowID: p.ID, ReservationID: p.ReservationID, PaymentID: p.PaymentID, Amount: p.Amount, At: at})
	return true
}

// MarkFailed records a failed attempt. A failure never downgrades a captured
// or refunded payment.
func (p *Payment) MarkFailed(paymentID, reason string, now time.Time) bool {
	switch p.Status {
	case StatusPending, StatusAuthorized:
	default:
		return false
	}
	at := now.UTC()
	p.Status = StatusFailed
	p.FailureReason = reason
	p.linkProviderPayment(paymentID)
	p.UpdatedAt = at
	p.Record(PaymentFailed{PaymentRowID: p.ID, ReservationID: p.ReservationID, Reason: reason, At: at})
	return true
}

// ClaimRefund reserves a captured payment for one refund before the
// provider is called. A second claim fails with ErrRefundInProgress, so at
// most one refund reaches the provider per payment.
func (p *Payment) ClaimRefund(amount money.Money, reason string, now time.Time) error {
	switch p.Status {
	case StatusCompleted:
	case StatusRefundPending:
		return ErrRefundInProgress
	default:
		return ErrInvalidTransition
	}
	if err := p.CheckRefundAmount(amount); err != nil {
		return err
	}
	p.Status = StatusRefundPending
	p.RefundAmount = amount
	p.RefundReason = reason
	p.UpdatedAt = now.UTC()
	return nil
}

// ReleaseRefund gives a claim back after the provider rejected the refund.
func (p *Payment) ReleaseRefund(now time.Time) bool {
	if p.Status != StatusRefundPending {
		return false
	}
	p.Status = StatusCompleted
	p.RefundAmount = money.Money{}
	p.RefundReason = ""
	p.UpdatedAt = now.UTC()
	return true
}

// MarkRefunded records a processed refund against a captured or claimed
// payment.
func (p *Payment) MarkRefunded(refundID string, amount money.Money, reason string, now time.Time) (bool, error) {
	if p.Status == StatusRefunded {
		return false, nil
	}
	if p.Status != StatusCompleted && p.Status != StatusRefundPending {
		return false, ErrInvalidTransition
	}
	if err := p.CheckRefundAmount(amount); err != nil {
		return false, err
	}
	at := now.UTC()
	p.Status = StatusRefunded
	p.RefundID = refundID
	p.RefundAmount = amount
	p.RefundReason = reason
	p.RefundedAt = &at
	p.UpdatedAt = at
	p.Record(PaymentRefunded{PaymentRowID: p.ID, ReservationID: p.ReservationID, RefundID: refundID, Amount: amount, At: at})
	return true, nil
}

// CheckRefundAmount rejects refunds that are empty or larger than the capture.
func (p *Payment) CheckRefundAmount(amount money.Money) error {
	if !amount.IsPositive() {
		return errs.Field("amount", "must be positive")
	}
	if amount.Currency != p.Amount.Currency {
		return errs.Field("amount", "currency does not match the payment")
	}
	if amount.Amount > p.Amount.Amount {
		return ErrRefundExceedsAmount
	}
	return nil
}

// Cancel abandons an attempt that never completed.
func (p *Payment) Cancel(now time.Time) bool {
	if p.Status != StatusPending && p.Status != StatusFailed {
		return false
	}
	p.Status = StatusCancelled
	p.UpdatedAt = now.UTC()
	return true
}

// AbandonOpen cancels every attempt of a reservation that has not completed,
// used when the reservation can no longer be paid.
func AbandonOpen(ctx context.Context, repo Repository, id reservation.ReservationID, now time.Time) error {
	attempts, err := repo.ListByReservation(ctx, id)
	if err != nil {
		return err
	}
	for _, p := range attempts {
		if !p.Cancel(now) {
			continue
		}
		if err := repo.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
