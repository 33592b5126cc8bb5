package reservation

import (
	"context"
	"time"

	"spacebook/internal/domain/pricing"
	"spacebook/internal/domain/shared/events"
	"spacebook/internal/domain/shared/money"
	"spacebook/internal/domain/shared/timerange"
	"spacebook/internal/domain/space"
	"spacebook/internal/pkg/errs"
)

var (
	ErrInvalidTransition   = errs.Mark(errs.New("reservation: invalid state transition"), errs.ErrInvalidStateTransition)
	ErrNotAllowed          = errs.Mark(errs.New("reservation: actor may not perform this action"), errs.ErrForbidden)
	ErrReservationNotFound = errs.Mark(errs.New("reservation: not found"), errs.ErrNotFound)
	ErrSlotTaken           = errs.Mark(errs.New("reservation: the requested slot is already booked"), errs.ErrConflict)
	ErrReservationExists   = errs.Mark(errs.New("reservation: already exists"), errs.ErrConflict)
	ErrUserRequired        = errs.Field("userId", "is required")

	// ErrDuplicateBookingCode aborts the unit that drew the code; a retry
	// draws a new one.
	ErrDuplicateBookingCode = errs.Mark(
		errs.Mark(errs.New("reservation: booking code already in use"), errs.ErrConflict),
		errs.ErrRetryable,
	)
)

type ReservationID string

type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusPendingPayment  Status = "pending_payment"
	StatusConfirmed       Status = "confirmed"
	StatusCancelled       Status = "cancelled"
	StatusRejected        Status = "rejected"
	StatusCompleted       Status = "completed"
	StatusCheckedIn       Status = "checked_in"
	StatusNoShow          Status = "no_show"
)

// ActiveStatuses are the statuses that hold a slot.
var ActiveStatuses = []Status{StatusPendingApproval, StatusPendingPayment, StatusConfirmed}

func (s Status) IsActive() bool {
	for _, active := range ActiveStatuses {
		if s == active {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCancelled, StatusRejected, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentCompleted   PaymentStatus = "completed"
	PaymentFailed      PaymentStatus = "failed"
	PaymentRefunded    PaymentStatus = "refunded"
	PaymentNotRequired PaymentStatus = "not_required"
)

// Actor is whoever asks for a transition, resolved against the reserved space.
type Actor struct {
	ID         string
	SpaceOwner bool
	SpaceStaff bool
	Admin      bool
}

// ActorFor resolves the relation between an actor and the space of a reservation.
func ActorFor(id string, sp *space.Space, admin bool) Actor {
	a := Actor{ID: id, Admin: admin}
	if sp != nil {
		a.SpaceOwner = sp.IsOwner(id)
		a.SpaceStaff = !a.SpaceOwner && sp.CanOperate(id)
	}
	return a
}

func (a Actor) operates() bool {
	return a.SpaceOwner || a.SpaceStaff
}

// Snapshot is the price of a reservation as computed at booking time. It is
// never recalculated.
type Snapshot struct {
	OriginalPrice  money.Money
	DiscountAmount money.Money
	DurationHours  float64
	Breakdown      []pricing.LineItem
	PromoCode      string
	BundleID       string
	TimeBlockID    string
}

func SnapshotOf(q pricing.Quote) Snapshot {
	return Snapshot{
		OriginalPrice:  q.OriginalPrice,
		DiscountAmount: q.DiscountAmount,
		DurationHours:  q.DurationHours,
		Breakdown:      append([]pricing.LineItem(nil), q.Breakdown...),
		PromoCode:      q.AppliedPromoCode,
		BundleID:       q.AppliedBundleID,
		TimeBlockID:    q.AppliedTimeBlockID,
	}
}

type Reservation struct {
	ID                 ReservationID
	SpaceID            space.SpaceID
	UserID             string
	Range              timerange.Range
	Status             Status
	PaymentStatus      PaymentStatus
	TotalAmount        money.Money
	Pricing            Snapshot
	BookingCode        string
	RazorpayOrderID    string
	RazorpayPaymentID  string
	CancellationReason string
	RejectionReason    string
	ConfirmedAt        *time.Time
	CancelledAt        *time.Time
	CheckedInAt        *time.Time
	CheckedOutAt       *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ReservationID) (*Reservation, error)
	ByOrderID(ctx context.Context, orderID string) (*Reservation, error)
	// Insert stores a new reservation. It fails with ErrDuplicateBookingCode
	// when the code is taken and ErrReservationExists when the id is.
	Insert(ctx context.Context, r *Reservation) error
	Save(ctx context.Context, r *Reservation) error
	// FindConflicts returns active reservations of the space overlapping window.
	FindConflicts(ctx context.Context, spaceID space.SpaceID, window timerange.Range) ([]*Reservation, error)
	ListByUser(ctx context.Context, userID string) ([]*Reservation, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	// GuardSpace makes concurrent transactions that book the same space conflict.
	GuardSpace(ctx context.Context, spaceID space.SpaceID) error
}

type CreateParams struct {
	ID          ReservationID
	SpaceID     space.SpaceID
	UserID      string
	Range       timerange.Range
	Quote       pricing.Quote
	BookingCode string
	Now         time.Time
}

// New creates a reservation in pending_payment, or pending_approval when the
// quote is free.
func New(params CreateParams) (*Reservation, error) {
	if params.UserID == "" {
		return nil, ErrUserRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	r := &Reservation{
		ID:          params.ID,
		SpaceID:     params.SpaceID,
		UserID:      params.UserID,
		Range:       params.Range,
		TotalAmount: params.Quote.TotalPrice,
		Pricing:     SnapshotOf(params.Quote),
		BookingCode: params.BookingCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if params.Quote.IsFree() {
		r.Status = StatusPendingApproval
		r.PaymentStatus = PaymentNotRequired
	} else {
		r.Status = StatusPendingPayment
		r.PaymentStatus = PaymentPending
	}
	r.Record(ReservationCreated{
		ReservationID: r.ID,
		SpaceID:       r.SpaceID,
		UserID:        r.UserID,
		BookingCode:   r.BookingCode,
		Range:         r.Range,
		Total:         r.TotalAmount,
		Status:        r.Status,
		At:            now,
	})
	return r, nil
}

func (r *Reservation) touch(now time.Time) time.Time {
	r.UpdatedAt = now.UTC()
	return r.UpdatedAt
}

func (r *Reservation) Approve(by Actor, now time.Time) error {
	if !by.SpaceOwner {
		return ErrNotAllowed
	}
	if r.Status != StatusPendingApproval {
		return ErrInvalidTransition
	}
	at := r.touch(now)
	r.Status = StatusConfirmed
	r.ConfirmedAt = &at
	r.Record(ReservationApproved{ReservationID: r.ID, By: by.ID, At: at})
	return nil
}

func (r *Reservation) Reject(by Actor, reason string, now time.Time) error {
	if !by.SpaceOwner {
		return ErrNotAllowed
	}
	if r.Status != StatusPendingApproval {
		return ErrInvalidTransition
	}
	at := r.touch(now)
	r.Status = StatusRejected
	r.RejectionReason = reason
	r.Record(ReservationRejected{ReservationID: r.ID, By: by.ID, Reason: reason, At: at})
	return nil
}

func (r *Reservation) Cancel(by Actor, reason string, now time.Time) error {
	if by.ID == "" || by.ID != r.UserID {
		return ErrNotAllowed
	}
	if r.Status != StatusPendingApproval && r.Status != StatusPendingPayment {
		return ErrInvalidTransition
	}
	r.cancel(reason, now)
	return nil
}

func (r *Reservation) cancel(reason string, now time.Time) {
	at := r.touch(now)
	r.Status = StatusCancelled
	r.CancellationReason = reason
	r.CancelledAt = &at
	r.Record(ReservationCancelled{ReservationID: r.ID, SpaceID: r.SpaceID, Reason: reason, At: at})
}

func (r *Reservation) CheckIn(by Actor, now time.Time) error {
	if !by.operates() {
		return ErrNotAllowed
	}
	if r.Status != StatusConfirmed {
		return ErrInvalidTransition
	}
	at := r.touch(now)
	r.Status = StatusCheckedIn
	r.CheckedInAt = &at
	r.Record(ReservationCheckedIn{ReservationID: r.ID, By: by.ID, At: at})
	return nil
}

func (r *Reservation) CheckOut(by Actor, now time.Time) error {
	if !by.operates() {
		return ErrNotAllowed
	}
	if r.Status != StatusCheckedIn {
		return ErrInvalidTransition
	}
	at := r.touch(now)
	r.Status = StatusCompleted
	r.CheckedOutAt = &at
	r.Record(ReservationCheckedOut{ReservationID: r.ID, By: by.ID, At: at})
	return nil
}

func (r *Reservation) MarkNoShow(by Actor, now time.Time) error {
	if !by.operates() {
		return ErrNotAllowed
	}
	if r.Status != StatusConfirmed {
		return ErrInvalidTransition
	}
	at := r.touch(now)
	r.Status = StatusNoShow
	r.Record(ReservationNoShow{ReservationID: r.ID, By: by.ID, At: at})
	return nil
}

// AttachOrder links the provider order created for this reservation.
func (r *Reservation) AttachOrder(orderID string, now time.Time) error {
	if r.Status != StatusPendingPayment {
		return ErrInvalidTransition
	}
	r.RazorpayOrderID = orderID
	r.touch(now)
	return nil
}

// ConfirmPayment applies a captured payment. It reports false when the
// reservation was already confirmed by an earlier delivery, and fails when
// the reservation left the payable states in the meantime.
func (r *Reservation) ConfirmPayment(paymentID string, now time.Time) (bool, error) {
	switch r.Status {
	case StatusConfirmed, StatusCheckedIn, StatusCompleted:
		if r.PaymentStatus == PaymentCompleted {
			return false, nil
		}
		r.PaymentStatus = PaymentCompleted
		r.linkPayment(paymentID)
		r.touch(now)
		return true, nil
	case StatusPendingPayment:
	default:
		return false, ErrInvalidTransition
	}
	at := r.touch(now)
	r.Status = StatusConfirmed
	r.PaymentStatus = PaymentCompleted
	r.ConfirmedAt = &at
	r.linkPayment(paymentID)
	r.Record(PaymentConfirmed{ReservationID: r.ID, PaymentID: paymentID, Amount: r.TotalAmount, At: at})
	return true, nil
}

func (r *Reservation) linkPayment(paymentID string) {
	if paymentID != "" {
		r.RazorpayPaymentID = paymentID
	}
}

// RecordPaymentFailure keeps the reservation in pending_payment so the user
// can retry. A failure reported after a successful capture is ignored.
func (r *Reservation) RecordPaymentFailure(reason string, now time.Time) bool {
	if r.Status != StatusPendingPayment || r.PaymentStatus == PaymentCompleted || r.PaymentStatus == PaymentFailed {
		return false
	}
	at := r.touch(now)
	r.PaymentStatus = PaymentFailed
	r.Record(PaymentFailedEvent{ReservationID: r.ID, Reason: reason, At: at})
	return true
}

// RetryPayment reopens a failed payment for another attempt.
func (r *Reservation) RetryPayment(now time.Time) {
	if r.Status == StatusPendingPayment && r.PaymentStatus == PaymentFailed {
		r.PaymentStatus = PaymentPending
		r.touch(now)
	}
}

// CanRefund reports whether money taken for this reservation may be returned.
func (r *Reservation) CanRefund() bool {
	if r.PaymentStatus == PaymentRefunded {
		return false
	}
	switch r.Status {
	case StatusPendingPayment, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// MarkRefunded cancels the reservation after its payment was returned.
func (r *Reservation) MarkRefunded(amount money.Money, reason string, now time.Time) (bool, error) {
	if r.PaymentStatus == PaymentRefunded {
		return false, nil
	}
	if !r.CanRefund() {
		return false, ErrInvalidTransition
	}
	if r.Status != StatusCancelled {
		r.cancel(reason, now)
	}
	at := r.touch(now)
	r.PaymentStatus = PaymentRefunded
	r.Record(ReservationRefunded{ReservationID: r.ID, Amount: amount, Reason: reason, At: at})
	return true, nil
}
