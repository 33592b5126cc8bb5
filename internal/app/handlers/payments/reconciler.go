package payments

import (
	"context"
	"log/slog"
	"time"

	"spacebook/internal/app/handlers/support"
	"spacebook/internal/app/outbox"
	"spacebook/internal/app/policies"
	"spacebook/internal/app/uow"
	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/shared/money"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/pkg/errs"
)

// Reconciler applies provider payment outcomes to payments and reservations.
// The client verify path and the webhook path both go through it, so either
// may run first and a repeated outcome changes nothing.
type Reconciler struct {
	Notifier policies.Notifier
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Logger   *slog.Logger
}

func (rc *Reconciler) Captured(ctx context.Context, unit uow.UnitOfWork, p *payment.Payment, providerPaymentID string, now time.Time) (*reservation.Reservation, error) {
	paymentChanged := p.MarkCaptured(providerPaymentID, now)
	r, err := unit.Reservations().ByID(ctx, p.ReservationID)
	if err != nil {
		return nil, err
	}
	before := r.Status
	reservationChanged, err := r.ConfirmPayment(p.PaymentID, now)
	if err != nil {
		if !errs.Is(err, reservation.ErrInvalidTransition) {
			return nil, err
		}
		rc.logger().WarnContext(ctx, "payment captured for a reservation that cannot be confirmed",
			"reservation_id", r.ID, "status", r.Status, "payment_id", p.PaymentID)
		reservationChanged = false
	}
	if err := rc.save(ctx, unit, p, paymentChanged, r, reservationChanged); err != nil {
		return nil, err
	}
	if before == reservation.StatusPendingPayment && r.Status == reservation.StatusConfirmed {
		rc.notify(ctx, unit, r, "booking_confirmed", func(ctx context.Context, n policies.ReservationNotice) error {
			return rc.Notifier.BookingConfirmed(ctx, n)
		})
	}
	return r, nil
}

// Failed records a failed attempt. The reservation stays in pending_payment
// so the user can retry.
func (rc *Reconciler) Failed(ctx context.Context, unit uow.UnitOfWork, p *payment.Payment, providerPaymentID, reason string, now time.Time) (*reservation.Reservation, error) {
	paymentChanged := p.MarkFailed(providerPaymentID, reason, now)
	r, err := unit.Reservations().ByID(ctx, p.ReservationID)
	if err != nil {
		return nil, err
	}
	reservationChanged := paymentChanged && r.RecordPaymentFailure(reason, now)
	if err := rc.save(ctx, unit, p, paymentChanged, r, reservationChanged); err != nil {
		return nil, err
	}
	if reservationChanged {
		rc.notify(ctx, unit, r, "payment_failed", func(ctx context.Context, n policies.ReservationNotice) error {
			return rc.Notifier.PaymentFailed(ctx, n, reason)
		})
	}
	return r, nil
}

// Authorized links the provider payment while capture is still outstanding.
func (rc *Reconciler) Authorized(ctx context.Context, unit uow.UnitOfWork, p *payment.Payment, providerPaymentID string, now time.Time) error {
	if !p.MarkAuthorized(providerPaymentID, now) {
		return nil
	}
	if err := unit.Payments().Save(ctx, p); err != nil {
		return err
	}
	return support.RecordEvents(ctx, rc.Outbox, rc.Encoder, p)
}

func (rc *Reconciler) Refunded(ctx context.Context, unit uow.UnitOfWork, p *payment.Payment, refundID string, amount money.Money, reason string, now time.Time) (*reservation.Reservation, error) {
	paymentChanged, err := p.MarkRefunded(refundID, amount, reason, now)
	if err != nil {
		return nil, err
	}
	r, err := unit.Reservations().ByID(ctx, p.ReservationID)
	if err != nil {
		return nil, err
	}
	reservationChanged, err := r.MarkRefunded(amount, reason, now)
	if err != nil {
		if !errs.Is(err, reservation.ErrInvalidTransition) {
			return nil, err
		}
		rc.logger().WarnContext(ctx, "refund processed for a reservation that cannot be cancelled",
			"reservation_id", r.ID, "status", r.Status, "refund_id", refundID)
		reservationChanged = false
	}
	if err := rc.save(ctx, unit, p, paymentChanged, r, reservationChanged); err != nil {
		return nil, err
	}
	if reservationChanged {
		rc.notify(ctx, unit, r, "refund_processed", func(ctx context.Context, n policies.ReservationNotice) error {
			return rc.Notifier.RefundProcessed(ctx, n, amount, reason)
		})
	}
	return r, nil
}

func (rc *Reconciler) save(ctx context.Context, unit uow.UnitOfWork, p *payment.Payment, paymentChanged bool, r *reservation.Reservation, reservationChanged bool) error {
	if paymentChanged {
		if err := unit.Payments().Save(ctx, p); err != nil {
			return err
		}
	}
	if reservationChanged {
		if err := unit.Reservations().Save(ctx, r); err != nil {
			return err
		}
	}
	return support.RecordEvents(ctx, rc.Outbox, rc.Encoder, p, r)
}

// notify sends once the unit committed. Delivery failures are logged only.
func (rc *Reconciler) notify(ctx context.Context, unit uow.UnitOfWork, r *reservation.Reservation, kind string, send func(context.Context, policies.ReservationNotice) error) {
	if rc.Notifier == nil {
		return
	}
	notice := rc.noticeFor(ctx, unit, r)
	log := rc.logger()
	uow.AfterCommit(ctx, func(ctx context.Context) {
		if err := send(ctx, notice); err != nil {
			log.WarnContext(ctx, "notification failed", "kind", kind, "reservation_id", notice.ReservationID, "error", err)
		}
	})
}

func (rc *Reconciler) noticeFor(ctx context.Context, unit uow.UnitOfWork, r *reservation.Reservation) policies.ReservationNotice {
	n := policies.ReservationNotice{
		ReservationID: string(r.ID),
		BookingCode:   r.BookingCode,
		UserID:        r.UserID,
		Start:         r.Range.Start,
		End:           r.Range.End,
		Total:         r.TotalAmount,
	}
	if u, err := unit.Users().ByID(ctx, domainuser.ID(r.UserID)); err == nil {
		n.Email = u.Email
		n.Name = u.Name
	} else {
		rc.logger().WarnContext(ctx, "notice without recipient details", "reservation_id", r.ID, "error", err)
	}
	if sp, err := unit.Spaces().ByID(ctx, r.SpaceID); err == nil {
		n.SpaceName = sp.Name
	}
	return n
}

func (rc *Reconciler) logger() *slog.Logger {
	if rc.Logger != nil {
		return rc.Logger
	}
	return slog.Default()
}
