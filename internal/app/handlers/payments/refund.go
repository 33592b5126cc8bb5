package payments

import (
	"context"
	"log/slog"
	"time"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/dto"
	"spacebook/internal/app/middleware"
	"spacebook/internal/app/policies"
	"spacebook/internal/app/uow"
	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/shared/money"
	"spacebook/internal/pkg/clock"
	"spacebook/internal/pkg/errs"
)

const refundReservationKey = "payments.refund"

// RefundReservationCommand returns money of a completed payment. Amount
// defaults to the full captured amount.
type RefundReservationCommand struct {
	ReservationID   string `json:"-" validate:"required"`
	ActorIDV        string `json:"-"`
	Admin           bool   `json:"-"`
	Amount          *int64 `json:"amount" validate:"omitempty,gt=0"`
	Reason          string `json:"reason" validate:"max=500"`
	IdempotencyKeyV string `json:"-"`
}

func (c RefundReservationCommand) Key() string            { return refundReservationKey }
func (c RefundReservationCommand) ActorID() string        { return c.ActorIDV }
func (c RefundReservationCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c RefundReservationCommand) ResultPrototype() any   { return &dto.RefundResult{} }

// SelfTransacted: the provider call sits between two units of work.
func (c RefundReservationCommand) SelfTransacted() bool { return true }

type RefundReservationHandler struct {
	UoWFactory uow.UoWFactory
	Gateway    policies.PaymentGateway
	Reconciler *Reconciler
	Clock      clock.Clock
	Logger     *slog.Logger
}

// refundClaim is what the first unit hands to the provider call.
type refundClaim struct {
	orderID   string
	paymentID string
	amount    money.Money
}

// Handle claims the payment and commits before calling the provider, then
// records the processed refund in a second unit. A concurrent refund of the
// same reservation fails on the claim and never reaches the provider.
func (h *RefundReservationHandler) Handle(ctx context.Context, cmd RefundReservationCommand) (*dto.RefundResult, error) {
	if h.Gateway == nil || h.Reconciler == nil {
		return nil, errs.New("payments: gateway and reconciler required")
	}
	now := clock.Or(h.Clock).Now()
	claim, err := h.claim(ctx, cmd, now)
	if err != nil {
		return nil, err
	}

	refund, err := h.Gateway.Refund(ctx, claim.paymentID, claim.amount, cmd.Reason)
	if err != nil {
		if relErr := h.release(context.WithoutCancel(ctx), claim, now); relErr != nil {
			logger(h.Logger).ErrorContext(ctx, "refund claim not released",
				"reservation_id", cmd.ReservationID, "order_id", claim.orderID, "error", relErr)
		}
		return nil, err
	}

	var out *dto.RefundResult
	err = uow.Within(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		p, err := unit.Payments().ByOrderID(ctx, claim.orderID)
		if err != nil {
			return err
		}
		r, err := h.Reconciler.Refunded(ctx, unit, p, refund.ID, claim.amount, cmd.Reason, now)
		if err != nil {
			return err
		}
		out = &dto.RefundResult{
			ReservationID: string(r.ID),
			RefundID:      refund.ID,
			Amount:        dto.MapMoney(claim.amount),
			Reason:        cmd.Reason,
			Status:        string(r.Status),
			RefundedAt:    now,
		}
		return nil
	})
	if err != nil {
		// The provider already refunded; the refund.processed webhook
		// finalizes the claimed payment.
		logger(h.Logger).ErrorContext(ctx, "refund processed but not recorded",
			"reservation_id", cmd.ReservationID, "refund_id", refund.ID, "error", err)
		return nil, err
	}
	logger(h.Logger).InfoContext(ctx, "reservation refunded",
		"reservation_id", out.ReservationID, "refund_id", out.RefundID, "amount", out.Amount.Amount)
	return out, nil
}

func (h *RefundReservationHandler) claim(ctx context.Context, cmd RefundReservationCommand, now time.Time) (refundClaim, error) {
	var claim refundClaim
	err := uow.Within(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := unit.Reservations().ByID(ctx, reservation.ReservationID(cmd.ReservationID))
		if err != nil {
			return err
		}
		if !cmd.Admin {
			sp, err := unit.Spaces().ByID(ctx, r.SpaceID)
			if err != nil {
				return err
			}
			if !sp.IsOwner(cmd.ActorIDV) {
				return reservation.ErrNotAllowed
			}
		}
		if !r.CanRefund() {
			return errs.Wrapf(reservation.ErrInvalidTransition, "reservation %s cannot be refunded in status %s", r.ID, r.Status)
		}
		p, err := refundablePayment(ctx, unit.Payments(), r.ID)
		if err != nil {
			return err
		}
		amount := p.Amount
		if cmd.Amount != nil {
			amount = money.Money{Amount: *cmd.Amount, Currency: p.Amount.Currency}
		}
		if err := p.ClaimRefund(amount, cmd.Reason, now); err != nil {
			return err
		}
		if err := unit.Payments().Save(ctx, p); err != nil {
			return err
		}
		claim = refundClaim{orderID: p.OrderID, paymentID: p.PaymentID, amount: amount}
		return nil
	})
	return claim, err
}

func (h *RefundReservationHandler) release(ctx context.Context, claim refundClaim, now time.Time) error {
	return uow.Within(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		p, err := unit.Payments().ByOrderID(ctx, claim.orderID)
		if err != nil {
			return err
		}
		if !p.ReleaseRefund(now) {
			return nil
		}
		return unit.Payments().Save(ctx, p)
	})
}

// refundablePayment picks the newest completed attempt. An attempt that is
// already claimed means another refund is running.
func refundablePayment(ctx context.Context, repo payment.Repository, id reservation.ReservationID) (*payment.Payment, error) {
	attempts, err := repo.ListByReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, p := range attempts {
		switch p.Status {
		case payment.StatusRefundPending:
			return nil, payment.ErrRefundInProgress
		case payment.StatusCompleted:
			return p, nil
		}
	}
	return nil, payment.ErrNoCompletedPayment
}

var (
	_ commands.Handler[RefundReservationCommand, *dto.RefundResult] = (*RefundReservationHandler)(nil)
	_ middleware.IdempotentCommand                                   = RefundReservationCommand{}
	_ middleware.SelfTransacted                                      = RefundReservationCommand{}
)
