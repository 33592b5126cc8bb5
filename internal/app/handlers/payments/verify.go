package payments

import (
	"context"
	"log/slog"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/dto"
	"spacebook/internal/app/handlers/support"
	"spacebook/internal/app/middleware"
	"spacebook/internal/app/policies"
	"spacebook/internal/app/uow"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/pkg/clock"
	"spacebook/internal/pkg/errs"
)

const verifyPaymentKey = "payments.verify"

var ErrVerificationFailed = errs.Mark(errs.New("payments: payment signature verification failed"), errs.ErrSignatureInvalid)

// VerifyPaymentCommand is sent by the client after the checkout redirect. The
// signature only proves the ids belong together; the outcome is always read
// back from the provider.
type VerifyPaymentCommand struct {
	UserID            string `json:"-"`
	ReservationID     string `json:"reservationId" validate:"required"`
	ProviderPaymentID string `json:"providerPaymentId" validate:"required"`
	ProviderOrderID   string `json:"providerOrderId" validate:"required"`
	Signature         string `json:"signature" validate:"required"`
}

func (c VerifyPaymentCommand) Key() string     { return verifyPaymentKey }
func (c VerifyPaymentCommand) ActorID() string { return c.UserID }

type VerifyPaymentHandler struct {
	UoWFactory uow.UoWFactory
	Gateway    policies.PaymentGateway
	Reconciler *Reconciler
	Clock      clock.Clock
	Logger     *slog.Logger
}

func (h *VerifyPaymentHandler) Handle(ctx context.Context, cmd VerifyPaymentCommand) (dto.PaymentVerification, error) {
	if h.Gateway == nil || h.Reconciler == nil {
		return dto.PaymentVerification{}, errs.New("payments: gateway and reconciler required")
	}
	log := logger(h.Logger)
	if !h.Gateway.VerifyPaymentSignature(cmd.ProviderOrderID, cmd.ProviderPaymentID, cmd.Signature) {
		log.WarnContext(ctx, "payment signature rejected", "reservation_id", cmd.ReservationID, "order_id", cmd.ProviderOrderID)
		return dto.PaymentVerification{}, ErrVerificationFailed
	}
	provider, err := h.Gateway.FetchPayment(ctx, cmd.ProviderPaymentID)
	if err != nil {
		return dto.PaymentVerification{}, err
	}
	if provider.OrderID != "" && provider.OrderID != cmd.ProviderOrderID {
		log.WarnContext(ctx, "provider payment belongs to another order", "payment_id", cmd.ProviderPaymentID)
		return dto.PaymentVerification{}, ErrVerificationFailed
	}

	now := clock.Or(h.Clock).Now()
	var out dto.PaymentVerification
	err = support.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := unit.Reservations().ByID(ctx, reservation.ReservationID(cmd.ReservationID))
		if err != nil {
			return err
		}
		if r.UserID != cmd.UserID {
			return reservation.ErrNotAllowed
		}
		p, err := unit.Payments().ByOrderID(ctx, cmd.ProviderOrderID)
		if err != nil {
			return err
		}
		if p.ReservationID != r.ID {
			return errs.Field("providerOrderId", "does not belong to this reservation")
		}
		switch provider.Status {
		case policies.ProviderStatusCaptured:
			r, err = h.Reconciler.Captured(ctx, unit, p, provider.ID, now)
		case policies.ProviderStatusAuthorized:
			err = h.Reconciler.Authorized(ctx, unit, p, provider.ID, now)
		case policies.ProviderStatusFailed:
			r, err = h.Reconciler.Failed(ctx, unit, p, provider.ID, provider.ErrorDescription, now)
		}
		if err != nil {
			return err
		}
		out = dto.PaymentVerification{
			ReservationID:     string(r.ID),
			Status:            string(r.Status),
			PaymentStatus:     string(r.PaymentStatus),
			RazorpayPaymentID: provider.ID,
			Verified:          true,
		}
		return nil
	})
	if err != nil {
		return dto.PaymentVerification{}, err
	}
	log.InfoContext(ctx, "payment verified", "reservation_id", out.ReservationID, "provider_status", provider.Status, "status", out.Status)
	return out, nil
}

var (
	_ commands.Handler[VerifyPaymentCommand, dto.PaymentVerification] = (*VerifyPaymentHandler)(nil)
	_ middleware.ActorScoped                                           = VerifyPaymentCommand{}
)
