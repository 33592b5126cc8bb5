package payments

import (
	"context"
	"log/slog"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/dto"
	"spacebook/internal/app/handlers/support"
	"spacebook/internal/app/middleware"
	"spacebook/internal/app/outbox"
	"spacebook/internal/app/policies"
	"spacebook/internal/app/uow"
	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/pkg/clock"
	"spacebook/internal/pkg/errs"
)

const initializePaymentKey = "payments.initialize"

var ErrAmountMismatch = errs.Field("amount", "must equal the reservation total")

type InitializePaymentCommand struct {
	CommandID       string `json:"-"`
	UserID          string `json:"-"`
	ReservationID   string `json:"reservationId" validate:"required"`
	Amount          int64  `json:"amount" validate:"gt=0"`
	IdempotencyKeyV string `json:"-"`
}

func (c InitializePaymentCommand) Key() string            { return initializePaymentKey }
func (c InitializePaymentCommand) ActorID() string        { return c.UserID }
func (c InitializePaymentCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c InitializePaymentCommand) ResultPrototype() any   { return &dto.CheckoutOrder{} }

// InitializePaymentHandler opens a provider order for a reservation awaiting
// payment. A failed earlier attempt is reopened; open attempts are abandoned.
type InitializePaymentHandler struct {
	UoWFactory uow.UoWFactory
	Gateway    policies.PaymentGateway
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      clock.Clock
	Logger     *slog.Logger
}

func (h *InitializePaymentHandler) Handle(ctx context.Context, cmd InitializePaymentCommand) (*dto.CheckoutOrder, error) {
	if h.Gateway == nil {
		return nil, errs.New("payments: gateway required")
	}
	now := clock.Or(h.Clock).Now()
	var out *dto.CheckoutOrder
	err := support.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := unit.Reservations().ByID(ctx, reservation.ReservationID(cmd.ReservationID))
		if err != nil {
			return err
		}
		if r.UserID != cmd.UserID {
			return reservation.ErrNotAllowed
		}
		if r.Status != reservation.StatusPendingPayment || r.PaymentStatus == reservation.PaymentCompleted {
			return errs.Wrapf(reservation.ErrInvalidTransition, "reservation %s is %s", r.ID, r.Status)
		}
		if cmd.Amount != r.TotalAmount.Amount {
			return ErrAmountMismatch
		}
		if err := payment.AbandonOpen(ctx, unit.Payments(), r.ID, now); err != nil {
			return err
		}
		r.RetryPayment(now)

		order, err := h.Gateway.CreateOrder(ctx, r.TotalAmount, r.BookingCode, map[string]string{
			"reservation_id": string(r.ID),
			"booking_code":   r.BookingCode,
		})
		if err != nil {
			return err
		}
		p, err := payment.New(payment.CreateParams{
			ID:            payment.ID(cmd.CommandID),
			ReservationID: r.ID,
			UserID:        r.UserID,
			OrderID:       order.ID,
			Amount:        r.TotalAmount,
			Now:           now,
		})
		if err != nil {
			return err
		}
		if err := unit.Payments().Insert(ctx, p); err != nil {
			return err
		}
		if err := r.AttachOrder(order.ID, now); err != nil {
			return err
		}
		if err := unit.Reservations().Save(ctx, r); err != nil {
			return err
		}
		if err := support.RecordEvents(ctx, h.Outbox, h.Encoder, p, r); err != nil {
			return err
		}
		out = &dto.CheckoutOrder{
			ReservationID: string(r.ID),
			PaymentID:     string(p.ID),
			OrderID:       order.ID,
			Amount:        r.TotalAmount.Amount,
			Currency:      r.TotalAmount.Currency,
			KeyID:         h.Gateway.KeyID(),
			BookingCode:   r.BookingCode,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger(h.Logger).InfoContext(ctx, "payment initialized", "reservation_id", out.ReservationID, "order_id", out.OrderID)
	return out, nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

var (
	_ commands.Handler[InitializePaymentCommand, *dto.CheckoutOrder] = (*InitializePaymentHandler)(nil)
	_ middleware.IdempotentCommand                                    = InitializePaymentCommand{}
)
