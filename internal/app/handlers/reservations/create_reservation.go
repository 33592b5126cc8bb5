package reservations

import (
	"context"
	"log/slog"
	"time"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/dto"
	"spacebook/internal/app/handlers/support"
	"spacebook/internal/app/middleware"
	"spacebook/internal/app/outbox"
	"spacebook/internal/app/uow"
	"spacebook/internal/domain/pricing"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/shared/timerange"
	domainspace "spacebook/internal/domain/space"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/pkg/clock"
	"spacebook/internal/pkg/errs"
)

const createReservationKey = "reservations.create"

var (
	ErrStartInPast      = errs.Field("startTime", "must not be in the past")
	ErrPromoExhausted   = errs.Mark(errs.New("reservations: promo code was used up by another booking, try again"), errs.ErrConflict)
	ErrBundleSoldOut    = errs.Mark(errs.New("reservations: bundle sold out while booking, try again"), errs.ErrConflict)
	ErrTimeBlockSoldOut = errs.Mark(errs.New("reservations: time block sold out while booking, try again"), errs.ErrConflict)
)

type CreateReservationCommand struct {
	CommandID       string    `json:"-"`
	UserID          string    `json:"-"`
	SpaceID         string    `json:"spaceId" validate:"required"`
	StartTime       time.Time `json:"startTime" validate:"required"`
	EndTime         time.Time `json:"endTime" validate:"required"`
	PromoCode       string    `json:"promoCode"`
	BundleID        string    `json:"bundleId"`
	IdempotencyKeyV string    `json:"-"`
}

func (c CreateReservationCommand) Key() string            { return createReservationKey }
func (c CreateReservationCommand) ActorID() string        { return c.UserID }
func (c CreateReservationCommand) SpaceKey() string       { return c.SpaceID }
func (c CreateReservationCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c CreateReservationCommand) ResultPrototype() any   { return &dto.ReservationDetails{} }

// CreateReservationHandler books an interval of a space. The conflict check,
// the insert and the counter increments share one unit of work, and the
// command is serialized per space by the middleware chain.
type CreateReservationHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      clock.Clock
	Logger     *slog.Logger

	// BookingCodes defaults to reservation.NewBookingCode.
	BookingCodes func(time.Time) string
}

func (h *CreateReservationHandler) Handle(ctx context.Context, cmd CreateReservationCommand) (*dto.ReservationDetails, error) {
	now := clock.Or(h.Clock).Now()
	window, err := timerange.New(cmd.StartTime, cmd.EndTime)
	if err != nil {
		return nil, err
	}
	if window.Start.Before(now) {
		return nil, ErrStartInPast
	}

	var created *reservation.Reservation
	err = support.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		sp, err := unit.Spaces().ByID(ctx, domainspace.SpaceID(cmd.SpaceID))
		if err != nil {
			return err
		}
		if _, err := unit.Users().ByID(ctx, domainuser.ID(cmd.UserID)); err != nil {
			return err
		}
		if err := unit.Reservations().GuardSpace(ctx, sp.ID); err != nil {
			return err
		}
		customer, err := customerOf(ctx, unit, cmd.UserID)
		if err != nil {
			return err
		}
		quote, err := pricing.Calculate(sp.Pricing, pricing.Request{
			Start:     window.Start,
			End:       window.End,
			PromoCode: cmd.PromoCode,
			BundleID:  cmd.BundleID,
			Now:       now,
			Customer:  customer,
			Location:  sp.Location(),
		})
		if err != nil {
			return err
		}
		conflicts, err := unit.Reservations().FindConflicts(ctx, sp.ID, window)
		if err != nil {
			return err
		}
		if len(reservation.Conflicts(conflicts, window)) > 0 {
			return reservation.ErrSlotTaken
		}

		created, err = h.insert(ctx, unit, cmd, sp.ID, window, quote, now)
		if err != nil {
			return err
		}
		if err := consumeCounters(ctx, unit.Spaces(), sp.ID, quote); err != nil {
			return err
		}
		return support.RecordEvents(ctx, h.Outbox, h.Encoder, created)
	})
	if err != nil {
		return nil, err
	}
	logger(h.Logger).InfoContext(ctx, "reservation created",
		"reservation_id", created.ID, "space_id", created.SpaceID, "booking_code", created.BookingCode,
		"status", created.Status, "total", created.TotalAmount.Amount)
	out := dto.MapReservation(created)
	return &out, nil
}

// insert draws a booking code and stores the reservation. A code collision
// fails the whole unit with a retryable error, since a mongo transaction is
// aborted by the duplicate key write.
func (h *CreateReservationHandler) insert(ctx context.Context, unit uow.UnitOfWork, cmd CreateReservationCommand, spaceID domainspace.SpaceID, window timerange.Range, quote pricing.Quote, now time.Time) (*reservation.Reservation, error) {
	codes := h.BookingCodes
	if codes == nil {
		codes = reservation.NewBookingCode
	}
	r, err := reservation.New(reservation.CreateParams{
		ID:          reservation.ReservationID(cmd.CommandID),
		SpaceID:     spaceID,
		UserID:      cmd.UserID,
		Range:       window,
		Quote:       quote,
		BookingCode: codes(now),
		Now:         now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Reservations().Insert(ctx, r); err != nil {
		if errs.Is(err, reservation.ErrDuplicateBookingCode) {
			logger(h.Logger).DebugContext(ctx, "booking code collision", "booking_code", r.BookingCode)
		}
		return nil, err
	}
	return r, nil
}

// consumeCounters bumps the usage counters of whatever the quote applied.
// A failed increment aborts the unit so the reservation is not kept.
func consumeCounters(ctx context.Context, spaces domainspace.Repository, id domainspace.SpaceID, quote pricing.Quote) error {
	if quote.AppliedPromoCode != "" {
		ok, err := spaces.IncrementPromoUsage(ctx, id, quote.AppliedPromoCode)
		if err != nil {
			return err
		}
		if !ok {
			return ErrPromoExhausted
		}
	}
	if quote.AppliedBundleID != "" {
		ok, err := spaces.IncrementBundlePurchases(ctx, id, quote.AppliedBundleID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrBundleSoldOut
		}
	}
	if quote.AppliedTimeBlockID != "" {
		ok, err := spaces.IncrementTimeBlockBookings(ctx, id, quote.AppliedTimeBlockID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTimeBlockSoldOut
		}
	}
	return nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

var (
	_ commands.Handler[CreateReservationCommand, *dto.ReservationDetails] = (*CreateReservationHandler)(nil)
	_ middleware.IdempotentCommand                                         = CreateReservationCommand{}
	_ middleware.SpaceScoped                                               = CreateReservationCommand{}
)
