package reservations_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/dto"
	"spacebook/internal/app/handlers/reservations"
	"spacebook/internal/app/middleware"
	"spacebook/internal/app/uow"
	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/shared/money"
	"spacebook/internal/domain/space"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/infra/storage/memory"
	"spacebook/internal/pkg/clock"
	"spacebook/internal/pkg/errs"
)

var now = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

type ReservationsTestSuite struct {
	suite.Suite
	ctx        context.Context
	store      *memory.Store
	factory    memory.Factory
	outbox     *memory.Outbox
	create     *reservations.CreateReservationHandler
	transition *reservations.TransitionHandler
}

func (s *ReservationsTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.factory = memory.Factory{Store: s.store}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.outbox = memory.NewOutbox(nil, logger)
	clk := clock.NewMockClock(now)
	s.create = &reservations.CreateReservationHandler{UoWFactory: s.factory, Outbox: s.outbox, Clock: clk, Logger: logger}
	s.transition = &reservations.TransitionHandler{UoWFactory: s.factory, Outbox: s.outbox, Clock: clk, Logger: logger}

	for _, id := range []string{"user-1", "user-2"} {
		u, err := domainuser.NewUser(domainuser.CreateParams{ID: domainuser.ID(id), Email: id + "@example.com", Name: id, PasswordHash: "x", CreatedAt: now.Add(-90 * 24 * time.Hour)})
		s.Require().NoError(err)
		s.Require().NoError(s.store.Users().Save(s.ctx, u))
	}

	paid, err := space.NewSpace(space.CreateParams{
		ID:      "paid",
		OwnerID: "owner-1",
		Name:    "Studio",
		Pricing: space.Pricing{
			Type:      space.PricingHourly,
			BasePrice: 50000,
			PromoCodes: []space.PromoCode{
				{Code: "SAVE10", Type: space.PromoPercentage, Value: 10, Active: true, MaxUses: 1},
			},
		},
		Now: now,
	})
	s.Require().NoError(err)
	s.Require().NoError(s.store.Spaces().Save(s.ctx, paid))

	free, err := space.NewSpace(space.CreateParams{ID: "free", OwnerID: "owner-1", StaffIDs: []string{"staff-1"}, Name: "Community hall", Pricing: space.Pricing{Type: space.PricingFree}, Now: now})
	s.Require().NoError(err)
	s.Require().NoError(s.store.Spaces().Save(s.ctx, free))
}

func (s *ReservationsTestSuite) book(id, userID, spaceID string, startHour, hours int, promo string) (string, error) {
	start := now.Add(24 * time.Hour).Truncate(24 * time.Hour).Add(time.Duration(startHour) * time.Hour)
	out, err := s.create.Handle(s.ctx, reservations.CreateReservationCommand{
		CommandID: id,
		UserID:    userID,
		SpaceID:   spaceID,
		StartTime: start,
		EndTime:   start.Add(time.Duration(hours) * time.Hour),
		PromoCode: promo,
	})
	if err != nil {
		return "", err
	}
	return out.Status, nil
}

func (s *ReservationsTestSuite) promoUses() int {
	sp, err := s.store.Spaces().ByID(s.ctx, "paid")
	s.Require().NoError(err)
	promo, _ := sp.Pricing.Promo("SAVE10")
	return promo.UsedCount
}

func (s *ReservationsTestSuite) TestCreatePaidReservation() {
	start := now.Add(24 * time.Hour).Truncate(24 * time.Hour).Add(10 * time.Hour)
	out, err := s.create.Handle(s.ctx, reservations.CreateReservationCommand{
		CommandID: "res-1",
		UserID:    "user-1",
		SpaceID:   "paid",
		StartTime: start,
		EndTime:   start.Add(3 * time.Hour),
		PromoCode: "save10",
	})
	s.Require().NoError(err)
	s.Equal("res-1", out.ID)
	s.Equal(string(reservation.StatusPendingPayment), out.Status)
	s.Equal(string(reservation.PaymentPending), out.PaymentStatus)
	s.Equal(int64(135000), out.TotalAmount.Amount)
	s.Equal(int64(150000), out.OriginalPrice.Amount)
	s.Equal(int64(15000), out.DiscountAmount.Amount)
	s.Equal("SAVE10", out.PromoCode)
	s.Regexp(`^SB-`, out.BookingCode)
	s.Equal(1, s.promoUses())

	pending := s.outbox.Pending()
	s.Require().Len(pending, 1)
	s.Equal("reservation.created", pending[0].Name)
	s.Equal("res-1", pending[0].Aggregate)
}

func (s *ReservationsTestSuite) TestOverlapIsRejectedWithoutSideEffects() {
	_, err := s.book("res-1", "user-1", "paid", 10, 2, "")
	s.Require().NoError(err)

	_, err = s.book("res-2", "user-2", "paid", 11, 2, "SAVE10")
	s.ErrorIs(err, reservation.ErrSlotTaken)
	s.True(errs.Is(err, errs.ErrConflict))
	s.Equal(0, s.promoUses(), "a rejected booking does not consume the promo")
	s.Len(s.outbox.Pending(), 1)

	_, err = s.book("res-3", "user-2", "paid", 12, 1, "")
	s.NoError(err, "back to back bookings do not overlap")

	_, err = s.book("res-4", "user-2", "free", 10, 2, "")
	s.NoError(err, "other spaces are unaffected")
}

func (s *ReservationsTestSuite) TestBookingCodeCollisionRetriesInFreshUnit() {
	codes := []string{"SB-TAKEN", "SB-TAKEN", "SB-FRESH"}
	s.create.BookingCodes = func(time.Time) string {
		code := codes[0]
		codes = codes[1:]
		return code
	}
	_, err := s.book("res-1", "user-1", "paid", 10, 1, "")
	s.Require().NoError(err)

	_, err = s.book("res-2", "user-2", "paid", 12, 1, "SAVE10")
	s.ErrorIs(err, reservation.ErrDuplicateBookingCode)
	s.True(errs.Is(err, errs.ErrRetryable))
	s.Equal(0, s.promoUses(), "the failed unit is rolled back")
	check, err := s.factory.Begin(s.ctx, uow.TxOptions{ReadOnly: true})
	s.Require().NoError(err)
	_, err = check.Reservations().ByID(s.ctx, "res-2")
	s.ErrorIs(err, reservation.ErrReservationNotFound)

	codes = []string{"SB-TAKEN", "SB-FRESH"}
	reg := commands.NewRegistry()
	commands.Register[reservations.CreateReservationCommand, *dto.ReservationDetails](reg, s.create)
	bus := middleware.ChainCommands(reg, middleware.Retry(middleware.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil))

	start := now.Add(24 * time.Hour).Truncate(24 * time.Hour).Add(12 * time.Hour)
	out, err := commands.Dispatch[reservations.CreateReservationCommand, *dto.ReservationDetails](s.ctx, bus, reservations.CreateReservationCommand{
		CommandID: "res-2",
		UserID:    "user-2",
		SpaceID:   "paid",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		PromoCode: "SAVE10",
	})
	s.Require().NoError(err)
	s.Equal("SB-FRESH", out.BookingCode)
	s.Equal(1, s.promoUses(), "only the committed attempt consumes the promo")
	s.Empty(codes)
}

func (s *ReservationsTestSuite) TestDuplicateReservationIDIsAConflict() {
	_, err := s.book("res-1", "user-1", "paid", 10, 1, "")
	s.Require().NoError(err)
	_, err = s.book("res-1", "user-1", "paid", 14, 1, "")
	s.ErrorIs(err, reservation.ErrReservationExists)
	s.False(errs.Is(err, errs.ErrRetryable))
}

func (s *ReservationsTestSuite) TestUsedUpPromoFallsBackToFullPrice() {
	_, err := s.book("res-1", "user-1", "paid", 8, 1, "SAVE10")
	s.Require().NoError(err)
	s.Equal(1, s.promoUses())

	start := now.Add(24 * time.Hour).Truncate(24 * time.Hour).Add(14 * time.Hour)
	out, err := s.create.Handle(s.ctx, reservations.CreateReservationCommand{
		CommandID: "res-2", UserID: "user-2", SpaceID: "paid",
		StartTime: start, EndTime: start.Add(time.Hour), PromoCode: "SAVE10",
	})
	s.Require().NoError(err)
	s.Equal(int64(50000), out.TotalAmount.Amount)
	s.Empty(out.PromoCode)
	s.Equal(1, s.promoUses())
}

func (s *ReservationsTestSuite) TestCreateRejectsBadInput() {
	_, err := s.create.Handle(s.ctx, reservations.CreateReservationCommand{
		CommandID: "res-1", UserID: "user-1", SpaceID: "paid",
		StartTime: now.Add(-2 * time.Hour), EndTime: now.Add(-time.Hour),
	})
	s.ErrorIs(err, reservations.ErrStartInPast)

	_, err = s.create.Handle(s.ctx, reservations.CreateReservationCommand{
		CommandID: "res-1", UserID: "user-1", SpaceID: "paid",
		StartTime: now.Add(2 * time.Hour), EndTime: now.Add(time.Hour),
	})
	s.True(errs.Is(err, errs.ErrInvalidInterval))

	_, err = s.book("res-1", "user-1", "missing", 10, 1, "")
	s.True(errs.Is(err, errs.ErrNotFound))

	_, err = s.book("res-1", "ghost", "paid", 10, 1, "")
	s.True(errs.Is(err, errs.ErrNotFound))
}

func (s *ReservationsTestSuite) TestFreeReservationLifecycle() {
	status, err := s.book("res-1", "user-1", "free", 10, 2, "")
	s.Require().NoError(err)
	s.Equal(string(reservation.StatusPendingApproval), status)

	_, err = s.transition.Handle(s.ctx, reservations.TransitionCommand{ReservationID: "res-1", ActorIDV: "staff-1", Action: reservations.ActionApprove})
	s.True(errs.Is(err, errs.ErrForbidden), "staff cannot approve")

	out, err := s.transition.Handle(s.ctx, reservations.TransitionCommand{ReservationID: "res-1", ActorIDV: "owner-1", Action: reservations.ActionApprove})
	s.Require().NoError(err)
	s.Equal(string(reservation.StatusConfirmed), out.Status)

	out, err = s.transition.Handle(s.ctx, reservations.TransitionCommand{ReservationID: "res-1", ActorIDV: "staff-1", Action: reservations.ActionCheckIn})
	s.Require().NoError(err)
	s.Equal(string(reservation.StatusCheckedIn), out.Status)

	_, err = s.transition.Handle(s.ctx, reservations.TransitionCommand{ReservationID: "res-1", ActorIDV: "user-1", Action: reservations.ActionCancel})
	s.True(errs.Is(err, errs.ErrInvalidStateTransition))

	out, err = s.transition.Handle(s.ctx, reservations.TransitionCommand{ReservationID: "res-1", ActorIDV: "owner-1", Action: reservations.ActionCheckOut})
	s.Require().NoError(err)
	s.Equal(string(reservation.StatusCompleted), out.Status)

	_, err = s.transition.Handle(s.ctx, reservations.TransitionCommand{ReservationID: "res-1", ActorIDV: "owner-1", Action: "teleport"})
	s.True(errs.Is(err, errs.ErrValidationFailed))
}

func (s *ReservationsTestSuite) TestCancelAbandonsOpenPayments() {
	_, err := s.book("res-1", "user-1", "paid", 10, 1, "")
	s.Require().NoError(err)

	unit, err := s.factory.Begin(s.ctx, uow.TxOptions{})
	s.Require().NoError(err)
	p, err := payment.New(payment.CreateParams{ID: "pay-row-1", ReservationID: "res-1", UserID: "user-1", OrderID: "order_1", Amount: money.Must(50000, "INR"), Now: now})
	s.Require().NoError(err)
	s.Require().NoError(unit.Payments().Insert(s.ctx, p))
	s.Require().NoError(unit.Commit(s.ctx))

	_, err = s.transition.Handle(s.ctx, reservations.TransitionCommand{ReservationID: "res-1", ActorIDV: "user-2", Action: reservations.ActionCancel})
	s.True(errs.Is(err, errs.ErrForbidden))

	out, err := s.transition.Handle(s.ctx, reservations.TransitionCommand{ReservationID: "res-1", ActorIDV: "user-1", Action: reservations.ActionCancel, Reason: "plans changed"})
	s.Require().NoError(err)
	s.Equal(string(reservation.StatusCancelled), out.Status)
	s.Equal("plans changed", out.CancellationReason)

	check, err := s.factory.Begin(s.ctx, uow.TxOptions{ReadOnly: true})
	s.Require().NoError(err)
	stored, err := check.Payments().ByOrderID(s.ctx, "order_1")
	s.Require().NoError(err)
	s.Equal(payment.StatusCancelled, stored.Status)

	_, err = s.book("res-2", "user-2", "paid", 10, 1, "")
	s.NoError(err, "a cancelled reservation frees its slot")
}

func TestReservationsTestSuite(t *testing.T) {
	suite.Run(t, new(ReservationsTestSuite))
}
