package reservations

import (
	"context"
	"time"

	"spacebook/internal/app/dto"
	"spacebook/internal/app/handlers/support"
	"spacebook/internal/app/queries"
	"spacebook/internal/app/uow"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/shared/timerange"
	domainspace "spacebook/internal/domain/space"
	"spacebook/internal/pkg/errs"
)

const (
	availabilityKey       = "reservations.availability"
	maxAvailabilityWindow = 93 * 24 * time.Hour
)

// AvailabilityQuery lists the busy intervals of a space inside a window.
type AvailabilityQuery struct {
	SpaceID   string    `validate:"required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required"`
}

func (q AvailabilityQuery) Key() string { return availabilityKey }

type AvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *AvailabilityHandler) Handle(ctx context.Context, q AvailabilityQuery) (dto.Availability, error) {
	window, err := timerange.New(q.StartDate, q.EndDate)
	if err != nil {
		return dto.Availability{}, err
	}
	if window.Duration() > maxAvailabilityWindow {
		return dto.Availability{}, errs.Field("endDate", "window must not exceed 93 days")
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Availability{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	sp, err := unit.Spaces().ByID(ctx, domainspace.SpaceID(q.SpaceID))
	if err != nil {
		return dto.Availability{}, err
	}
	existing, err := unit.Reservations().FindConflicts(ctx, sp.ID, window)
	if err != nil {
		return dto.Availability{}, err
	}
	return dto.Availability{
		SpaceID:   string(sp.ID),
		StartDate: window.Start,
		EndDate:   window.End,
		Busy:      dto.MapBusy(reservation.BusyIntervals(existing)),
	}, nil
}

var _ queries.Handler[AvailabilityQuery, dto.Availability] = (*AvailabilityHandler)(nil)
