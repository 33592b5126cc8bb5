package reservations

import (
	"context"

	"spacebook/internal/app/dto"
	"spacebook/internal/app/handlers/support"
	"spacebook/internal/app/queries"
	"spacebook/internal/app/uow"
	"spacebook/internal/domain/reservation"
)

const getReservationKey = "reservations.get"

// GetReservationQuery is visible to the booking user, the space owner and
// staff, and admins.
type GetReservationQuery struct {
	ReservationID string `validate:"required"`
	ActorIDV      string
	Admin         bool
}

func (q GetReservationQuery) Key() string     { return getReservationKey }
func (q GetReservationQuery) ActorID() string { return q.ActorIDV }

type GetReservationHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetReservationHandler) Handle(ctx context.Context, q GetReservationQuery) (dto.ReservationDetails, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReservationDetails{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	r, err := unit.Reservations().ByID(ctx, reservation.ReservationID(q.ReservationID))
	if err != nil {
		return dto.ReservationDetails{}, err
	}
	if !q.Admin && r.UserID != q.ActorIDV {
		sp, err := unit.Spaces().ByID(ctx, r.SpaceID)
		if err != nil {
			return dto.ReservationDetails{}, err
		}
		if !sp.CanOperate(q.ActorIDV) {
			return dto.ReservationDetails{}, reservation.ErrNotAllowed
		}
	}
	return dto.MapReservation(r), nil
}

var _ queries.Handler[GetReservationQuery, dto.ReservationDetails] = (*GetReservationHandler)(nil)
