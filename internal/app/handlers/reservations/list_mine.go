package reservations

import (
	"context"
	"sort"

	"spacebook/internal/app/dto"
	"spacebook/internal/app/handlers/support"
	"spacebook/internal/app/queries"
	"spacebook/internal/app/uow"
)

const listMineKey = "reservations.mine"

type ListMyReservationsQuery struct {
	UserID string `validate:"required"`
}

func (q ListMyReservationsQuery) Key() string     { return listMineKey }
func (q ListMyReservationsQuery) ActorID() string { return q.UserID }

type ListMyReservationsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListMyReservationsHandler) Handle(ctx context.Context, q ListMyReservationsQuery) (dto.ReservationCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Reservations().ListByUser(ctx, q.UserID)
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Range.Start.After(items[j].Range.Start)
	})
	out := dto.ReservationCollection{Items: make([]dto.ReservationDetails, 0, len(items))}
	for _, r := range items {
		out.Items = append(out.Items, dto.MapReservation(r))
	}
	return out, nil
}

var _ queries.Handler[ListMyReservationsQuery, dto.ReservationCollection] = (*ListMyReservationsHandler)(nil)
