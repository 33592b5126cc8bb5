package spaces

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
	"spacebook/internal/pkg/clock"
	"spacebook/internal/pkg/errs"
)

const listSlotsKey = "spaces.slots"

// ListSlotsQuery lists the bookable slots of one local date (YYYY-MM-DD).
type ListSlotsQuery struct {
	SpaceID string `validate:"required"`
	Date    string `validate:"required"`
}

func (q ListSlotsQuery) Key() string { return listSlotsKey }

type ListSlotsHandler struct {
	UoWFactory uow.UoWFactory
	Clock      clock.Clock
}

func (h *ListSlotsHandler) Handle(ctx context.Context, q ListSlotsQuery) (dto.SlotList, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.SlotList{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	sp, err := unit.Spaces().ByID(ctx, domainspace.SpaceID(q.SpaceID))
	if err != nil {
		return dto.SlotList{}, err
	}
	day, err := time.ParseInLocation(time.DateOnly, q.Date, sp.Location())
	if err != nil {
		return dto.SlotList{}, errs.Field("date", "must be YYYY-MM-DD")
	}
	window, err := timerange.New(day, day.AddDate(0, 0, 1))
	if err != nil {
		return dto.SlotList{}, err
	}
	existing, err := unit.Reservations().FindConflicts(ctx, sp.ID, window)
	if err != nil {
		return dto.SlotList{}, err
	}
	slots, err := reservation.GenerateSlots(sp, day, existing, clock.Or(h.Clock).Now())
	if err != nil {
		return dto.SlotList{}, err
	}
	out := dto.SlotList{SpaceID: string(sp.ID), Date: q.Date, Slots: make([]dto.SlotDTO, 0, len(slots))}
	for _, s := range slots {
		out.Slots = append(out.Slots, dto.SlotDTO{StartTime: s.Range.Start, EndTime: s.Range.End, TimeBlockID: s.TimeBlockID})
	}
	return out, nil
}

var _ queries.Handler[ListSlotsQuery, dto.SlotList] = (*ListSlotsHandler)(nil)
