package spaces

import (
	"context"

	"spacebook/internal/app/dto"
	"spacebook/internal/app/handlers/support"
	"spacebook/internal/app/queries"
	"spacebook/internal/app/uow"
	domainspace "spacebook/internal/domain/space"
)

const getSpaceKey = "spaces.get"

type GetSpaceQuery struct {
	SpaceID string `validate:"required"`
}

func (q GetSpaceQuery) Key() string { return getSpaceKey }

type GetSpaceHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetSpaceHandler) Handle(ctx context.Context, q GetSpaceQuery) (dto.SpaceDetails, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.SpaceDetails{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	sp, err := unit.Spaces().ByID(ctx, domainspace.SpaceID(q.SpaceID))
	if err != nil {
		return dto.SpaceDetails{}, err
	}
	return dto.MapSpace(sp), nil
}

var _ queries.Handler[GetSpaceQuery, dto.SpaceDetails] = (*GetSpaceHandler)(nil)
