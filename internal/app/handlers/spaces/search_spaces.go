package spaces

import (
	"context"

	"spacebook/internal/app/dto"
	"spacebook/internal/app/handlers/support"
	"spacebook/internal/app/queries"
	"spacebook/internal/app/uow"
	domainspace "spacebook/internal/domain/space"
)

const searchSpacesKey = "spaces.search"

// SearchSpacesQuery filters the public catalog.
type SearchSpacesQuery struct {
	Params domainspace.SearchParams
}

func (q SearchSpacesQuery) Key() string { return searchSpacesKey }

type SearchSpacesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SearchSpacesHandler) Handle(ctx context.Context, q SearchSpacesQuery) (dto.SpaceCatalog, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.SpaceCatalog{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	params := q.Params.Normalized()
	result, err := unit.Spaces().Search(ctx, params)
	if err != nil {
		return dto.SpaceCatalog{}, err
	}
	catalog := dto.SpaceCatalog{
		Items:  make([]dto.SpaceCard, 0, len(result.Items)),
		Total:  result.Total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	for _, sp := range result.Items {
		catalog.Items = append(catalog.Items, dto.MapSpaceCard(sp))
	}
	return catalog, nil
}

var _ queries.Handler[SearchSpacesQuery, dto.SpaceCatalog] = (*SearchSpacesHandler)(nil)
