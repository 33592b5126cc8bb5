package reservations

import (
	"context"
	"time"

	"spacebook/internal/app/dto"
	"spacebook/internal/app/handlers/support"
	"spacebook/internal/app/queries"
	"spacebook/internal/app/uow"
	"spacebook/internal/domain/pricing"
	domainspace "spacebook/internal/domain/space"
	"spacebook/internal/pkg/clock"
)

const calculatePriceKey = "reservations.calculate_price"

// CalculatePriceQuery quotes a booking without persisting anything.
type CalculatePriceQuery struct {
	UserID    string    `json:"-"`
	SpaceID   string    `json:"spaceId" validate:"required"`
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime" validate:"required"`
	PromoCode string    `json:"promoCode"`
	BundleID  string    `json:"bundleId"`
}

func (q CalculatePriceQuery) Key() string { return calculatePriceKey }

type CalculatePriceHandler struct {
	UoWFactory uow.UoWFactory
	Clock      clock.Clock
}

func (h *CalculatePriceHandler) Handle(ctx context.Context, q CalculatePriceQuery) (dto.PriceQuote, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.PriceQuote{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	sp, err := unit.Spaces().ByID(ctx, domainspace.SpaceID(q.SpaceID))
	if err != nil {
		return dto.PriceQuote{}, err
	}
	customer, err := customerOf(ctx, unit, q.UserID)
	if err != nil {
		return dto.PriceQuote{}, err
	}
	quote, err := pricing.Calculate(sp.Pricing, pricing.Request{
		Start:     q.StartTime,
		End:       q.EndTime,
		PromoCode: q.PromoCode,
		BundleID:  q.BundleID,
		Now:       clock.Or(h.Clock).Now(),
		Customer:  customer,
		Location:  sp.Location(),
	})
	if err != nil {
		return dto.PriceQuote{}, err
	}
	return dto.MapQuote(string(sp.ID), quote), nil
}

var _ queries.Handler[CalculatePriceQuery, dto.PriceQuote] = (*CalculatePriceHandler)(nil)
