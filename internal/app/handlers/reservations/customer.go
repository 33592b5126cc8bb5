package reservations

import (
	"context"

	"spacebook/internal/app/uow"
	"spacebook/internal/domain/pricing"
	domainuser "spacebook/internal/domain/user"
)

// customerOf loads the booking history promo rules depend on. An anonymous
// caller is treated as a customer without history.
func customerOf(ctx context.Context, unit uow.UnitOfWork, userID string) (pricing.Customer, error) {
	if userID == "" {
		return pricing.Customer{}, nil
	}
	user, err := unit.Users().ByID(ctx, domainuser.ID(userID))
	if err != nil {
		return pricing.Customer{}, err
	}
	count, err := unit.Reservations().CountByUser(ctx, userID)
	if err != nil {
		return pricing.Customer{}, err
	}
	return pricing.Customer{RegisteredAt: user.CreatedAt, PriorReservations: count}, nil
}
