package pricing

import (
	"time"

	"spacebook/internal/domain/space"
)

// NewUserWindow is how long after registration a user counts as new.
const NewUserWindow = 30 * 24 * time.Hour

// ValidationResult reports whether a promo code or bundle was applied. A
// rejected selector is not an error: the quote is still computed without it.
type ValidationResult struct {
	Requested bool
	Valid     bool
	Reason    string
}

func rejected(reason string) ValidationResult {
	return ValidationResult{Requested: true, Reason: reason}
}

var accepted = ValidationResult{Requested: true, Valid: true}

type PromoContext struct {
	Now           time.Time
	BookingAmount int64
	Customer      Customer
}

// ValidatePromo checks a promo code against the space configuration.
func ValidatePromo(p space.Pricing, code string, pc PromoContext) (space.PromoCode, ValidationResult) {
	promo, ok := p.Promo(code)
	if !ok {
		return space.PromoCode{}, rejected("promo code not found")
	}
	if !promo.Active {
		return promo, rejected("promo code is not active")
	}
	if !withinWindow(pc.Now, promo.ValidFrom, promo.ValidUntil) {
		return promo, rejected("promo code is not valid at this time")
	}
	if space.LimitReached(promo.UsedCount, promo.MaxUses) {
		return promo, rejected("promo code usage limit reached")
	}
	if pc.BookingAmount < promo.MinimumBookingAmount {
		return promo, rejected("booking amount is below the promo minimum")
	}
	if promo.FirstTimeUserOnly && pc.Customer.PriorReservations > 0 {
		return promo, rejected("promo code is limited to first-time customers")
	}
	if promo.NewUserOnly {
		registered := pc.Customer.RegisteredAt
		if registered.IsZero() || pc.Now.Sub(registered) > NewUserWindow {
			return promo, rejected("promo code is limited to new users")
		}
	}
	return promo, accepted
}

// ValidateBundle checks a bundle against the space configuration.
func ValidateBundle(p space.Pricing, id string, now time.Time) (space.Bundle, ValidationResult) {
	bundle, ok := p.Bundle(id)
	if !ok {
		return space.Bundle{}, rejected("bundle not found")
	}
	if !bundle.Active {
		return bundle, rejected("bundle is not active")
	}
	if !withinWindow(now, bundle.ValidFrom, bundle.ValidUntil) {
		return bundle, rejected("bundle is not valid at this time")
	}
	if space.LimitReached(bundle.CurrentPurchases, bundle.MaxPurchases) {
		return bundle, rejected("bundle is sold out")
	}
	return bundle, accepted
}

// withinWindow treats zero bounds as open.
func withinWindow(now, from, until time.Time) bool {
	if !from.IsZero() && now.Before(from) {
		return false
	}
	if !until.IsZero() && now.After(until) {
		return false
	}
	return true
}
