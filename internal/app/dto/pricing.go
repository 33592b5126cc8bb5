package dto

import (
	"time"

	"spacebook/internal/domain/pricing"
	"spacebook/internal/domain/space"
)

type PeakHourDTO struct {
	Day        string  `json:"day" validate:"required"`
	StartTime  string  `json:"startTime" validate:"required"`
	EndTime    string  `json:"endTime" validate:"required"`
	Multiplier float64 `json:"multiplier" validate:"gte=1"`
	IsActive   bool    `json:"isActive"`
}

type TimeBlockDTO struct {
	ID              string  `json:"id" validate:"required"`
	Hours           float64 `json:"hours" validate:"gt=0"`
	Price           int64   `json:"price" validate:"gte=0"`
	IsActive        bool    `json:"isActive"`
	MaxBookings     int     `json:"maxBookings" validate:"gte=0"`
	CurrentBookings int     `json:"currentBookings"`
}

type PromoCodeDTO struct {
	Code                  string     `json:"code" validate:"required"`
	Type                  string     `json:"type" validate:"oneof=percentage fixed_amount free_hours"`
	Value                 float64    `json:"value" validate:"gt=0"`
	ValidFrom             *time.Time `json:"validFrom,omitempty"`
	ValidUntil            *time.Time `json:"validUntil,omitempty"`
	MaxUses               int        `json:"maxUses" validate:"gte=0"`
	UsedCount             int        `json:"usedCount"`
	MinimumBookingAmount  int64      `json:"minimumBookingAmount" validate:"gte=0"`
	MaximumDiscountAmount int64      `json:"maximumDiscountAmount" validate:"gte=0"`
	FirstTimeUserOnly     bool       `json:"firstTimeUserOnly"`
	NewUserOnly           bool       `json:"newUserOnly"`
	IsActive              bool       `json:"isActive"`
}

type BundleDTO struct {
	ID               string     `json:"id" validate:"required"`
	Name             string     `json:"name"`
	Price            int64      `json:"price" validate:"gte=0"`
	Value            float64    `json:"value" validate:"gte=0"`
	ValidFrom        *time.Time `json:"validFrom,omitempty"`
	ValidUntil       *time.Time `json:"validUntil,omitempty"`
	MaxPurchases     int        `json:"maxPurchases" validate:"gte=0"`
	CurrentPurchases int        `json:"currentPurchases"`
	IsActive         bool       `json:"isActive"`
}

// PricingDTO is the wire form of a space pricing snapshot. Amounts are minor
// currency units.
type PricingDTO struct {
	Type                 string         `json:"type" validate:"oneof=free hourly daily monthly package"`
	Currency             string         `json:"currency,omitempty"`
	BasePrice            int64          `json:"basePrice" validate:"gte=0"`
	MonthlyPrice         int64          `json:"monthlyPrice,omitempty" validate:"gte=0"`
	PeakHours            []PeakHourDTO  `json:"peakHours" validate:"dive"`
	TimeBlocks           []TimeBlockDTO `json:"timeBlocks" validate:"dive"`
	PromoCodes           []PromoCodeDTO `json:"promoCodes" validate:"dive"`
	Bundles              []BundleDTO    `json:"bundles" validate:"dive"`
	MinimumBookingHours  float64        `json:"minimumBookingHours" validate:"gte=0"`
	MaximumBookingHours  float64        `json:"maximumBookingHours,omitempty" validate:"gte=0"`
	AllowPartialBookings bool           `json:"allowPartialBookings"`
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (d PricingDTO) ToDomain() space.Pricing {
	p := space.Pricing{
		Type:                 space.PricingType(d.Type),
		Currency:             d.Currency,
		BasePrice:            d.BasePrice,
		MonthlyPrice:         d.MonthlyPrice,
		MinimumBookingHours:  d.MinimumBookingHours,
		MaximumBookingHours:  d.MaximumBookingHours,
		AllowPartialBookings: d.AllowPartialBookings,
	}
	for _, ph := range d.PeakHours {
		p.PeakHours = append(p.PeakHours, space.PeakHour{Day: ph.Day, Start: ph.StartTime, End: ph.EndTime, Multiplier: ph.Multiplier, Active: ph.IsActive})
	}
	for _, tb := range d.TimeBlocks {
		p.TimeBlocks = append(p.TimeBlocks, space.TimeBlock{ID: tb.ID, Hours: tb.Hours, Price: tb.Price, Active: tb.IsActive, MaxBookings: tb.MaxBookings, CurrentBookings: tb.CurrentBookings})
	}
	for _, pc := range d.PromoCodes {
		p.PromoCodes = append(p.PromoCodes, space.PromoCode{
			Code:                  pc.Code,
			Type:                  space.PromoType(pc.Type),
			Value:                 pc.Value,
			ValidFrom:             timeOrZero(pc.ValidFrom),
			ValidUntil:            timeOrZero(pc.ValidUntil),
			MaxUses:               pc.MaxUses,
			UsedCount:             pc.UsedCount,
			MinimumBookingAmount:  pc.MinimumBookingAmount,
			MaximumDiscountAmount: pc.MaximumDiscountAmount,
			FirstTimeUserOnly:     pc.FirstTimeUserOnly,
			NewUserOnly:           pc.NewUserOnly,
			Active:                pc.IsActive,
		})
	}
	for _, b := range d.Bundles {
		p.Bundles = append(p.Bundles, space.Bundle{
			ID:               b.ID,
			Name:             b.Name,
			Price:            b.Price,
			Hours:            b.Value,
			ValidFrom:        timeOrZero(b.ValidFrom),
			ValidUntil:       timeOrZero(b.ValidUntil),
			MaxPurchases:     b.MaxPurchases,
			CurrentPurchases: b.CurrentPurchases,
			Active:           b.IsActive,
		})
	}
	return p
}

func MapPricing(p space.Pricing) PricingDTO {
	out := PricingDTO{
		Type:                 string(p.Type),
		Currency:             p.Currency,
		BasePrice:            p.BasePrice,
		MonthlyPrice:         p.MonthlyPrice,
		MinimumBookingHours:  p.MinimumBookingHours,
		MaximumBookingHours:  p.MaximumBookingHours,
		AllowPartialBookings: p.AllowPartialBookings,
		PeakHours:            make([]PeakHourDTO, 0, len(p.PeakHours)),
		TimeBlocks:           make([]TimeBlockDTO, 0, len(p.TimeBlocks)),
		PromoCodes:           make([]PromoCodeDTO, 0, len(p.PromoCodes)),
		Bundles:              make([]BundleDTO, 0, len(p.Bundles)),
	}
	for _, ph := range p.PeakHours {
		out.PeakHours = append(out.PeakHours, PeakHourDTO{Day: ph.Day, StartTime: ph.Start, EndTime: ph.End, Multiplier: ph.Multiplier, IsActive: ph.Active})
	}
	for _, tb := range p.TimeBlocks {
		out.TimeBlocks = append(out.TimeBlocks, TimeBlockDTO{ID: tb.ID, Hours: tb.Hours, Price: tb.Price, IsActive: tb.Active, MaxBookings: tb.MaxBookings, CurrentBookings: tb.CurrentBookings})
	}
	for _, pc := range p.PromoCodes {
		out.PromoCodes = append(out.PromoCodes, PromoCodeDTO{
			Code:                  pc.Code,
			Type:                  string(pc.Type),
			Value:                 pc.Value,
			ValidFrom:             timePtr(pc.ValidFrom),
			ValidUntil:            timePtr(pc.ValidUntil),
			MaxUses:               pc.MaxUses,
			UsedCount:             pc.UsedCount,
			MinimumBookingAmount:  pc.MinimumBookingAmount,
			MaximumDiscountAmount: pc.MaximumDiscountAmount,
			FirstTimeUserOnly:     pc.FirstTimeUserOnly,
			NewUserOnly:           pc.NewUserOnly,
			IsActive:              pc.Active,
		})
	}
	for _, b := range p.Bundles {
		out.Bundles = append(out.Bundles, BundleDTO{
			ID:               b.ID,
			Name:             b.Name,
			Price:            b.Price,
			Value:            b.Hours,
			ValidFrom:        timePtr(b.ValidFrom),
			ValidUntil:       timePtr(b.ValidUntil),
			MaxPurchases:     b.MaxPurchases,
			CurrentPurchases: b.CurrentPurchases,
			IsActive:         b.Active,
		})
	}
	return out
}

type LineItemDTO struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

type SelectorResultDTO struct {
	Requested bool   `json:"requested"`
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason,omitempty"`
}

type PriceQuote struct {
	SpaceID            string            `json:"spaceId"`
	Currency           string            `json:"currency"`
	OriginalPrice      int64             `json:"originalPrice"`
	Subtotal           int64             `json:"subtotal"`
	DiscountAmount     int64             `json:"discountAmount"`
	TotalPrice         int64             `json:"totalPrice"`
	DurationHours      float64           `json:"durationHours"`
	Breakdown          []LineItemDTO     `json:"breakdown"`
	Promo              SelectorResultDTO `json:"promo"`
	Bundle             SelectorResultDTO `json:"bundle"`
	AppliedTimeBlockID string            `json:"appliedTimeBlockId,omitempty"`
}

func MapBreakdown(lines []pricing.LineItem) []LineItemDTO {
	out := make([]LineItemDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineItemDTO{Kind: string(l.Kind), Description: l.Description, Amount: l.Amount.Amount})
	}
	return out
}

func mapSelector(v pricing.ValidationResult) SelectorResultDTO {
	return SelectorResultDTO{Requested: v.Requested, Valid: v.Valid, Reason: v.Reason}
}

func MapQuote(spaceID string, q pricing.Quote) PriceQuote {
	return PriceQuote{
		SpaceID:            spaceID,
		Currency:           q.Currency,
		OriginalPrice:      q.OriginalPrice.Amount,
		Subtotal:           q.Subtotal.Amount,
		DiscountAmount:     q.DiscountAmount.Amount,
		TotalPrice:         q.TotalPrice.Amount,
		DurationHours:      q.DurationHours,
		Breakdown:          MapBreakdown(q.Breakdown),
		Promo:              mapSelector(q.Promo),
		Bundle:             mapSelector(q.Bundle),
		AppliedTimeBlockID: q.AppliedTimeBlockID,
	}
}
