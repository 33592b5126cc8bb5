package dto

import (
	"time"

	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

type ReservationDetails struct {
	ID                 string        `json:"id"`
	SpaceID            string        `json:"spaceId"`
	UserID             string        `json:"userId"`
	StartTime          time.Time     `json:"startTime"`
	EndTime            time.Time     `json:"endTime"`
	Status             string        `json:"status"`
	PaymentStatus      string        `json:"paymentStatus"`
	TotalAmount        MoneyDTO      `json:"totalAmount"`
	OriginalPrice      MoneyDTO      `json:"originalPrice"`
	DiscountAmount     MoneyDTO      `json:"discountAmount"`
	DurationHours      float64       `json:"durationHours"`
	PricingBreakdown   []LineItemDTO `json:"pricingBreakdown"`
	PromoCode          string        `json:"promoCode,omitempty"`
	BundleID           string        `json:"bundleId,omitempty"`
	BookingCode        string        `json:"bookingCode"`
	RazorpayOrderID    string        `json:"razorpayOrderId,omitempty"`
	RazorpayPaymentID  string        `json:"razorpayPaymentId,omitempty"`
	CancellationReason string        `json:"cancellationReason,omitempty"`
	RejectionReason    string        `json:"rejectionReason,omitempty"`
	ConfirmedAt        *time.Time    `json:"confirmedAt,omitempty"`
	CancelledAt        *time.Time    `json:"cancelledAt,omitempty"`
	CheckedInAt        *time.Time    `json:"checkedInAt,omitempty"`
	CheckedOutAt       *time.Time    `json:"checkedOutAt,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

func MapReservation(r *reservation.Reservation) ReservationDetails {
	return ReservationDetails{
		ID:                 string(r.ID),
		SpaceID:            string(r.SpaceID),
		UserID:             r.UserID,
		StartTime:          r.Range.Start,
		EndTime:            r.Range.End,
		Status:             string(r.Status),
		PaymentStatus:      string(r.PaymentStatus),
		TotalAmount:        MapMoney(r.TotalAmount),
		OriginalPrice:      MapMoney(r.Pricing.OriginalPrice),
		DiscountAmount:     MapMoney(r.Pricing.DiscountAmount),
		DurationHours:      r.Pricing.DurationHours,
		PricingBreakdown:   MapBreakdown(r.Pricing.Breakdown),
		PromoCode:          r.Pricing.PromoCode,
		BundleID:           r.Pricing.BundleID,
		BookingCode:        r.BookingCode,
		RazorpayOrderID:    r.RazorpayOrderID,
		RazorpayPaymentID:  r.RazorpayPaymentID,
		CancellationReason: r.CancellationReason,
		RejectionReason:    r.RejectionReason,
		ConfirmedAt:        r.ConfirmedAt,
		CancelledAt:        r.CancelledAt,
		CheckedInAt:        r.CheckedInAt,
		CheckedOutAt:       r.CheckedOutAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

type ReservationCollection struct {
	Items []ReservationDetails `json:"items"`
}

type BusyIntervalDTO struct {
	ReservationID string    `json:"reservationId"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	Status        string    `json:"status"`
}

type Availability struct {
	SpaceID   string            `json:"spaceId"`
	StartDate time.Time         `json:"startDate"`
	EndDate   time.Time         `json:"endDate"`
	Busy      []BusyIntervalDTO `json:"busy"`
}

func MapBusy(items []reservation.Busy) []BusyIntervalDTO {
	out := make([]BusyIntervalDTO, 0, len(items))
	for _, b := range items {
		out = append(out, BusyIntervalDTO{ReservationID: string(b.ReservationID), StartTime: b.Range.Start, EndTime: b.Range.End, Status: string(b.Status)})
	}
	return out
}
