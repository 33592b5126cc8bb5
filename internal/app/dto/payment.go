package dto

import "time"

// CheckoutOrder is what the client needs to open the provider checkout.
type CheckoutOrder struct {
	ReservationID string `json:"reservationId"`
	PaymentID     string `json:"paymentId"`
	OrderID       string `json:"orderId"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	KeyID         string `json:"keyId"`
	BookingCode   string `json:"bookingCode"`
}

type PaymentVerification struct {
	ReservationID     string `json:"reservationId"`
	Status            string `json:"status"`
	PaymentStatus     string `json:"paymentStatus"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	Verified          bool   `json:"verified"`
}

type RefundResult struct {
	ReservationID string    `json:"reservationId"`
	RefundID      string    `json:"refundId"`
	Amount        MoneyDTO  `json:"amount"`
	Reason        string    `json:"reason,omitempty"`
	Status        string    `json:"status"`
	RefundedAt    time.Time `json:"refundedAt"`
}

type WebhookAck struct {
	Status string `json:"status"`
}
