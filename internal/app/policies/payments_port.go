package policies

//go:generate mockgen -source=payments_port.go -destination=mocks/payments_mock.go -package=mocks

import (
	"context"

	"spacebook/internal/domain/shared/money"
)

// Order is a provider-side order the client pays against during checkout.
type Order struct {
	ID      string
	Amount  money.Money
	Receipt string
	Status  string
}

// ProviderPayment is the authoritative payment state as reported by the provider.
type ProviderPayment struct {
	ID               string
	OrderID          string
	Amount           money.Money
	Status           string
	Method           string
	ErrorDescription string
}

const (
	ProviderStatusCreated    = "created"
	ProviderStatusAuthorized = "authorized"
	ProviderStatusCaptured   = "captured"
	ProviderStatusFailed     = "failed"
	ProviderStatusRefunded   = "refunded"
)

type Refund struct {
	ID        string
	PaymentID string
	Amount    money.Money
	Status    string
}

// PaymentGateway is the outbound payment provider. Calls are bounded by a
// timeout; failures are marked errs.ErrProviderError.
type PaymentGateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount money.Money, receipt string, notes map[string]string) (Order, error)
	FetchPayment(ctx context.Context, paymentID string) (ProviderPayment, error)
	Refund(ctx context.Context, paymentID string, amount money.Money, reason string) (Refund, error)
	// VerifyPaymentSignature checks the checkout signature over "orderId|paymentId".
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	// VerifyWebhookSignature checks the signature over the raw webhook body.
	VerifyWebhookSignature(payload []byte, signature string) bool
}
