package razorpay

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"spacebook/internal/app/policies"
	"spacebook/internal/domain/shared/money"
	"spacebook/internal/pkg/errs"
)

// Fake is an in-process gateway for local runs and tests. It signs with real
// HMACs, so clients and webhooks can be simulated end to end.
type Fake struct {
	KeySecret     string
	WebhookSecret string

	mu       sync.Mutex
	orders   map[string]policies.Order
	payments map[string]policies.ProviderPayment
}

func NewFake(keySecret, webhookSecret string) *Fake {
	return &Fake{
		KeySecret:     keySecret,
		WebhookSecret: webhookSecret,
		orders:        make(map[string]policies.Order),
		payments:      make(map[string]policies.ProviderPayment),
	}
}

func (f *Fake) KeyID() string { return "rzp_test_fake" }

func (f *Fake) CreateOrder(ctx context.Context, amount money.Money, receipt string, notes map[string]string) (policies.Order, error) {
	order := policies.Order{
		ID:      "order_" + compactID(),
		Amount:  money.Money{Amount: amount.Amount, Currency: currencyOf(amount)},
		Receipt: receipt,
		Status:  policies.ProviderStatusCreated,
	}
	f.mu.Lock()
	f.orders[order.ID] = order
	f.mu.Unlock()
	return order, nil
}

// Pay simulates a checkout of orderID ending in status and returns the
// payment id with its checkout signature.
func (f *Fake) Pay(orderID, status string) (paymentID, signature string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return "", "", errs.Mark(errs.Newf("razorpay fake: unknown order %s", orderID), errs.ErrProviderError)
	}
	paymentID = "pay_" + compactID()
	p := policies.ProviderPayment{ID: paymentID, OrderID: orderID, Amount: order.Amount, Status: status, Method: "card"}
	if status == policies.ProviderStatusFailed {
		p.ErrorDescription = "card declined"
	}
	f.payments[paymentID] = p
	return paymentID, Sign(f.KeySecret, []byte(orderID+"|"+paymentID)), nil
}

func (f *Fake) FetchPayment(ctx context.Context, paymentID string) (policies.ProviderPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok {
		return policies.ProviderPayment{}, errs.Mark(errs.Newf("razorpay fake: unknown payment %s", paymentID), errs.ErrProviderError)
	}
	return p, nil
}

func (f *Fake) Refund(ctx context.Context, paymentID string, amount money.Money, reason string) (policies.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok || p.Status != policies.ProviderStatusCaptured {
		return policies.Refund{}, errs.Mark(errs.Newf("razorpay fake: payment %s is not refundable", paymentID), errs.ErrProviderError)
	}
	if amount.Amount >= p.Amount.Amount {
		p.Status = policies.ProviderStatusRefunded
		f.payments[paymentID] = p
	}
	return policies.Refund{ID: "rfnd_" + compactID(), PaymentID: paymentID, Amount: amount, Status: "processed"}, nil
}

// Signatures are checked the way the live client checks them.
func (f *Fake) verifier() *Client {
	return newClient(Config{KeySecret: f.KeySecret, WebhookSecret: f.WebhookSecret}, nil, nil, nil)
}

func (f *Fake) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return f.verifier().VerifyPaymentSignature(orderID, paymentID, signature)
}

func (f *Fake) VerifyWebhookSignature(payload []byte, signature string) bool {
	return f.verifier().VerifyWebhookSignature(payload, signature)
}

func compactID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}

var _ policies.PaymentGateway = (*Fake)(nil)
