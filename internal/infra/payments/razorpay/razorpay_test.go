package razorpay_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacebook/internal/app/policies"
	"spacebook/internal/domain/shared/money"
	"spacebook/internal/infra/payments/razorpay"
	"spacebook/internal/pkg/errs"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubOrders struct {
	got  map[string]interface{}
	resp map[string]interface{}
	err  error
}

func (s *stubOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	s.got = data
	return s.resp, s.err
}

type stubPayments struct {
	fetched      string
	refundedID   string
	refundAmount int
	refundData   map[string]interface{}
	block        chan struct{}
	err          error
}

func (s *stubPayments) Fetch(paymentID string, _ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	if s.block != nil {
		<-s.block
	}
	s.fetched = paymentID
	if s.err != nil {
		return nil, s.err
	}
	// The SDK decodes JSON into interface maps, so numbers arrive as float64.
	return map[string]interface{}{
		"id": paymentID, "order_id": "order_1", "amount": float64(5000),
		"currency": "INR", "status": "captured", "method": "upi",
	}, nil
}

func (s *stubPayments) Refund(paymentID string, amount int, data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	s.refundedID, s.refundAmount, s.refundData = paymentID, amount, data
	if s.err != nil {
		return nil, s.err
	}
	return map[string]interface{}{
		"id": "rfnd_1", "payment_id": paymentID, "amount": float64(amount),
		"currency": "INR", "status": "processed",
	}, nil
}

var testConfig = razorpay.Config{
	KeyID:         "rzp_test_key",
	KeySecret:     "key-secret",
	WebhookSecret: "wh-secret",
	Timeout:       time.Second,
}

func TestClientCreateOrder(t *testing.T) {
	orders := &stubOrders{resp: map[string]interface{}{
		"id": "order_9", "amount": float64(135000), "currency": "INR", "receipt": "SB-ABC", "status": "created",
	}}
	c := razorpay.NewClientWith(testConfig, orders, &stubPayments{}, quiet)

	order, err := c.CreateOrder(context.Background(), money.Money{Amount: 135000}, "SB-ABC", map[string]string{"reservation": "r1"})
	require.NoError(t, err)
	assert.Equal(t, policies.Order{ID: "order_9", Amount: money.Money{Amount: 135000, Currency: "INR"}, Receipt: "SB-ABC", Status: "created"}, order)
	assert.Equal(t, "rzp_test_key", c.KeyID())

	assert.EqualValues(t, 135000, orders.got["amount"])
	assert.Equal(t, "INR", orders.got["currency"])
	assert.Equal(t, "SB-ABC", orders.got["receipt"])
	assert.Equal(t, map[string]string{"reservation": "r1"}, orders.got["notes"])
}

func TestClientFetchAndRefund(t *testing.T) {
	payments := &stubPayments{}
	c := razorpay.NewClientWith(testConfig, &stubOrders{}, payments, quiet)

	p, err := c.FetchPayment(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "pay_1", payments.fetched)
	assert.Equal(t, policies.ProviderPayment{
		ID: "pay_1", OrderID: "order_1", Amount: money.Money{Amount: 5000, Currency: "INR"}, Status: "captured", Method: "upi",
	}, p)

	_, err = c.FetchPayment(context.Background(), "")
	assert.True(t, errs.Is(err, errs.ErrValidationFailed))

	refund, err := c.Refund(context.Background(), "pay_1", money.Money{Amount: 2000, Currency: "INR"}, "venue closed")
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", refund.ID)
	assert.Equal(t, int64(2000), refund.Amount.Amount)
	assert.Equal(t, 2000, payments.refundAmount)
	assert.Equal(t, map[string]string{"reason": "venue closed"}, payments.refundData["notes"])

	_, err = c.Refund(context.Background(), "pay_1", money.Money{Amount: 100}, "")
	require.NoError(t, err)
	assert.NotNil(t, payments.refundData, "the SDK writes the amount into data")
	assert.NotContains(t, payments.refundData, "notes")
}

func TestClientMarksFailuresAsProviderErrors(t *testing.T) {
	c := razorpay.NewClientWith(testConfig, &stubOrders{err: errs.New("BAD_REQUEST_ERROR:The amount must be at least INR 1.00")}, &stubPayments{}, quiet)
	_, err := c.CreateOrder(context.Background(), money.Money{Amount: 10}, "r", nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrProviderError))
	assert.Contains(t, err.Error(), "BAD_REQUEST_ERROR")

	_, err = razorpay.NewClientWith(testConfig, &stubOrders{}, &stubPayments{err: errs.New("boom")}, quiet).
		Refund(context.Background(), "pay_1", money.Money{Amount: 1}, "")
	assert.True(t, errs.Is(err, errs.ErrProviderError))

	release := make(chan struct{})
	defer close(release)
	slow := razorpay.NewClientWith(testConfig, &stubOrders{}, &stubPayments{block: release}, quiet)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = slow.FetchPayment(ctx, "pay_1")
	assert.True(t, errs.Is(err, errs.ErrProviderError))
	assert.True(t, errs.Is(err, context.DeadlineExceeded))
}

func TestNewClient(t *testing.T) {
	_, err := razorpay.NewClient(razorpay.Config{KeyID: "only-id"}, nil)
	assert.Error(t, err)

	c, err := razorpay.NewClient(razorpay.Config{KeyID: "k", KeySecret: "s"}, quiet)
	require.NoError(t, err)
	assert.Equal(t, "k", c.KeyID())
}

func TestTimeoutSeconds(t *testing.T) {
	assert.Equal(t, int16(10), razorpay.TimeoutSeconds(10*time.Second))
	assert.Equal(t, int16(1), razorpay.TimeoutSeconds(200*time.Millisecond))
	assert.Equal(t, int16(3), razorpay.TimeoutSeconds(2500*time.Millisecond))
}

func TestClientSignatures(t *testing.T) {
	c := razorpay.NewClientWith(testConfig, nil, nil, quiet)

	sig := razorpay.Sign("key-secret", []byte("order_1|pay_1"))
	assert.Len(t, sig, 64)
	assert.True(t, c.VerifyPaymentSignature("order_1", "pay_1", sig))
	assert.False(t, c.VerifyPaymentSignature("order_1", "pay_2", sig))
	assert.False(t, c.VerifyPaymentSignature("", "pay_1", sig))
	assert.False(t, c.VerifyPaymentSignature("order_1", "pay_1", razorpay.Sign("other", []byte("order_1|pay_1"))))
	assert.False(t, c.VerifyPaymentSignature("order_1", "pay_1", ""))

	body := []byte(`{"event":"refund.processed"}`)
	assert.True(t, c.VerifyWebhookSignature(body, razorpay.Sign("wh-secret", body)))
	assert.False(t, c.VerifyWebhookSignature(body, razorpay.Sign("key-secret", body)))
	assert.False(t, c.VerifyWebhookSignature(body, ""))

	unset := razorpay.NewClientWith(razorpay.Config{KeyID: "k", KeySecret: "s"}, nil, nil, quiet)
	assert.False(t, unset.VerifyWebhookSignature(body, razorpay.Sign("", body)))
}

func TestFakeCheckoutFlow(t *testing.T) {
	ctx := context.Background()
	fake := razorpay.NewFake("key-secret", "wh-secret")

	order, err := fake.CreateOrder(ctx, money.Money{Amount: 5000}, "SB-1", nil)
	require.NoError(t, err)
	assert.Regexp(t, `^order_`, order.ID)
	assert.Equal(t, "INR", order.Amount.Currency)

	paymentID, sig, err := fake.Pay(order.ID, policies.ProviderStatusCaptured)
	require.NoError(t, err)
	assert.True(t, fake.VerifyPaymentSignature(order.ID, paymentID, sig))

	p, err := fake.FetchPayment(ctx, paymentID)
	require.NoError(t, err)
	assert.Equal(t, policies.ProviderStatusCaptured, p.Status)

	_, err = fake.Refund(ctx, paymentID, money.Money{Amount: 5000, Currency: "INR"}, "")
	require.NoError(t, err)
	p, err = fake.FetchPayment(ctx, paymentID)
	require.NoError(t, err)
	assert.Equal(t, policies.ProviderStatusRefunded, p.Status)

	_, err = fake.Refund(ctx, paymentID, money.Money{Amount: 1}, "")
	assert.True(t, errs.Is(err, errs.ErrProviderError), "refunded payments are not refundable again")

	_, _, err = fake.Pay("order_missing", policies.ProviderStatusCaptured)
	assert.True(t, errs.Is(err, errs.ErrProviderError))
}
