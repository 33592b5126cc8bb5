package razorpay

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	rzp "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"spacebook/internal/app/policies"
	"spacebook/internal/domain/shared/money"
	"spacebook/internal/pkg/errs"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
}

// orderAPI and paymentAPI are the slices of the SDK resources the gateway
// calls. *resources.Order and *resources.Payment satisfy them.
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentAPI interface {
	Fetch(paymentID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Client adapts the Razorpay SDK to policies.PaymentGateway. Failures are
// marked errs.ErrProviderError.
type Client struct {
	cfg      Config
	orders   orderAPI
	payments paymentAPI
	logger   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errs.New("razorpay: key id and secret are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	sdk := rzp.NewClient(cfg.KeyID, cfg.KeySecret)
	sdk.SetTimeout(timeoutSeconds(cfg.Timeout))
	return newClient(cfg, sdk.Order, sdk.Payment, logger), nil
}

func newClient(cfg Config, orders orderAPI, payments paymentAPI, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, orders: orders, payments: payments, logger: logger}
}

// timeoutSeconds rounds up to whole seconds, the SDK's resolution.
func timeoutSeconds(d time.Duration) int16 {
	s := math.Ceil(d.Seconds())
	if s > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(s)
}

func (c *Client) KeyID() string { return c.cfg.KeyID }

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func (c *Client) CreateOrder(ctx context.Context, amount money.Money, receipt string, notes map[string]string) (policies.Order, error) {
	data := map[string]interface{}{
		"amount":   amount.Amount,
		"currency": currencyOf(amount),
	}
	if receipt != "" {
		data["receipt"] = receipt
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}
	var out orderResponse
	err := c.call(ctx, "create order", &out, func() (map[string]interface{}, error) {
		return c.orders.Create(data, nil)
	})
	if err != nil {
		return policies.Order{}, err
	}
	return policies.Order{
		ID:      out.ID,
		Amount:  money.Money{Amount: out.Amount, Currency: out.Currency},
		Receipt: out.Receipt,
		Status:  out.Status,
	}, nil
}

type paymentResponse struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	ErrorDescription string `json:"error_description"`
}

func (c *Client) FetchPayment(ctx context.Context, paymentID string) (policies.ProviderPayment, error) {
	if paymentID == "" {
		return policies.ProviderPayment{}, errs.Field("providerPaymentId", "is required")
	}
	var out paymentResponse
	err := c.call(ctx, "fetch payment", &out, func() (map[string]interface{}, error) {
		return c.payments.Fetch(paymentID, nil, nil)
	})
	if err != nil {
		return policies.ProviderPayment{}, err
	}
	return policies.ProviderPayment{
		ID:               out.ID,
		OrderID:          out.OrderID,
		Amount:           money.Money{Amount: out.Amount, Currency: out.Currency},
		Status:           out.Status,
		Method:           out.Method,
		ErrorDescription: out.ErrorDescription,
	}, nil
}

type refundResponse struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
}

func (c *Client) Refund(ctx context.Context, paymentID string, amount money.Money, reason string) (policies.Refund, error) {
	if paymentID == "" {
		return policies.Refund{}, errs.Field("providerPaymentId", "is required")
	}
	// The SDK writes the amount into data, so it must not be nil.
	data := map[string]interface{}{}
	if reason != "" {
		data["notes"] = map[string]string{"reason": reason}
	}
	var out refundResponse
	err := c.call(ctx, "refund payment", &out, func() (map[string]interface{}, error) {
		return c.payments.Refund(paymentID, int(amount.Amount), data, nil)
	})
	if err != nil {
		return policies.Refund{}, err
	}
	return policies.Refund{
		ID:        out.ID,
		PaymentID: out.PaymentID,
		Amount:    money.Money{Amount: out.Amount, Currency: out.Currency},
		Status:    out.Status,
	}, nil
}

func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	attrs := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return utils.VerifyPaymentSignature(attrs, signature, c.cfg.KeySecret)
}

func (c *Client) VerifyWebhookSignature(payload []byte, signature string) bool {
	if c.cfg.WebhookSecret == "" || signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(payload), signature, c.cfg.WebhookSecret)
}

type sdkResult struct {
	body map[string]interface{}
	err  error
}

// call runs a blocking SDK request and decodes its map response into out.
// The SDK takes no context, so ctx and the configured timeout bound the wait;
// the request itself is bounded by the SDK's own HTTP timeout.
func (c *Client) call(ctx context.Context, op string, out any, fn func() (map[string]interface{}, error)) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	started := time.Now()
	done := make(chan sdkResult, 1)
	go func() {
		body, err := fn()
		done <- sdkResult{body: body, err: err}
	}()

	var res sdkResult
	select {
	case <-ctx.Done():
		err := errs.Mark(errs.Wrapf(ctx.Err(), "razorpay: %s timed out", op), errs.ErrProviderError)
		c.logger.ErrorContext(ctx, "razorpay request failed", "op", op, "error", err)
		return err
	case res = <-done:
	}
	c.logger.DebugContext(ctx, "razorpay request", "op", op, "duration", time.Since(started))

	if res.err != nil {
		err := errs.Mark(errs.Wrapf(res.err, "razorpay: %s", op), errs.ErrProviderError)
		c.logger.WarnContext(ctx, "razorpay returned error", "op", op, "error", err)
		return err
	}
	raw, err := json.Marshal(res.body)
	if err != nil {
		return errs.Mark(errs.Wrapf(err, "razorpay: %s: encode response", op), errs.ErrProviderError)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errs.Mark(errs.Wrapf(err, "razorpay: %s: decode response", op), errs.ErrProviderError)
	}
	return nil
}

func currencyOf(m money.Money) string {
	if m.Currency == "" {
		return money.DefaultCurrency
	}
	return m.Currency
}

var _ policies.PaymentGateway = (*Client)(nil)
