package webhook

import (
	"encoding/json"
	"strings"
	"time"

	"spacebook/internal/pkg/errs"
)

var ErrMalformedPayload = errs.Mark(errs.New("webhook: malformed payload"), errs.ErrValidationFailed)

const (
	TypePaymentCaptured   = "payment.captured"
	TypePaymentFailed     = "payment.failed"
	TypePaymentAuthorized = "payment.authorized"
	TypeRefundProcessed   = "refund.processed"
	TypeOrderPaid         = "order.paid"
)

// Event is the closed set of provider payloads the reconciliation handler
// understands. Anything else decodes to UnrecognizedEvent.
type Event interface {
	Type() string
	Summary() PayloadSummary
	isEvent()
}

type PaymentCaptured struct {
	PaymentID string
	OrderID   string
	Amount    int64
	Currency  string
	Method    string
}

type PaymentFailed struct {
	PaymentID string
	OrderID   string
	Amount    int64
	Currency  string
	Reason    string
}

type PaymentAuthorized struct {
	PaymentID string
	OrderID   string
	Amount    int64
	Currency  string
}

type RefundProcessed struct {
	RefundID  string
	PaymentID string
	Amount    int64
	Currency  string
	Reason    string
}

type OrderPaid struct {
	OrderID    string
	PaymentID  string
	AmountPaid int64
	Currency   string
}

type UnrecognizedEvent struct {
	EventType string
}

func (PaymentCaptured) Type() string     { return TypePaymentCaptured }
func (PaymentFailed) Type() string       { return TypePaymentFailed }
func (PaymentAuthorized) Type() string   { return TypePaymentAuthorized }
func (RefundProcessed) Type() string     { return TypeRefundProcessed }
func (OrderPaid) Type() string           { return TypeOrderPaid }
func (e UnrecognizedEvent) Type() string { return e.EventType }

func (PaymentCaptured) isEvent()   {}
func (PaymentFailed) isEvent()     {}
func (PaymentAuthorized) isEvent() {}
func (RefundProcessed) isEvent()   {}
func (OrderPaid) isEvent()         {}
func (UnrecognizedEvent) isEvent() {}

func (e PaymentCaptured) Summary() PayloadSummary {
	return PayloadSummary{EntityID: e.PaymentID, PaymentID: e.PaymentID, OrderID: e.OrderID, Amount: e.Amount, Currency: e.Currency, ProviderStatus: "captured"}
}

func (e PaymentFailed) Summary() PayloadSummary {
	return PayloadSummary{EntityID: e.PaymentID, PaymentID: e.PaymentID, OrderID: e.OrderID, Amount: e.Amount, Currency: e.Currency, ProviderStatus: "failed"}
}

func (e PaymentAuthorized) Summary() PayloadSummary {
	return PayloadSummary{EntityID: e.PaymentID, PaymentID: e.PaymentID, OrderID: e.OrderID, Amount: e.Amount, Currency: e.Currency, ProviderStatus: "authorized"}
}

func (e RefundProcessed) Summary() PayloadSummary {
	return PayloadSummary{EntityID: e.RefundID, PaymentID: e.PaymentID, RefundID: e.RefundID, Amount: e.Amount, Currency: e.Currency, ProviderStatus: "processed"}
}

func (e OrderPaid) Summary() PayloadSummary {
	return PayloadSummary{EntityID: e.OrderID, PaymentID: e.PaymentID, OrderID: e.OrderID, Amount: e.AmountPaid, Currency: e.Currency, ProviderStatus: "paid"}
}

func (e UnrecognizedEvent) Summary() PayloadSummary {
	return PayloadSummary{}
}

// Envelope is the delivery wrapper around every event.
type Envelope struct {
	Event     Event
	AccountID string
	CreatedAt time.Time
}

type rawEnvelope struct {
	Entity    string   `json:"entity"`
	AccountID string   `json:"account_id"`
	Event     string   `json:"event"`
	Contains  []string `json:"contains"`
	CreatedAt int64    `json:"created_at"`
	Payload   struct {
		Payment *struct {
			Entity rawPayment `json:"entity"`
		} `json:"payment"`
		Refund *struct {
			Entity rawRefund `json:"entity"`
		} `json:"refund"`
		Order *struct {
			Entity rawOrder `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type rawPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

type rawRefund struct {
	ID        string            `json:"id"`
	PaymentID string            `json:"payment_id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Notes     map[string]string `json:"notes"`
}

type rawOrder struct {
	ID         string `json:"id"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
}

// Decode parses a raw delivery into one of the known event shapes. Known event
// types missing their entity fail with ErrMalformedPayload.
func Decode(raw []byte) (Envelope, error) {
	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, errs.Wrapf(ErrMalformedPayload, "webhook: decode envelope: %v", err)
	}
	eventType := strings.TrimSpace(env.Event)
	if eventType == "" {
		return Envelope{}, errs.Wrap(ErrMalformedPayload, "webhook: event type missing")
	}
	out := Envelope{AccountID: env.AccountID}
	if env.CreatedAt > 0 {
		out.CreatedAt = time.Unix(env.CreatedAt, 0).UTC()
	}
	p := env.Payload
	switch eventType {
	case TypePaymentCaptured, TypePaymentFailed, TypePaymentAuthorized:
		if p.Payment == nil || p.Payment.Entity.ID == "" {
			return Envelope{}, errs.Wrapf(ErrMalformedPayload, "webhook: %s without payment entity", eventType)
		}
		pay := p.Payment.Entity
		switch eventType {
		case TypePaymentCaptured:
			out.Event = PaymentCaptured{PaymentID: pay.ID, OrderID: pay.OrderID, Amount: pay.Amount, Currency: pay.Currency, Method: pay.Method}
		case TypePaymentFailed:
			reason := pay.ErrorDescription
			if reason == "" {
				reason = pay.ErrorCode
			}
			out.Event = PaymentFailed{PaymentID: pay.ID, OrderID: pay.OrderID, Amount: pay.Amount, Currency: pay.Currency, Reason: reason}
		default:
			out.Event = PaymentAuthorized{PaymentID: pay.ID, OrderID: pay.OrderID, Amount: pay.Amount, Currency: pay.Currency}
		}
	case TypeRefundProcessed:
		if p.Refund == nil || p.Refund.Entity.ID == "" {
			return Envelope{}, errs.Wrap(ErrMalformedPayload, "webhook: refund.processed without refund entity")
		}
		ref := p.Refund.Entity
		paymentID := ref.PaymentID
		if paymentID == "" && p.Payment != nil {
			paymentID = p.Payment.Entity.ID
		}
		out.Event = RefundProcessed{RefundID: ref.ID, PaymentID: paymentID, Amount: ref.Amount, Currency: ref.Currency, Reason: ref.Notes["reason"]}
	case TypeOrderPaid:
		if p.Order == nil || p.Order.Entity.ID == "" {
			return Envelope{}, errs.Wrap(ErrMalformedPayload, "webhook: order.paid without order entity")
		}
		ord := p.Order.Entity
		var paymentID string
		if p.Payment != nil {
			paymentID = p.Payment.Entity.ID
		}
		out.Event = OrderPaid{OrderID: ord.ID, PaymentID: paymentID, AmountPaid: ord.AmountPaid, Currency: ord.Currency}
	default:
		out.Event = UnrecognizedEvent{EventType: eventType}
	}
	return out, nil
}

// PeekType extracts the event type without validating the payload, so that
// deliveries with a bad signature can still be labelled in the audit log.
func PeekType(raw []byte) string {
	var head struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return ""
	}
	return strings.TrimSpace(head.Event)
}
