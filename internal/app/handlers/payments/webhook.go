package payments

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/dto"
	"spacebook/internal/app/handlers/support"
	"spacebook/internal/app/middleware"
	"spacebook/internal/app/policies"
	"spacebook/internal/app/uow"
	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/shared/money"
	"spacebook/internal/domain/webhook"
	"spacebook/internal/pkg/clock"
	"spacebook/internal/pkg/errs"
)

const (
	handleWebhookKey = "payments.webhook"
	inboxSource      = "razorpay"
	webhookAttempts  = 3

	AckProcessed = "processed"
	AckDuplicate = "duplicate"
	AckIgnored   = "ignored"
	AckFailed    = "failed"
)

var (
	ErrWebhookSignature = errs.Mark(errs.New("payments: webhook signature invalid"), errs.ErrSignatureInvalid)
	// errWebhookProcessing carries no taxonomy mark so the caller answers with
	// a generic failure and the provider redelivers.
	errWebhookProcessing = errs.New("payments: webhook processing failed")
)

type HandleWebhookCommand struct {
	Payload   []byte
	Signature string
	EventID   string
}

func (c HandleWebhookCommand) Key() string          { return handleWebhookKey }
func (c HandleWebhookCommand) SelfTransacted() bool { return true }

// WebhookHandler reconciles provider events. Every delivery is written to the
// audit log before anything else, outside of the unit that applies it, so the
// row survives a rolled back dispatch.
type WebhookHandler struct {
	UoWFactory uow.UoWFactory
	Logs       webhook.LogRepository
	Gateway    policies.PaymentGateway
	Reconciler *Reconciler
	Clock      clock.Clock
	Logger     *slog.Logger
}

func (h *WebhookHandler) Handle(ctx context.Context, cmd HandleWebhookCommand) (dto.WebhookAck, error) {
	if h.Logs == nil || h.Gateway == nil || h.Reconciler == nil {
		return dto.WebhookAck{}, errs.New("payments: webhook handler misconfigured")
	}
	log := logger(h.Logger)
	started := time.Now()
	verified := h.Gateway.VerifyWebhookSignature(cmd.Payload, cmd.Signature)
	entry := &webhook.LogEntry{
		ID:                uuid.NewString(),
		WebhookID:         cmd.EventID,
		EventType:         webhook.PeekType(cmd.Payload),
		SignatureVerified: verified,
		Status:            webhook.StatusReceived,
		ReceivedAt:        h.now(),
	}
	if err := h.Logs.Append(ctx, entry); err != nil {
		log.ErrorContext(ctx, "webhook audit append failed", "event_type", entry.EventType, "error", err)
		return dto.WebhookAck{}, errWebhookProcessing
	}
	if !verified {
		log.WarnContext(ctx, "webhook signature rejected", "log_id", entry.ID, "event_type", entry.EventType)
		h.finalize(ctx, entry, webhook.StatusFailed, "signature verification failed", started)
		return dto.WebhookAck{}, ErrWebhookSignature
	}

	env, err := webhook.Decode(cmd.Payload)
	if err != nil {
		log.WarnContext(ctx, "webhook payload rejected", "log_id", entry.ID, "error", err)
		h.finalize(ctx, entry, webhook.StatusFailed, err.Error(), started)
		return dto.WebhookAck{Status: AckFailed}, nil
	}
	entry.Summary = env.Event.Summary()

	key := cmd.EventID
	if key == "" {
		key = env.Event.Type() + ":" + entry.Summary.EntityID
	}
	outcome, err := h.process(ctx, key, env.Event)
	switch {
	case err == nil:
		h.finalize(ctx, entry, webhook.StatusProcessed, "", started)
		log.InfoContext(ctx, "webhook handled", "log_id", entry.ID, "event_type", entry.EventType, "outcome", outcome)
		return dto.WebhookAck{Status: outcome}, nil
	case settled(err):
		h.finalize(ctx, entry, webhook.StatusFailed, err.Error(), started)
		log.WarnContext(ctx, "webhook not applied", "log_id", entry.ID, "event_type", entry.EventType, "error", err)
		return dto.WebhookAck{Status: AckFailed}, nil
	default:
		h.finalize(ctx, entry, webhook.StatusFailed, err.Error(), started)
		log.ErrorContext(ctx, "webhook processing failed", "log_id", entry.ID, "event_type", entry.EventType, "error", err)
		return dto.WebhookAck{}, errWebhookProcessing
	}
}

// settled reports errors a redelivery cannot fix, such as an unknown payment.
func settled(err error) bool {
	if errs.Is(err, errs.ErrRetryable) || errs.Is(err, errs.ErrProviderError) {
		return false
	}
	return errs.Kind(err) != ""
}

func (h *WebhookHandler) process(ctx context.Context, key string, ev webhook.Event) (string, error) {
	var (
		outcome string
		err     error
	)
	for attempt := 0; attempt < webhookAttempts; attempt++ {
		outcome = AckProcessed
		err = support.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
			seen, err := unit.Inbox().Seen(ctx, inboxSource, key)
			if err != nil {
				return err
			}
			if seen {
				outcome = AckDuplicate
				return nil
			}
			handled, err := h.dispatch(ctx, unit, ev)
			if !handled {
				outcome = AckIgnored
			}
			return err
		})
		if err == nil || !errs.Is(err, errs.ErrRetryable) {
			return outcome, err
		}
	}
	return outcome, err
}

func (h *WebhookHandler) dispatch(ctx context.Context, unit uow.UnitOfWork, ev webhook.Event) (bool, error) {
	now := h.now()
	switch e := ev.(type) {
	case webhook.PaymentCaptured:
		p, err := locate(ctx, unit.Payments(), e.PaymentID, e.OrderID)
		if err != nil {
			return true, err
		}
		_, err = h.Reconciler.Captured(ctx, unit, p, e.PaymentID, now)
		return true, err
	case webhook.OrderPaid:
		p, err := locate(ctx, unit.Payments(), "", e.OrderID)
		if err != nil {
			return true, err
		}
		_, err = h.Reconciler.Captured(ctx, unit, p, e.PaymentID, now)
		return true, err
	case webhook.PaymentFailed:
		p, err := locate(ctx, unit.Payments(), e.PaymentID, e.OrderID)
		if err != nil {
			return true, err
		}
		_, err = h.Reconciler.Failed(ctx, unit, p, e.PaymentID, e.Reason, now)
		return true, err
	case webhook.PaymentAuthorized:
		p, err := locate(ctx, unit.Payments(), e.PaymentID, e.OrderID)
		if err != nil {
			return true, err
		}
		return true, h.Reconciler.Authorized(ctx, unit, p, e.PaymentID, now)
	case webhook.RefundProcessed:
		p, err := locate(ctx, unit.Payments(), e.PaymentID, "")
		if err != nil {
			return true, err
		}
		amount := money.Money{Amount: e.Amount, Currency: e.Currency}
		if amount.Amount <= 0 {
			amount = p.Amount
		}
		if amount.Currency == "" {
			amount.Currency = p.Amount.Currency
		}
		_, err = h.Reconciler.Refunded(ctx, unit, p, e.RefundID, amount, e.Reason, now)
		return true, err
	default:
		logger(h.Logger).InfoContext(ctx, "webhook event not handled", "event_type", ev.Type())
		return false, nil
	}
}

// locate finds the attempt by provider payment id, falling back to the order
// id for events that arrive before the payment was linked.
func locate(ctx context.Context, repo payment.Repository, paymentID, orderID string) (*payment.Payment, error) {
	if paymentID != "" {
		p, err := repo.ByPaymentID(ctx, paymentID)
		if err == nil {
			return p, nil
		}
		if !errs.Is(err, errs.ErrNotFound) || orderID == "" {
			return nil, err
		}
	}
	if orderID == "" {
		return nil, payment.ErrPaymentNotFound
	}
	return repo.ByOrderID(ctx, orderID)
}

func (h *WebhookHandler) finalize(ctx context.Context, entry *webhook.LogEntry, status webhook.Status, msg string, started time.Time) {
	if err := entry.Finalize(status, msg, time.Since(started), h.now()); err != nil {
		logger(h.Logger).ErrorContext(ctx, "webhook audit finalize rejected", "log_id", entry.ID, "error", err)
		return
	}
	if err := h.Logs.Finalize(ctx, entry); err != nil {
		logger(h.Logger).ErrorContext(ctx, "webhook audit finalize failed", "log_id", entry.ID, "error", err)
	}
}

func (h *WebhookHandler) now() time.Time {
	return clock.Or(h.Clock).Now()
}

var (
	_ commands.Handler[HandleWebhookCommand, dto.WebhookAck] = (*WebhookHandler)(nil)
	_ middleware.SelfTransacted                               = HandleWebhookCommand{}
)
