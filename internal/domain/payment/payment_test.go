package payment_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/shared/money"
	"spacebook/internal/pkg/errs"
)

var now = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func newPayment(t *testing.T) *payment.Payment {
	t.Helper()
	p, err := payment.New(payment.CreateParams{
		ID:            "pay-row-1",
		ReservationID: "res-1",
		UserID:        "user-1",
		OrderID:       "order_1",
		Amount:        money.Must(150000, "INR"),
		Now:           now,
	})
	require.NoError(t, err)
	return p
}

func TestNewRequiresOrderAndAmount(t *testing.T) {
	_, err := payment.New(payment.CreateParams{Amount: money.Must(1, "INR")})
	assert.Contains(t, errs.FieldDetails(err), "orderId")

	_, err = payment.New(payment.CreateParams{OrderID: "order_1", Amount: money.Zero("INR")})
	assert.Contains(t, errs.FieldDetails(err), "amount")
}

func TestCaptureIsIdempotent(t *testing.T) {
	p := newPayment(t)
	p.Drain()

	assert.True(t, p.MarkAuthorized("pay_1", now))
	assert.Equal(t, payment.StatusAuthorized, p.Status)

	assert.True(t, p.MarkCaptured("pay_1", now))
	assert.Equal(t, payment.StatusCompleted, p.Status)
	require.NotNil(t, p.CapturedAt)
	assert.Len(t, p.Drain(), 1)

	assert.False(t, p.MarkCaptured("pay_1", now))
	assert.False(t, p.MarkFailed("pay_1", "late", now), "a failure never downgrades a capture")
	assert.False(t, p.MarkAuthorized("pay_1", now))
	assert.Equal(t, payment.StatusCompleted, p.Status)
}

func TestFailedAttemptCanStillCapture(t *testing.T) {
	p := newPayment(t)
	assert.True(t, p.MarkFailed("pay_1", "card declined", now))
	assert.Equal(t, "card declined", p.FailureReason)
	assert.False(t, p.MarkFailed("pay_1", "again", now))

	assert.True(t, p.MarkCaptured("pay_2", now))
	assert.Empty(t, p.FailureReason)
	assert.Equal(t, "pay_2", p.PaymentID)
}

func TestRefund(t *testing.T) {
	p := newPayment(t)
	_, err := p.MarkRefunded("rfnd_1", money.Must(100, "INR"), "", now)
	assert.True(t, errs.Is(err, errs.ErrInvalidStateTransition))

	require.True(t, p.MarkCaptured("pay_1", now))

	_, err = p.MarkRefunded("rfnd_1", money.Must(150001, "INR"), "", now)
	assert.ErrorIs(t, err, payment.ErrRefundExceedsAmount)
	assert.True(t, errs.Is(err, errs.ErrValidationFailed))
	assert.Error(t, p.CheckRefundAmount(money.Must(100, "USD")))
	assert.Error(t, p.CheckRefundAmount(money.Zero("INR")))

	changed, err := p.MarkRefunded("rfnd_1", money.Must(150000, "INR"), "venue closed", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, payment.StatusRefunded, p.Status)
	assert.Equal(t, "rfnd_1", p.RefundID)

	changed, err = p.MarkRefunded("rfnd_1", money.Must(150000, "INR"), "venue closed", now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, p.MarkCaptured("pay_1", now), "a refunded payment stays refunded")
}

func TestRefundClaim(t *testing.T) {
	p := newPayment(t)
	assert.True(t, errs.Is(p.ClaimRefund(money.Must(100, "INR"), "", now), errs.ErrInvalidStateTransition))
	require.True(t, p.MarkCaptured("pay_1", now))

	assert.ErrorIs(t, p.ClaimRefund(money.Must(150001, "INR"), "", now), payment.ErrRefundExceedsAmount)
	assert.Equal(t, payment.StatusCompleted, p.Status)

	require.NoError(t, p.ClaimRefund(money.Must(100000, "INR"), "venue closed", now))
	assert.Equal(t, payment.StatusRefundPending, p.Status)
	err := p.ClaimRefund(money.Must(100000, "INR"), "again", now)
	assert.ErrorIs(t, err, payment.ErrRefundInProgress)
	assert.True(t, errs.Is(err, errs.ErrConflict))
	assert.False(t, p.MarkCaptured("pay_1", now))

	assert.True(t, p.ReleaseRefund(now))
	assert.Equal(t, payment.StatusCompleted, p.Status)
	assert.False(t, p.ReleaseRefund(now))

	require.NoError(t, p.ClaimRefund(money.Must(100000, "INR"), "venue closed", now))
	changed, err := p.MarkRefunded("rfnd_1", money.Must(100000, "INR"), "venue closed", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, payment.StatusRefunded, p.Status)
	assert.True(t, errs.Is(p.ClaimRefund(money.Must(1, "INR"), "", now), errs.ErrInvalidStateTransition))
}

func TestCancel(t *testing.T) {
	p := newPayment(t)
	assert.True(t, p.Cancel(now))
	assert.Equal(t, payment.StatusCancelled, p.Status)

	captured := newPayment(t)
	captured.MarkCaptured("pay_1", now)
	assert.False(t, captured.Cancel(now))
}
