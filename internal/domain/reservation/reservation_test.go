package reservation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacebook/internal/domain/pricing"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/shared/money"
	"spacebook/internal/domain/shared/timerange"
	"spacebook/internal/pkg/errs"
)

var t0 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

var (
	customer = reservation.Actor{ID: "user-1"}
	owner    = reservation.Actor{ID: "owner-1", SpaceOwner: true}
	staff    = reservation.Actor{ID: "staff-1", SpaceStaff: true}
	stranger = reservation.Actor{ID: "someone"}
)

func newReservation(t *testing.T, total int64) *reservation.Reservation {
	t.Helper()
	r, err := reservation.New(reservation.CreateParams{
		ID:          "res-1",
		SpaceID:     "space-1",
		UserID:      customer.ID,
		Range:       timerange.Range{Start: t0, End: t0.Add(2 * time.Hour)},
		Quote:       pricing.Quote{TotalPrice: money.Money{Amount: total, Currency: "INR"}},
		BookingCode: "SB-TEST-0001",
		Now:         t0,
	})
	require.NoError(t, err)
	return r
}

func eventNames(r *reservation.Reservation) []string {
	var names []string
	for _, ev := range r.Drain() {
		names = append(names, ev.EventName())
	}
	return names
}

func TestNewChoosesInitialStatus(t *testing.T) {
	paid := newReservation(t, 10000)
	assert.Equal(t, reservation.StatusPendingPayment, paid.Status)
	assert.Equal(t, reservation.PaymentPending, paid.PaymentStatus)
	assert.Equal(t, []string{"reservation.created"}, eventNames(paid))

	free := newReservation(t, 0)
	assert.Equal(t, reservation.StatusPendingApproval, free.Status)
	assert.Equal(t, reservation.PaymentNotRequired, free.PaymentStatus)
}

func TestNewRejectsInvalidInput(t *testing.T) {
	_, err := reservation.New(reservation.CreateParams{Range: timerange.Range{Start: t0, End: t0.Add(time.Hour)}})
	assert.True(t, errs.Is(err, errs.ErrValidationFailed))

	_, err = reservation.New(reservation.CreateParams{UserID: "u", Range: timerange.Range{Start: t0, End: t0}})
	assert.True(t, errs.Is(err, errs.ErrInvalidInterval))
}

func TestApproveAndReject(t *testing.T) {
	r := newReservation(t, 0)
	assert.ErrorIs(t, r.Approve(staff, t0), reservation.ErrNotAllowed)
	require.NoError(t, r.Approve(owner, t0.Add(time.Minute)))
	assert.Equal(t, reservation.StatusConfirmed, r.Status)
	require.NotNil(t, r.ConfirmedAt)
	assert.True(t, errs.Is(r.Reject(owner, "late", t0), errs.ErrInvalidStateTransition))

	r = newReservation(t, 0)
	require.NoError(t, r.Reject(owner, "closed that day", t0))
	assert.Equal(t, reservation.StatusRejected, r.Status)
	assert.Equal(t, "closed that day", r.RejectionReason)
	assert.True(t, r.Status.IsTerminal())

	paid := newReservation(t, 500)
	assert.True(t, errs.Is(paid.Approve(owner, t0), errs.ErrInvalidStateTransition))
}

func TestCancelGuards(t *testing.T) {
	r := newReservation(t, 500)
	assert.ErrorIs(t, r.Cancel(owner, "", t0), reservation.ErrNotAllowed)
	require.NoError(t, r.Cancel(customer, "plans changed", t0))
	assert.Equal(t, reservation.StatusCancelled, r.Status)
	assert.False(t, r.Status.IsActive())

	checkedIn := newReservation(t, 500)
	_, err := checkedIn.ConfirmPayment("pay_1", t0)
	require.NoError(t, err)
	require.NoError(t, checkedIn.CheckIn(staff, t0))
	err = checkedIn.Cancel(customer, "", t0)
	assert.True(t, errs.Is(err, errs.ErrInvalidStateTransition))
	assert.Equal(t, reservation.StatusCheckedIn, checkedIn.Status)

	require.NoError(t, checkedIn.CheckOut(owner, t0.Add(2*time.Hour)))
	err = checkedIn.Cancel(customer, "", t0)
	assert.True(t, errs.Is(err, errs.ErrInvalidStateTransition))
	assert.Equal(t, reservation.StatusCompleted, checkedIn.Status)
}

func TestStaffTransitions(t *testing.T) {
	r := newReservation(t, 500)
	assert.True(t, errs.Is(r.CheckIn(staff, t0), errs.ErrInvalidStateTransition))

	_, err := r.ConfirmPayment("pay_1", t0)
	require.NoError(t, err)
	assert.ErrorIs(t, r.CheckIn(stranger, t0), reservation.ErrNotAllowed)
	assert.ErrorIs(t, r.CheckIn(customer, t0), reservation.ErrNotAllowed)
	assert.True(t, errs.Is(r.CheckOut(staff, t0), errs.ErrInvalidStateTransition))

	noShow := newReservation(t, 500)
	_, err = noShow.ConfirmPayment("pay_2", t0)
	require.NoError(t, err)
	require.NoError(t, noShow.MarkNoShow(staff, t0))
	assert.Equal(t, reservation.StatusNoShow, noShow.Status)
	assert.False(t, noShow.Status.IsActive())
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	r := newReservation(t, 500)
	r.Drain()

	changed, err := r.ConfirmPayment("pay_1", t0)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, reservation.StatusConfirmed, r.Status)
	assert.Equal(t, reservation.PaymentCompleted, r.PaymentStatus)
	assert.Equal(t, "pay_1", r.RazorpayPaymentID)
	assert.Equal(t, []string{"reservation.confirmed"}, eventNames(r))

	changed, err = r.ConfirmPayment("pay_1", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, eventNames(r))

	cancelled := newReservation(t, 500)
	require.NoError(t, cancelled.Cancel(customer, "", t0))
	_, err = cancelled.ConfirmPayment("pay_3", t0)
	assert.True(t, errs.Is(err, errs.ErrInvalidStateTransition))
}

func TestPaymentFailureKeepsReservationPayable(t *testing.T) {
	r := newReservation(t, 500)
	assert.True(t, r.RecordPaymentFailure("card declined", t0))
	assert.Equal(t, reservation.StatusPendingPayment, r.Status)
	assert.Equal(t, reservation.PaymentFailed, r.PaymentStatus)
	assert.False(t, r.RecordPaymentFailure("card declined", t0), "a repeated failure is a no-op")

	r.RetryPayment(t0)
	assert.Equal(t, reservation.PaymentPending, r.PaymentStatus)

	_, err := r.ConfirmPayment("pay_1", t0)
	require.NoError(t, err)
	assert.False(t, r.RecordPaymentFailure("late failure", t0))
	assert.Equal(t, reservation.PaymentCompleted, r.PaymentStatus)
}

func TestMarkRefunded(t *testing.T) {
	r := newReservation(t, 500)
	_, err := r.ConfirmPayment("pay_1", t0)
	require.NoError(t, err)
	r.Drain()

	amount := money.Money{Amount: 500, Currency: "INR"}
	changed, err := r.MarkRefunded(amount, "venue closed", t0)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, reservation.StatusCancelled, r.Status)
	assert.Equal(t, reservation.PaymentRefunded, r.PaymentStatus)
	assert.Equal(t, []string{"reservation.cancelled", "reservation.refunded"}, eventNames(r))

	changed, err = r.MarkRefunded(amount, "again", t0)
	require.NoError(t, err)
	assert.False(t, changed)

	done := newReservation(t, 500)
	_, err = done.ConfirmPayment("pay_2", t0)
	require.NoError(t, err)
	require.NoError(t, done.CheckIn(owner, t0))
	_, err = done.MarkRefunded(amount, "", t0)
	assert.True(t, errs.Is(err, errs.ErrInvalidStateTransition))
}

func TestConflictsIgnoreInactiveReservations(t *testing.T) {
	window := timerange.Range{Start: t0, End: t0.Add(2 * time.Hour)}
	mk := func(id string, start, end time.Time, status reservation.Status) *reservation.Reservation {
		return &reservation.Reservation{ID: reservation.ReservationID(id), Range: timerange.Range{Start: start, End: end}, Status: status}
	}
	existing := []*reservation.Reservation{
		mk("overlap", t0.Add(time.Hour), t0.Add(3*time.Hour), reservation.StatusConfirmed),
		mk("pending", t0.Add(-time.Hour), t0.Add(30*time.Minute), reservation.StatusPendingPayment),
		mk("touching-end", t0.Add(2*time.Hour), t0.Add(3*time.Hour), reservation.StatusConfirmed),
		mk("touching-start", t0.Add(-time.Hour), t0, reservation.StatusPendingApproval),
		mk("cancelled", t0, t0.Add(time.Hour), reservation.StatusCancelled),
		mk("rejected", t0, t0.Add(time.Hour), reservation.StatusRejected),
		mk("no-show", t0, t0.Add(time.Hour), reservation.StatusNoShow),
	}
	got := reservation.Conflicts(existing, window)
	var ids []reservation.ReservationID
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []reservation.ReservationID{"overlap", "pending"}, ids)
}

func TestNewBookingCode(t *testing.T) {
	a := reservation.NewBookingCode(t0)
	b := reservation.NewBookingCode(t0)
	assert.Regexp(t, `^SB-[0-9A-Z]+-[0-9A-Z]{4}$`, a)
	assert.Len(t, b, len(a))
}
