package notify

import (
	"context"
	"log/slog"
	"time"

	"spacebook/internal/app/policies"
	"spacebook/internal/domain/shared/money"
	"spacebook/internal/pkg/clock"
	"spacebook/internal/pkg/errs"
)

// ReminderLead is how long before the start a reminder goes out.
const ReminderLead = 24 * time.Hour

// Dispatcher implements policies.Notifier by queueing email jobs.
type Dispatcher struct {
	Scheduler Scheduler
	Clock     clock.Clock
	Logger    *slog.Logger
}

func (d *Dispatcher) BookingConfirmed(ctx context.Context, n policies.ReservationNotice) error {
	if err := d.enqueue(ctx, Job{Kind: KindBookingConfirmed, Notice: n}, time.Time{}); err != nil {
		return err
	}
	remindAt := n.Start.Add(-ReminderLead)
	if remindAt.After(clock.Or(d.Clock).Now()) {
		if err := d.enqueue(ctx, Job{Kind: KindBookingReminder, Notice: n}, remindAt); err != nil {
			d.logger().WarnContext(ctx, "reminder not scheduled", "reservation_id", n.ReservationID, "error", err)
		}
	}
	return nil
}

func (d *Dispatcher) PaymentFailed(ctx context.Context, n policies.ReservationNotice, reason string) error {
	return d.enqueue(ctx, Job{Kind: KindPaymentFailed, Notice: n, Reason: reason}, time.Time{})
}

func (d *Dispatcher) RefundProcessed(ctx context.Context, n policies.ReservationNotice, amount money.Money, reason string) error {
	return d.enqueue(ctx, Job{Kind: KindRefundProcessed, Notice: n, Amount: amount, Reason: reason}, time.Time{})
}

func (d *Dispatcher) enqueue(ctx context.Context, job Job, runAt time.Time) error {
	if d.Scheduler == nil {
		return errs.New("notify: scheduler not configured")
	}
	if job.Notice.Email == "" {
		d.logger().WarnContext(ctx, "notification skipped, no recipient", "kind", job.Kind, "reservation_id", job.Notice.ReservationID)
		return nil
	}
	if err := d.Scheduler.Schedule(ctx, TaskSendEmail, job, runAt); err != nil {
		return errs.Wrapf(err, "notify: enqueue %s", job.Kind)
	}
	d.logger().InfoContext(ctx, "notification queued", "kind", job.Kind, "reservation_id", job.Notice.ReservationID)
	return nil
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

var _ policies.Notifier = (*Dispatcher)(nil)
