package policies

//go:generate mockgen -source=notifier_port.go -destination=mocks/notifier_mock.go -package=mocks

import (
	"context"
	"time"

	"spacebook/internal/domain/shared/money"
)

// ReservationNotice carries what the notification templates render.
type ReservationNotice struct {
	ReservationID string
	BookingCode   string
	UserID        string
	Email         string
	Name          string
	SpaceName     string
	Start         time.Time
	End           time.Time
	Total         money.Money
}

// Notifier sends transactional messages. Delivery is best-effort: callers log
// failures and never roll back state because of them.
type Notifier interface {
	BookingConfirmed(ctx context.Context, n ReservationNotice) error
	PaymentFailed(ctx context.Context, n ReservationNotice, reason string) error
	RefundProcessed(ctx context.Context, n ReservationNotice, amount money.Money, reason string) error
}
