package uow

import (
	"context"

	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/space"
	"spacebook/internal/domain/user"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Spaces() space.Repository
	Reservations() reservation.Repository
	Payments() payment.Repository
	Users() user.Repository
	Inbox() Inbox

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Inbox remembers provider events that were already applied. Seen inserts the
// id and reports true when it was present before.
type Inbox interface {
	Seen(ctx context.Context, source, eventID string) (bool, error)
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}
