package memory

import (
	"context"
	"sync"

	"spacebook/internal/app/uow"
	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/space"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/pkg/errs"
)

var (
	ErrFactoryMisconfigured = errs.New("memory: unit of work factory misconfigured")
	ErrUnitClosed           = errs.New("memory: unit of work already finished")
)

// Factory starts units over a shared Store.
type Factory struct {
	Store *Store
}

// Begin starts a unit. Writes are applied to the store right away and undone
// on rollback unless another unit has since written over them. GuardSpace
// locks are held until the unit finishes.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{store: f.Store, readOnly: opts.ReadOnly, guards: make(map[space.SpaceID]func())}, nil
}

// Unit is a uow.UnitOfWork with an undo journal.
type Unit struct {
	store    *Store
	readOnly bool

	mu      sync.Mutex
	journal []func()
	guards  map[space.SpaceID]func()
	done    bool
}

func (u *Unit) Spaces() space.Repository             { return &spaceRepo{store: u.store, unit: u} }
func (u *Unit) Reservations() reservation.Repository { return &reservationRepo{store: u.store, unit: u} }
func (u *Unit) Payments() payment.Repository         { return &paymentRepo{store: u.store, unit: u} }
func (u *Unit) Users() domainuser.Repository         { return &userRepo{store: u.store, unit: u} }
func (u *Unit) Inbox() uow.Inbox                     { return &inbox{store: u.store, unit: u} }

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	u.journal = nil
	u.releaseGuards()
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return nil
	}
	u.done = true
	journal := u.journal
	u.journal = nil
	u.mu.Unlock()

	if len(journal) > 0 {
		u.store.mu.Lock()
		for i := len(journal) - 1; i >= 0; i-- {
			journal[i]()
		}
		u.store.mu.Unlock()
	}
	u.mu.Lock()
	u.releaseGuards()
	u.mu.Unlock()
	return nil
}

// record appends an undo action. Must be called with the store lock held.
func (u *Unit) record(undo func()) error {
	if u == nil {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return errs.New("memory: write in a read-only unit")
	}
	u.journal = append(u.journal, undo)
	return nil
}

// undoWrite puts prev back under id, or deletes id when prev is nil. It does
// nothing when the row no longer holds ours: a later committed write wins.
func undoWrite[K comparable, V any](rows map[K]*V, id K, ours, prev *V) bool {
	if rows[id] != ours {
		return false
	}
	if prev == nil {
		delete(rows, id)
	} else {
		rows[id] = prev
	}
	return true
}

func (u *Unit) guard(ctx context.Context, id space.SpaceID) error {
	u.mu.Lock()
	if _, held := u.guards[id]; held {
		u.mu.Unlock()
		return nil
	}
	u.mu.Unlock()
	release, err := u.store.guards.lock(ctx, string(id))
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		release()
		return ErrUnitClosed
	}
	u.guards[id] = release
	return nil
}

func (u *Unit) releaseGuards() {
	for id, release := range u.guards {
		release()
		delete(u.guards, id)
	}
}

var _ uow.UoWFactory = Factory{}
