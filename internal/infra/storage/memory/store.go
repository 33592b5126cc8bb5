package memory

import (
	"sync"
	"time"

	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/shared/events"
	"spacebook/internal/domain/space"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/pkg/errs"
)

// ErrVersionConflict is returned when a save is based on a stale copy.
var ErrVersionConflict = errs.Mark(
	errs.Mark(errs.New("memory: aggregate was modified concurrently"), errs.ErrConcurrentUpdate),
	errs.ErrRetryable,
)

// Store holds every aggregate of the in-memory driver. Repositories hand out
// clones, so callers never share state with the store or with each other.
type Store struct {
	mu           sync.RWMutex
	spaces       map[space.SpaceID]*space.Space
	reservations map[reservation.ReservationID]*reservation.Reservation
	bookingCodes map[string]reservation.ReservationID
	payments     map[payment.ID]*payment.Payment
	users        map[domainuser.ID]*domainuser.User
	emails       map[string]domainuser.ID
	inbox        map[string]struct{}

	guards *keyedMutex
}

func NewStore() *Store {
	return &Store{
		spaces:       make(map[space.SpaceID]*space.Space),
		reservations: make(map[reservation.ReservationID]*reservation.Reservation),
		bookingCodes: make(map[string]reservation.ReservationID),
		payments:     make(map[payment.ID]*payment.Payment),
		users:        make(map[domainuser.ID]*domainuser.User),
		emails:       make(map[string]domainuser.ID),
		inbox:        make(map[string]struct{}),
		guards:       newKeyedMutex(),
	}
}

// Users exposes the user repository outside of any unit of work.
func (s *Store) Users() domainuser.Repository {
	return &userRepo{store: s}
}

// Spaces exposes the space repository outside of any unit of work, used by
// fixture loading.
func (s *Store) Spaces() space.Repository {
	return &spaceRepo{store: s}
}

func cloneSpace(s *space.Space) *space.Space {
	if s == nil {
		return nil
	}
	c := *s
	c.StaffIDs = append([]string(nil), s.StaffIDs...)
	c.Pricing = s.Pricing.Clone()
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneReservation(r *reservation.Reservation) *reservation.Reservation {
	if r == nil {
		return nil
	}
	c := *r
	c.Pricing.Breakdown = append(c.Pricing.Breakdown[:0:0], r.Pricing.Breakdown...)
	c.ConfirmedAt = cloneTime(r.ConfirmedAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	c.CheckedInAt = cloneTime(r.CheckedInAt)
	c.CheckedOutAt = cloneTime(r.CheckedOutAt)
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func clonePayment(p *payment.Payment) *payment.Payment {
	if p == nil {
		return nil
	}
	c := *p
	c.CapturedAt = cloneTime(p.CapturedAt)
	c.RefundedAt = cloneTime(p.RefundedAt)
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneUser(u *domainuser.User) *domainuser.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = append([]domainuser.Role(nil), u.Roles...)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
