package memory

import (
	"context"
	"sort"

	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/shared/timerange"
	"spacebook/internal/domain/space"
)

type reservationRepo struct {
	store *Store
	unit  *Unit
}

func (r *reservationRepo) ByID(ctx context.Context, id reservation.ReservationID) (*reservation.Reservation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	res, ok := r.store.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	return cloneReservation(res), nil
}

func (r *reservationRepo) ByOrderID(ctx context.Context, orderID string) (*reservation.Reservation, error) {
	if orderID == "" {
		return nil, reservation.ErrReservationNotFound
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, res := range r.store.reservations {
		if res.RazorpayOrderID == orderID {
			return cloneReservation(res), nil
		}
	}
	return nil, reservation.ErrReservationNotFound
}

func (r *reservationRepo) Insert(ctx context.Context, res *reservation.Reservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, taken := r.store.bookingCodes[res.BookingCode]; taken {
		return reservation.ErrDuplicateBookingCode
	}
	if _, exists := r.store.reservations[res.ID]; exists {
		return reservation.ErrReservationExists
	}
	stored := cloneReservation(res)
	stored.Version = 1
	if err := r.unit.record(func() {
		if undoWrite(r.store.reservations, res.ID, stored, nil) {
			delete(r.store.bookingCodes, res.BookingCode)
		}
	}); err != nil {
		return err
	}
	res.Version = 1
	r.store.reservations[res.ID] = stored
	r.store.bookingCodes[res.BookingCode] = res.ID
	return nil
}

func (r *reservationRepo) Save(ctx context.Context, res *reservation.Reservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	prev, ok := r.store.reservations[res.ID]
	if !ok {
		return reservation.ErrReservationNotFound
	}
	if prev.Version != res.Version {
		return ErrVersionConflict
	}
	stored := cloneReservation(res)
	stored.Version++
	if err := r.unit.record(func() { undoWrite(r.store.reservations, res.ID, stored, prev) }); err != nil {
		return err
	}
	res.Version++
	r.store.reservations[res.ID] = stored
	return nil
}

func (r *reservationRepo) FindConflicts(ctx context.Context, spaceID space.SpaceID, window timerange.Range) ([]*reservation.Reservation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*reservation.Reservation
	for _, res := range r.store.reservations {
		if res.SpaceID != spaceID || !res.Status.IsActive() || !res.Range.Overlaps(window) {
			continue
		}
		out = append(out, cloneReservation(res))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start.Before(out[j].Range.Start) })
	return out, nil
}

func (r *reservationRepo) ListByUser(ctx context.Context, userID string) ([]*reservation.Reservation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := []*reservation.Reservation{}
	for _, res := range r.store.reservations {
		if res.UserID == userID {
			out = append(out, cloneReservation(res))
		}
	}
	return out, nil
}

// CountByUser counts reservations that were not cancelled or rejected.
func (r *reservationRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n := 0
	for _, res := range r.store.reservations {
		if res.UserID != userID {
			continue
		}
		if res.Status == reservation.StatusCancelled || res.Status == reservation.StatusRejected {
			continue
		}
		n++
	}
	return n, nil
}

// GuardSpace holds the space lock until the unit finishes. Outside a unit it
// is a no-op.
func (r *reservationRepo) GuardSpace(ctx context.Context, spaceID space.SpaceID) error {
	if r.unit == nil {
		return nil
	}
	return r.unit.guard(ctx, spaceID)
}

var _ reservation.Repository = (*reservationRepo)(nil)
