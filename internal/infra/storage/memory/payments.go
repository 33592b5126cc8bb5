package memory

import (
	"context"
	"sort"

	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/reservation"
)

type paymentRepo struct {
	store *Store
	unit  *Unit
}

func (r *paymentRepo) Insert(ctx context.Context, p *payment.Payment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.payments[p.ID]; exists {
		return ErrVersionConflict
	}
	for _, other := range r.store.payments {
		if other.OrderID == p.OrderID {
			return ErrVersionConflict
		}
	}
	stored := clonePayment(p)
	stored.Version = 1
	if err := r.unit.record(func() { undoWrite(r.store.payments, p.ID, stored, nil) }); err != nil {
		return err
	}
	p.Version = 1
	r.store.payments[p.ID] = stored
	return nil
}

func (r *paymentRepo) Save(ctx context.Context, p *payment.Payment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	prev, ok := r.store.payments[p.ID]
	if !ok {
		return payment.ErrPaymentNotFound
	}
	if prev.Version != p.Version {
		return ErrVersionConflict
	}
	stored := clonePayment(p)
	stored.Version++
	if err := r.unit.record(func() { undoWrite(r.store.payments, p.ID, stored, prev) }); err != nil {
		return err
	}
	p.Version++
	r.store.payments[p.ID] = stored
	return nil
}

func (r *paymentRepo) ByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	return r.find(func(p *payment.Payment) bool { return orderID != "" && p.OrderID == orderID })
}

func (r *paymentRepo) ByPaymentID(ctx context.Context, paymentID string) (*payment.Payment, error) {
	return r.find(func(p *payment.Payment) bool { return paymentID != "" && p.PaymentID == paymentID })
}

func (r *paymentRepo) LatestCompletedForReservation(ctx context.Context, id reservation.ReservationID) (*payment.Payment, error) {
	list, err := r.ListByReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		if p.Status == payment.StatusCompleted {
			return p, nil
		}
	}
	return nil, payment.ErrPaymentNotFound
}

// ListByReservation returns attempts newest first.
func (r *paymentRepo) ListByReservation(ctx context.Context, id reservation.ReservationID) ([]*payment.Payment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := []*payment.Payment{}
	for _, p := range r.store.payments {
		if p.ReservationID == id {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *paymentRepo) find(match func(p *payment.Payment) bool) (*payment.Payment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, p := range r.store.payments {
		if match(p) {
			return clonePayment(p), nil
		}
	}
	return nil, payment.ErrPaymentNotFound
}

var _ payment.Repository = (*paymentRepo)(nil)
