package memory

import (
	"context"
	"strings"

	"spacebook/internal/domain/space"
)

type spaceRepo struct {
	store *Store
	unit  *Unit
}

func (r *spaceRepo) ByID(ctx context.Context, id space.SpaceID) (*space.Space, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	sp, ok := r.store.spaces[id]
	if !ok {
		return nil, space.ErrSpaceNotFound
	}
	return cloneSpace(sp), nil
}

// Save inserts a new space (Version 0) or replaces a stored one when the
// versions match. The saved copy has its version bumped.
func (r *spaceRepo) Save(ctx context.Context, sp *space.Space) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	prev, exists := r.store.spaces[sp.ID]
	if exists && prev.Version != sp.Version {
		return ErrVersionConflict
	}
	if !exists && sp.Version != 0 {
		return ErrVersionConflict
	}
	stored := cloneSpace(sp)
	stored.Version++
	if exists {
		keepCounters(&stored.Pricing, prev.Pricing)
	}
	if err := r.unit.record(func() { undoWrite(r.store.spaces, sp.ID, stored, prev) }); err != nil {
		return err
	}
	sp.Version++
	r.store.spaces[sp.ID] = stored
	return nil
}

// keepCounters stops a save from rolling back usage counters that were bumped
// after the caller loaded its copy.
func keepCounters(dst *space.Pricing, prev space.Pricing) {
	for i := range dst.PromoCodes {
		if old, ok := prev.Promo(dst.PromoCodes[i].Code); ok {
			dst.PromoCodes[i].UsedCount = max(dst.PromoCodes[i].UsedCount, old.UsedCount)
		}
	}
	for i := range dst.Bundles {
		if old, ok := prev.Bundle(dst.Bundles[i].ID); ok {
			dst.Bundles[i].CurrentPurchases = max(dst.Bundles[i].CurrentPurchases, old.CurrentPurchases)
		}
	}
	for i := range dst.TimeBlocks {
		if old, ok := prev.TimeBlock(dst.TimeBlocks[i].ID); ok {
			dst.TimeBlocks[i].CurrentBookings = max(dst.TimeBlocks[i].CurrentBookings, old.CurrentBookings)
		}
	}
}

func (r *spaceRepo) IncrementPromoUsage(ctx context.Context, id space.SpaceID, code string) (bool, error) {
	return r.increment(id, func(p *space.Pricing) (*int, int) {
		for i := range p.PromoCodes {
			if strings.EqualFold(p.PromoCodes[i].Code, strings.TrimSpace(code)) {
				return &p.PromoCodes[i].UsedCount, p.PromoCodes[i].MaxUses
			}
		}
		return nil, 0
	})
}

func (r *spaceRepo) IncrementBundlePurchases(ctx context.Context, id space.SpaceID, bundleID string) (bool, error) {
	return r.increment(id, func(p *space.Pricing) (*int, int) {
		for i := range p.Bundles {
			if p.Bundles[i].ID == bundleID {
				return &p.Bundles[i].CurrentPurchases, p.Bundles[i].MaxPurchases
			}
		}
		return nil, 0
	})
}

func (r *spaceRepo) IncrementTimeBlockBookings(ctx context.Context, id space.SpaceID, blockID string) (bool, error) {
	return r.increment(id, func(p *space.Pricing) (*int, int) {
		for i := range p.TimeBlocks {
			if p.TimeBlocks[i].ID == blockID {
				return &p.TimeBlocks[i].CurrentBookings, p.TimeBlocks[i].MaxBookings
			}
		}
		return nil, 0
	})
}

// increment bumps the counter picked by counter unless its limit is reached.
// Counters do not change the aggregate version, so pricing edits and bookings
// do not collide.
func (r *spaceRepo) increment(id space.SpaceID, counter func(p *space.Pricing) (*int, int)) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sp, ok := r.store.spaces[id]
	if !ok {
		return false, space.ErrSpaceNotFound
	}
	count, limit := counter(&sp.Pricing)
	if count == nil || space.LimitReached(*count, limit) {
		return false, nil
	}
	if err := r.unit.record(func() {
		if current, ok := r.store.spaces[id]; ok {
			if c, _ := counter(&current.Pricing); c != nil && *c > 0 {
				*c--
			}
		}
	}); err != nil {
		return false, err
	}
	*count++
	return true, nil
}

func (r *spaceRepo) Search(ctx context.Context, params space.SearchParams) (space.SearchResult, error) {
	params = params.Normalized()
	r.store.mu.RLock()
	matches := make([]*space.Space, 0, len(r.store.spaces))
	for _, sp := range r.store.spaces {
		if params.Matches(sp) {
			matches = append(matches, cloneSpace(sp))
		}
	}
	r.store.mu.RUnlock()

	space.SortSpaces(matches, params.Sort)
	total := len(matches)
	if params.Offset >= total {
		return space.SearchResult{Items: []*space.Space{}, Total: total}, nil
	}
	end := params.Offset + params.Limit
	if end > total {
		end = total
	}
	return space.SearchResult{Items: matches[params.Offset:end], Total: total}, nil
}

var _ space.Repository = (*spaceRepo)(nil)
