package memory

import (
	"context"
	"strings"

	domainuser "spacebook/internal/domain/user"
)

type userRepo struct {
	store *Store
	unit  *Unit
}

func (r *userRepo) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if u, ok := r.store.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *userRepo) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	id, ok := r.store.emails[domainuser.NormalizeEmail(email)]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	if u, ok := r.store.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *userRepo) Save(ctx context.Context, u *domainuser.User) error {
	if u == nil || strings.TrimSpace(string(u.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	key := domainuser.NormalizeEmail(u.Email)
	if key == "" {
		return domainuser.ErrEmailRequired
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if existing, ok := r.store.emails[key]; ok && existing != u.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	prev, existed := r.store.users[u.ID]
	stored := cloneUser(u)
	if err := r.unit.record(func() {
		if !undoWrite(r.store.users, u.ID, stored, prev) {
			return
		}
		delete(r.store.emails, key)
		if existed {
			r.store.emails[domainuser.NormalizeEmail(prev.Email)] = u.ID
		}
	}); err != nil {
		return err
	}
	if existed && domainuser.NormalizeEmail(prev.Email) != key {
		delete(r.store.emails, domainuser.NormalizeEmail(prev.Email))
	}
	r.store.emails[key] = u.ID
	r.store.users[u.ID] = stored
	return nil
}

var _ domainuser.Repository = (*userRepo)(nil)
