// Package queries routes read requests. Query handlers never write and are
// not wrapped by the transactional middleware.
package queries

import (
	"context"
	"sort"

	"spacebook/internal/pkg/errs"
)

type Query interface {
	Key() string
}

type Handler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

type Bus interface {
	Ask(ctx context.Context, query Query) (any, error)
}

var (
	ErrHandlerNotFound = errs.New("queries: handler not found")
	ErrInvalidQuery    = errs.New("queries: invalid query for handler")
	ErrResultType      = errs.New("queries: result type mismatch")
	ErrNilBus          = errs.New("queries: nil bus")
)

type route func(ctx context.Context, q Query) (any, error)

type Registry struct {
	routes map[string]route
}

func NewRegistry() *Registry {
	return &Registry{routes: map[string]route{}}
}

// Register binds h to the key of the zero Q. Empty or repeated keys panic.
func Register[Q Query, R any](r *Registry, h Handler[Q, R]) {
	var zero Q
	key := zero.Key()
	switch {
	case r == nil:
		panic("queries: register on nil registry")
	case key == "":
		panic("queries: query with empty key")
	}
	if _, taken := r.routes[key]; taken {
		panic("queries: " + key + " registered twice")
	}
	r.routes[key] = func(ctx context.Context, raw Query) (any, error) {
		q, ok := raw.(Q)
		if !ok {
			return nil, errs.Wrapf(ErrInvalidQuery, "%s got %T", key, raw)
		}
		return h.Handle(ctx, q)
	}
}

func (r *Registry) Ask(ctx context.Context, q Query) (any, error) {
	handle, ok := r.routes[q.Key()]
	if !ok {
		return nil, errs.Wrapf(ErrHandlerNotFound, "%s", q.Key())
	}
	return handle(ctx, q)
}

func (r *Registry) Keys() []string {
	out := make([]string, 0, len(r.routes))
	for k := range r.routes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Ask is the typed counterpart of Bus.Ask.
func Ask[Q Query, R any](ctx context.Context, bus Bus, q Q) (R, error) {
	var out R
	if bus == nil {
		return out, ErrNilBus
	}
	res, err := bus.Ask(ctx, q)
	if err != nil || res == nil {
		return out, err
	}
	typed, ok := res.(R)
	if !ok {
		return out, errs.Wrapf(ErrResultType, "%s returned %T", q.Key(), res)
	}
	return typed, nil
}
