// Package commands routes write intents to their handlers.
package commands

import (
	"context"
	"sort"

	"spacebook/internal/pkg/errs"
)

// Command is a write intent. Key names the handler and scopes idempotency
// records, so it must be stable across releases.
type Command interface {
	Key() string
}

type Handler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

// Bus is what transports and middleware see.
type Bus interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

var (
	ErrHandlerNotFound = errs.New("commands: handler not found")
	ErrInvalidCommand  = errs.New("commands: invalid command for handler")
	ErrResultType      = errs.New("commands: result type mismatch")
	ErrNilBus          = errs.New("commands: nil bus")
)

type route func(ctx context.Context, cmd Command) (any, error)

// Registry is the innermost Bus. Middleware wraps it in cmd/.
type Registry struct {
	routes map[string]route
}

func NewRegistry() *Registry {
	return &Registry{routes: map[string]route{}}
}

// Register binds h to the key of the zero C. Empty or repeated keys panic.
func Register[C Command, R any](r *Registry, h Handler[C, R]) {
	var zero C
	key := zero.Key()
	switch {
	case r == nil:
		panic("commands: register on nil registry")
	case key == "":
		panic("commands: command with empty key")
	}
	if _, taken := r.routes[key]; taken {
		panic("commands: " + key + " registered twice")
	}
	r.routes[key] = func(ctx context.Context, raw Command) (any, error) {
		cmd, ok := raw.(C)
		if !ok {
			return nil, errs.Wrapf(ErrInvalidCommand, "%s got %T", key, raw)
		}
		return h.Handle(ctx, cmd)
	}
}

func (r *Registry) Dispatch(ctx context.Context, cmd Command) (any, error) {
	handle, ok := r.routes[cmd.Key()]
	if !ok {
		return nil, errs.Wrapf(ErrHandlerNotFound, "%s", cmd.Key())
	}
	return handle(ctx, cmd)
}

// Keys is sorted; the server logs it at startup.
func (r *Registry) Keys() []string {
	out := make([]string, 0, len(r.routes))
	for k := range r.routes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Dispatch sends cmd through bus and asserts the result type. A nil result
// yields the zero R.
func Dispatch[C Command, R any](ctx context.Context, bus Bus, cmd C) (R, error) {
	var out R
	if bus == nil {
		return out, ErrNilBus
	}
	res, err := bus.Dispatch(ctx, cmd)
	if err != nil || res == nil {
		return out, err
	}
	typed, ok := res.(R)
	if !ok {
		return out, errs.Wrapf(ErrResultType, "%s returned %T", cmd.Key(), res)
	}
	return typed, nil
}
