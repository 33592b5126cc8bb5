package uow

import (
	"context"
	"sync"

	"spacebook/internal/pkg/errs"
)

var ErrUnitOfWorkMissing = errs.New("uow: unit of work missing from context")

type ctxKey struct{}
type hooksKey struct{}

// ContextWithUnitOfWork stores the provided unit of work in context.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

// FromContext retrieves a unit of work from context if present.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	val := ctx.Value(ctxKey{})
	if val == nil {
		return nil, false
	}
	unit, ok := val.(UnitOfWork)
	return unit, ok
}

// Hooks collects side effects that may only run once the surrounding unit
// committed, such as sending notifications.
type Hooks struct {
	mu    sync.Mutex
	funcs []func(context.Context)
}

func ContextWithHooks(ctx context.Context, hooks *Hooks) context.Context {
	return context.WithValue(ctx, hooksKey{}, hooks)
}

// AfterCommit registers fn with the hooks of ctx. Without a registry fn runs
// immediately, which is what callers outside any unit expect.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if fn == nil {
		return
	}
	hooks, ok := ctx.Value(hooksKey{}).(*Hooks)
	if !ok || hooks == nil {
		fn(ctx)
		return
	}
	hooks.mu.Lock()
	hooks.funcs = append(hooks.funcs, fn)
	hooks.mu.Unlock()
}

// Run executes the registered hooks in registration order and empties the registry.
func (h *Hooks) Run(ctx context.Context) {
	if h == nil {
		return
	}
	h.mu.Lock()
	funcs := h.funcs
	h.funcs = nil
	h.mu.Unlock()
	for _, fn := range funcs {
		fn(ctx)
	}
}

// Discard drops hooks of a rolled back unit.
func (h *Hooks) Discard() {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.funcs = nil
	h.mu.Unlock()
}
