package uow

import "context"

// Attach binds unit to ctx. Units that carry driver state (a Mongo session)
// get to add it first.
func Attach(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}

// Within begins a unit, runs fn with it attached and commits when fn
// returned nil. Hooks registered through AfterCommit run with the caller's
// ctx after a successful commit and are dropped otherwise.
func Within(ctx context.Context, factory UoWFactory, opts TxOptions, fn func(ctx context.Context, unit UnitOfWork) error) error {
	if factory == nil {
		return ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return err
	}
	hooks := &Hooks{}
	txCtx := ContextWithHooks(Attach(ctx, unit), hooks)

	if err := fn(txCtx, unit); err != nil {
		hooks.Discard()
		_ = unit.Rollback(txCtx)
		return err
	}
	if err := unit.Commit(txCtx); err != nil {
		hooks.Discard()
		_ = unit.Rollback(txCtx)
		return err
	}
	hooks.Run(ctx)
	return nil
}
