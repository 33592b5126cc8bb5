package support

import (
	"context"

	"spacebook/internal/app/uow"
)

// BeginReadOnlyUnit reuses the unit of ctx or starts a read-only one. The
// returned cleanup is nil when the unit was borrowed.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	readCtx := uow.Attach(ctx, unit)
	return unit, readCtx, func() { _ = unit.Rollback(readCtx) }, nil
}

// InUnit joins the unit found in ctx, or runs fn in a fresh one.
func InUnit(ctx context.Context, factory uow.UoWFactory, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	if unit, ok := uow.FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	return uow.Within(ctx, factory, uow.TxOptions{}, fn)
}
