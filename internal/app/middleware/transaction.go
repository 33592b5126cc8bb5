package middleware

import (
	"context"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// SelfTransacted is implemented by commands whose handler opens its own units,
// for example because part of its writes must survive a rollback.
type SelfTransacted interface {
	SelfTransacted() bool
}

// Transaction runs each command in its own unit of work.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if st, ok := cmd.(SelfTransacted); ok && st.SelfTransacted() {
				return next.Dispatch(ctx, cmd)
			}
			var opts uow.TxOptions
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			var res any
			err := uow.Within(ctx, factory, opts, func(txCtx context.Context, _ uow.UnitOfWork) error {
				var err error
				res, err = next.Dispatch(txCtx, cmd)
				return err
			})
			if err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
