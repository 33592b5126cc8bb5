package middleware

import (
	"context"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/policies"
)

// SpaceScoped is implemented by commands that must not run concurrently with
// other writers of the same space.
type SpaceScoped interface {
	SpaceKey() string
}

// SpaceSerialization holds the per-space lock from before the transaction
// starts until after it committed or rolled back. It must wrap Transaction.
func SpaceSerialization(locker policies.SpaceLocker) CommandMiddleware {
	if locker == nil {
		panic("middleware: space locker required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			scoped, ok := cmd.(SpaceScoped)
			if !ok || scoped.SpaceKey() == "" {
				return nextFn(ctx, cmd)
			}
			release, err := locker.Lock(ctx, scoped.SpaceKey())
			if err != nil {
				return nil, err
			}
			defer release()
			return nextFn(ctx, cmd)
		})
	}
}
