package middleware

import (
	"context"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/queries"
	"spacebook/internal/pkg/errs"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// ActorScoped is implemented by messages issued on behalf of a signed-in user.
type ActorScoped interface {
	ActorID() string
}

// RequireActor rejects actor-scoped messages that carry no actor. Ownership
// and role checks stay in the handlers, which know the aggregates involved.
type RequireActor struct{}

func (RequireActor) Authorize(_ context.Context, message any) error {
	scoped, ok := message.(ActorScoped)
	if !ok {
		return nil
	}
	if scoped.ActorID() == "" {
		return errs.Mark(errs.New("middleware: sign in required"), errs.ErrUnauthenticated)
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
