package middleware

import (
	"context"
	"log/slog"
	"time"

	"spacebook/internal/app/commands"
	"spacebook/internal/pkg/errs"
)

type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 4, BaseDelay: 20 * time.Millisecond, MaxDelay: 400 * time.Millisecond}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << attempt
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Retry re-runs commands that failed with an error marked errs.ErrRetryable,
// such as transient transaction aborts and optimistic version clashes. It must
// wrap Transaction so that each attempt starts a fresh unit of work.
func Retry(policy RetryPolicy, logger *slog.Logger) CommandMiddleware {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			var lastErr error
			for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
				res, err := nextFn(ctx, cmd)
				if err == nil || !errs.Is(err, errs.ErrRetryable) {
					return res, err
				}
				lastErr = err
				logger.DebugContext(ctx, "retrying command", "command", cmd.Key(), "attempt", attempt+1, "error", err)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(policy.delay(attempt)):
				}
			}
			return nil, lastErr
		})
	}
}
