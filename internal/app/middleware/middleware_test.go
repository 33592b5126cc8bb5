package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/middleware"
	"spacebook/internal/app/policies/mocks"
	"spacebook/internal/infra/storage/memory"
	"spacebook/internal/pkg/errs"
)

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) { return f(ctx, cmd) }

type bookResult struct {
	ID    string `json:"id"`
	Total int64  `json:"total"`
}

type bookCommand struct {
	space string
	key   string
}

func (c bookCommand) Key() string            { return "test.book" }
func (c bookCommand) IdempotencyKey() string { return c.key }
func (c bookCommand) ResultPrototype() any   { return &bookResult{} }
func (c bookCommand) SpaceKey() string       { return c.space }

type plainCommand struct{}

func (plainCommand) Key() string { return "test.plain" }

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestIdempotencyReplaysResult(t *testing.T) {
	calls := 0
	bus := middleware.ChainCommands(busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		calls++
		return &bookResult{ID: "res-1", Total: 1500}, nil
	}), middleware.Idempotency(memory.NewIdempotencyStore(0), nil))

	ctx := context.Background()
	first, err := commands.Dispatch[bookCommand, *bookResult](ctx, bus, bookCommand{key: "k1"})
	require.NoError(t, err)
	second, err := commands.Dispatch[bookCommand, *bookResult](ctx, bus, bookCommand{key: "k1"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	_, err = commands.Dispatch[bookCommand, *bookResult](ctx, bus, bookCommand{key: "k2"})
	require.NoError(t, err)
	_, err = commands.Dispatch[bookCommand, *bookResult](ctx, bus, bookCommand{})
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "new and missing keys run the handler")
}

func TestIdempotencyReplaysDomainFailures(t *testing.T) {
	calls := 0
	bus := middleware.ChainCommands(busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		calls++
		return nil, errs.Mark(errs.New("slot taken"), errs.ErrConflict)
	}), middleware.Idempotency(memory.NewIdempotencyStore(0), nil))

	for i := 0; i < 2; i++ {
		_, err := bus.Dispatch(context.Background(), bookCommand{key: "k1"})
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrConflict))
		assert.Contains(t, err.Error(), "slot taken")
	}
	assert.Equal(t, 1, calls)
}

func TestIdempotencyDoesNotStoreTransientFailures(t *testing.T) {
	calls := 0
	bus := middleware.ChainCommands(busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		calls++
		if calls == 1 {
			return nil, errs.Mark(errs.New("razorpay timeout"), errs.ErrProviderError)
		}
		return &bookResult{ID: "res-1"}, nil
	}), middleware.Idempotency(memory.NewIdempotencyStore(0), nil))

	_, err := bus.Dispatch(context.Background(), bookCommand{key: "k1"})
	assert.True(t, errs.Is(err, errs.ErrProviderError))
	res, err := bus.Dispatch(context.Background(), bookCommand{key: "k1"})
	require.NoError(t, err)
	assert.Equal(t, &bookResult{ID: "res-1"}, res)
	assert.Equal(t, 2, calls)
}

func TestSpaceSerializationLocksScopedCommands(t *testing.T) {
	ctrl := gomock.NewController(t)
	locker := mocks.NewMockSpaceLocker(ctrl)

	var order []string
	locker.EXPECT().Lock(gomock.Any(), "space-1").DoAndReturn(func(ctx context.Context, id string) (func(), error) {
		order = append(order, "lock")
		return func() { order = append(order, "release") }, nil
	})

	bus := middleware.ChainCommands(busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		order = append(order, "handle:"+cmd.Key())
		return nil, nil
	}), middleware.SpaceSerialization(locker))

	_, err := bus.Dispatch(context.Background(), bookCommand{space: "space-1"})
	require.NoError(t, err)
	_, err = bus.Dispatch(context.Background(), plainCommand{})
	require.NoError(t, err)
	_, err = bus.Dispatch(context.Background(), bookCommand{})
	require.NoError(t, err)

	assert.Equal(t, []string{"lock", "handle:test.book", "release", "handle:test.plain", "handle:test.book"}, order)
}

func TestSpaceSerializationPropagatesLockFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	locker := mocks.NewMockSpaceLocker(ctrl)
	locker.EXPECT().Lock(gomock.Any(), "space-1").Return(nil, context.DeadlineExceeded)

	called := false
	bus := middleware.ChainCommands(busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		called = true
		return nil, nil
	}), middleware.SpaceSerialization(locker))

	_, err := bus.Dispatch(context.Background(), bookCommand{space: "space-1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
}

func TestRetry(t *testing.T) {
	policy := middleware.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	retryable := errs.Mark(errs.New("version clash"), errs.ErrRetryable)

	t.Run("recovers from transient failures", func(t *testing.T) {
		calls := 0
		bus := middleware.ChainCommands(busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			calls++
			if calls < 3 {
				return nil, retryable
			}
			return "ok", nil
		}), middleware.Retry(policy, quiet))
		res, err := bus.Dispatch(context.Background(), plainCommand{})
		require.NoError(t, err)
		assert.Equal(t, "ok", res)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		bus := middleware.ChainCommands(busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			calls++
			return nil, retryable
		}), middleware.Retry(policy, quiet))
		_, err := bus.Dispatch(context.Background(), plainCommand{})
		assert.True(t, errs.Is(err, errs.ErrRetryable))
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry domain errors", func(t *testing.T) {
		calls := 0
		domainErr := errors.New("nope")
		bus := middleware.ChainCommands(busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			calls++
			return nil, domainErr
		}), middleware.Retry(policy, quiet))
		_, err := bus.Dispatch(context.Background(), plainCommand{})
		assert.ErrorIs(t, err, domainErr)
		assert.Equal(t, 1, calls)
	})
}

func TestLoggingPassesResultsThrough(t *testing.T) {
	bus := middleware.ChainCommands(busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		return 42, nil
	}), middleware.Logging(quiet))
	res, err := bus.Dispatch(context.Background(), plainCommand{})
	require.NoError(t, err)
	assert.Equal(t, 42, res)
}
