package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"spacebook/internal/app/policies"
	"spacebook/internal/infra/security"
	"spacebook/internal/pkg/errs"
)

var ErrLockTimeout = errs.Mark(errs.New("lock: space is busy"), errs.ErrRetryable)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// SpaceLocker is a distributed advisory lock: SET NX PX with a random token,
// polled until the context deadline or WaitTimeout.
type SpaceLocker struct {
	Client      *redis.Client
	Prefix      string
	TTL         time.Duration
	WaitTimeout time.Duration
	Poll        time.Duration
	Logger      *slog.Logger
}

func (l *SpaceLocker) Lock(ctx context.Context, spaceID string) (func(), error) {
	key := l.prefix() + spaceID
	token, err := security.OpaqueID("lock_", 16)
	if err != nil {
		return nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, l.waitTimeout())
	defer cancel()

	ticker := time.NewTicker(l.poll())
	defer ticker.Stop()
	for {
		ok, err := l.Client.SetNX(waitCtx, key, token, l.ttl()).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, errs.Mark(errs.Wrap(err, "lock: redis"), errs.ErrRetryable)
		}
		if ok {
			return l.releaser(key, token), nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}
}

func (l *SpaceLocker) releaser(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.Client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.logger().Warn("lock release failed", "key", key, "error", err)
		}
	}
}

func (l *SpaceLocker) prefix() string {
	if l.Prefix != "" {
		return l.Prefix
	}
	return "spacebook:lock:space:"
}

func (l *SpaceLocker) ttl() time.Duration {
	if l.TTL > 0 {
		return l.TTL
	}
	return 15 * time.Second
}

func (l *SpaceLocker) waitTimeout() time.Duration {
	if l.WaitTimeout > 0 {
		return l.WaitTimeout
	}
	return 5 * time.Second
}

func (l *SpaceLocker) poll() time.Duration {
	if l.Poll > 0 {
		return l.Poll
	}
	return 25 * time.Millisecond
}

func (l *SpaceLocker) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

var _ policies.SpaceLocker = (*SpaceLocker)(nil)
