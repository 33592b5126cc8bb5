package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Scheduler defers a named job. A zero or past runAt means as soon as
// possible. Payloads must be JSON encodable.
type Scheduler interface {
	Schedule(ctx context.Context, name string, payload any, runAt time.Time) error
}

// AsynqScheduler enqueues jobs on a Redis backed asynq queue.
type AsynqScheduler struct {
	Client   *asynq.Client
	Queue    string
	MaxRetry int
}

func (s *AsynqScheduler) Schedule(ctx context.Context, name string, payload any, runAt time.Time) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.MaxRetry(s.maxRetry())}
	if s.Queue != "" {
		opts = append(opts, asynq.Queue(s.Queue))
	}
	if !runAt.IsZero() && runAt.After(time.Now()) {
		opts = append(opts, asynq.ProcessAt(runAt))
	}
	_, err = s.Client.EnqueueContext(ctx, asynq.NewTask(name, b), opts...)
	return err
}

func (s *AsynqScheduler) maxRetry() int {
	if s.MaxRetry <= 0 {
		return 5
	}
	return s.MaxRetry
}

// InlineScheduler runs jobs in a goroutine of the current process. Jobs with
// a future runAt are delayed with a timer and lost on shutdown.
type InlineScheduler struct {
	Handle func(ctx context.Context, name string, payload []byte) error
	Logger *slog.Logger
}

func (s *InlineScheduler) Schedule(ctx context.Context, name string, payload any, runAt time.Time) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	detached := context.WithoutCancel(ctx)
	run := func() {
		if err := s.Handle(detached, name, b); err != nil {
			s.logger().WarnContext(detached, "inline job failed", "task", name, "error", err)
		}
	}
	if delay := time.Until(runAt); !runAt.IsZero() && delay > 0 {
		time.AfterFunc(delay, run)
		return nil
	}
	go run()
	return nil
}

func (s *InlineScheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

var (
	_ Scheduler = (*AsynqScheduler)(nil)
	_ Scheduler = (*InlineScheduler)(nil)
)
