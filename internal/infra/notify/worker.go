package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"spacebook/internal/pkg/errs"
)

// Handler renders and sends queued jobs.
type Handler struct {
	Sender Sender
	Logger *slog.Logger
}

// Handle processes one payload of task name. Malformed payloads are dropped
// with asynq.SkipRetry since retrying cannot fix them.
func (h *Handler) Handle(ctx context.Context, name string, payload []byte) error {
	if name != TaskSendEmail {
		return errs.Wrapf(asynq.SkipRetry, "notify: unknown task %s", name)
	}
	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		h.logger().ErrorContext(ctx, "invalid notification payload", "error", err)
		return errs.Wrap(asynq.SkipRetry, err.Error())
	}
	msg, err := Render(job)
	if err != nil {
		return errs.Wrap(asynq.SkipRetry, err.Error())
	}
	if err := h.Sender.Send(ctx, msg); err != nil {
		h.logger().WarnContext(ctx, "email delivery failed", "kind", job.Kind, "reservation_id", job.Notice.ReservationID, "error", err)
		return err
	}
	h.logger().InfoContext(ctx, "email sent", "kind", job.Kind, "reservation_id", job.Notice.ReservationID)
	return nil
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Worker consumes the asynq queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewWorker(redis asynq.RedisClientOpt, queue string, concurrency int, handler *Handler) *Worker {
	if concurrency <= 0 {
		concurrency = 5
	}
	if queue == "" {
		queue = "default"
	}
	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSendEmail, func(ctx context.Context, task *asynq.Task) error {
		return handler.Handle(ctx, task.Type(), task.Payload())
	})
	return &Worker{server: srv, mux: mux}
}

// Start runs the worker in the background.
func (w *Worker) Start() error {
	return w.server.Start(w.mux)
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
