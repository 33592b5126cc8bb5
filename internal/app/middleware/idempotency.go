package middleware

import (
	"context"
	"encoding/json"
	"time"

	"spacebook/internal/app/commands"
	"spacebook/internal/pkg/errs"
)

// IdempotentCommand must be implemented by commands that want idempotency guarantees.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // should match the handler result type
}

type IdempotencyRecord struct {
	Key        string
	Command    string
	Payload    []byte
	Error      string
	ErrorKind  string
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var (
	errMissingPrototype = errs.New("middleware: idempotent command requires result prototype")
	ErrKeyReused        = errs.Mark(errs.New("middleware: idempotency key was used for a different command"), errs.ErrConflict)
)

// Idempotency replays the stored outcome of a command whose key was seen
// before. Keys are scoped by command key. Provider and retryable failures
// are not stored so the client may retry them with the same key.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			scoped := cmd.Key() + ":" + idCmd.IdempotencyKey()
			prev, found, err := store.Get(ctx, scoped)
			switch {
			case err != nil:
				return nil, err
			case found:
				return replay(prev, idCmd, codec)
			}

			result, runErr := next.Dispatch(ctx, cmd)
			if runErr != nil && transient(runErr) {
				return nil, runErr
			}
			rec, err := outcome(scoped, cmd.Key(), result, runErr, codec)
			if err != nil {
				return nil, err
			}
			if err := store.Save(ctx, rec); err != nil {
				if runErr != nil {
					return nil, errs.Wrapf(runErr, "idempotency save failed: %v", err)
				}
				return nil, err
			}
			if runErr != nil {
				return nil, runErr
			}
			return result, nil
		})
	}
}

func transient(err error) bool {
	return errs.Is(err, errs.ErrProviderError) || errs.Is(err, errs.ErrRetryable)
}

func outcome(key, command string, result any, runErr error, codec ResultCodec) (IdempotencyRecord, error) {
	rec := IdempotencyRecord{Key: key, Command: command, OccurredAt: time.Now().UTC()}
	if runErr != nil {
		rec.Error = runErr.Error()
		rec.ErrorKind = errs.Kind(runErr)
		return rec, nil
	}
	if result == nil {
		return rec, nil
	}
	payload, err := codec.Encode(result)
	if err != nil {
		return IdempotencyRecord{}, errs.Wrapf(err, "idempotency: encode %s result", command)
	}
	rec.Payload = payload
	return rec, nil
}

// replay rebuilds the first outcome. Results decode into a fresh
// ResultPrototype, so prototypes must be pointers.
func replay(rec IdempotencyRecord, cmd IdempotentCommand, codec ResultCodec) (any, error) {
	if rec.Command != "" && rec.Command != cmd.Key() {
		return nil, ErrKeyReused
	}
	if rec.Error != "" {
		return nil, errs.Restore(rec.ErrorKind, rec.Error)
	}
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	return proto, nil
}
