package errs

import "errors"

// Taxonomy sentinels. Domain errors are marked with one of these so the
// transport layer can map them without knowing every package.
var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrSignatureInvalid       = errors.New("signature invalid")
	ErrProviderError          = errors.New("payment provider error")
	ErrValidationFailed       = errors.New("validation failed")
	ErrInvalidInterval        = errors.New("invalid interval")
	ErrNoCompletedPayment     = errors.New("no completed payment")
	ErrForbidden              = errors.New("forbidden")
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrConcurrentUpdate       = errors.New("concurrent update")
)

// Retryable marks errors that a transaction runner may retry.
var ErrRetryable = errors.New("retryable")

var kinds = []struct {
	name string
	err  error
}{
	{"not_found", ErrNotFound},
	{"conflict", ErrConflict},
	{"invalid_state_transition", ErrInvalidStateTransition},
	{"signature_invalid", ErrSignatureInvalid},
	{"provider_error", ErrProviderError},
	{"validation_failed", ErrValidationFailed},
	{"invalid_interval", ErrInvalidInterval},
	{"no_completed_payment", ErrNoCompletedPayment},
	{"forbidden", ErrForbidden},
	{"unauthenticated", ErrUnauthenticated},
	{"concurrent_update", ErrConcurrentUpdate},
}

// Kind names the taxonomy sentinel err is marked with, or "" when none.
func Kind(err error) string {
	for _, k := range kinds {
		if Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

// Restore rebuilds an error of the given kind, used when replaying a stored
// failure.
func Restore(kind, msg string) error {
	for _, k := range kinds {
		if k.name == kind {
			return Mark(New(msg), k.err)
		}
	}
	return New(msg)
}
