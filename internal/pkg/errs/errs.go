package errs

import (
	"fmt"
	"sort"
	"strings"

	cr "github.com/cockroachdb/errors"
)

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return cr.Wrapf(err, format, args...)
}

func New(msg string) error {
	return cr.New(msg)
}

func Newf(format string, args ...any) error {
	return cr.Newf(format, args...)
}

// Mark tags err with markErr so that Is(err, markErr) holds while the
// message of err is preserved.
func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return cr.Mark(err, markErr)
}

// Is reports whether err matches reference, following both wrap chains and marks.
func Is(err, reference error) bool {
	return cr.Is(err, reference)
}

func As(err error, target any) bool {
	return cr.As(err, target)
}

// FieldError carries field-level validation detail.
type FieldError struct {
	Fields map[string]string
}

func (e *FieldError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field builds a ValidationFailed error for a single field.
func Field(name, msg string) error {
	return Fields(map[string]string{name: msg})
}

// Fields builds a ValidationFailed error for several fields. Returns nil when empty.
func Fields(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return cr.Mark(&FieldError{Fields: copied}, ErrValidationFailed)
}

// FieldDetails extracts field-level detail if err carries any.
func FieldDetails(err error) map[string]string {
	var fe *FieldError
	if cr.As(err, &fe) {
		return fe.Fields
	}
	return nil
}
