package task

import (
	"errors"

	"github.com/hay-kot/criterio"
)

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = errors.New("task not found")

// StoreError reports a backend read or write failure. The backend message is
// passed through unchanged.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

// ValidationError reports input that failed shape or range constraints before
// reaching the store.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "validation failed: " + e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// Fields returns the per-field failures, if the underlying error carries them.
func (e *ValidationError) Fields() criterio.FieldErrors {
	var fe criterio.FieldErrors
	if errors.As(e.Err, &fe) {
		return fe
	}
	return nil
}

// IsStoreError reports whether err is or wraps a *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
