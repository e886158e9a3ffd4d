// Package fault holds the sentinel errors shared by the lifecycle engine, the
// stores and the HTTP layer. Callers classify with errors.Is and keep the
// wrapped human-readable reason for the response body.
package fault

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrStore      = errors.New("store failure")
	ErrPayment    = errors.New("payment failure")
)

func Validation(format string, args ...any) error {
	return wrap(ErrValidation, format, args...)
}

func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

func Forbidden(format string, args ...any) error {
	return wrap(ErrForbidden, format, args...)
}

func Conflict(format string, args ...any) error {
	return wrap(ErrConflict, format, args...)
}

// Store wraps an underlying persistence error so callers can tell an
// infrastructure failure apart from an expected precondition conflict.
func Store(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStore, err)
}

func Payment(format string, args ...any) error {
	return wrap(ErrPayment, format, args...)
}

func wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
