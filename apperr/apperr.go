// Package apperr defines the error taxonomy shared by the issue lifecycle,
// store and HTTP handlers: validation failures (including the coordinate
// subtype), authorization failures, missing records, and everything else.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrForbidden means the actor lacks the right to perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the issue does not exist, or is not visible to the
	// actor under ownership scoping.
	ErrNotFound = errors.New("not found")
)

// ValidationError is a caller-recoverable input failure. It maps to a 400
// with its message surfaced verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// LocationError is a coordinate parse or range failure. It unwraps to a
// ValidationError so callers that only distinguish validation failures keep
// working.
type LocationError struct {
	Msg string
}

func (e *LocationError) Error() string { return e.Msg }

func (e *LocationError) Unwrap() error { return &ValidationError{Msg: e.Msg} }

// InvalidLocationf builds a LocationError.
func InvalidLocationf(format string, args ...interface{}) error {
	return &LocationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is any validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// HTTPStatus maps an error to its response status. Anything outside the
// taxonomy is an unexpected error and maps to 500.
func HTTPStatus(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
