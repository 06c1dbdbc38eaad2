// Package apperr defines the error taxonomy shared by every layer of the
// travel approval service. Errors are wrapped with fmt.Errorf("%w: ...") and
// classified by callers with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated is returned when no actor is attached to the call
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the actor's role does not permit the operation
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput is returned for schema or cross-field validation failures
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a transition precondition is not met
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned for unknown request, booking, user or project ids
	ErrNotFound = errors.New("not found")

	// ErrDependencyUnavailable is returned when the directory or a sender cannot be reached
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// Unauthenticated wraps ErrUnauthenticated with a message
func Unauthenticated(format string, args ...interface{}) error {
	return wrap(ErrUnauthenticated, format, args...)
}

// Forbidden wraps ErrForbidden with a message
func Forbidden(format string, args ...interface{}) error {
	return wrap(ErrForbidden, format, args...)
}

// InvalidInput wraps ErrInvalidInput with a message
func InvalidInput(format string, args ...interface{}) error {
	return wrap(ErrInvalidInput, format, args...)
}

// Conflict wraps ErrConflict with a message
func Conflict(format string, args ...interface{}) error {
	return wrap(ErrConflict, format, args...)
}

// NotFound wraps ErrNotFound with a message
func NotFound(format string, args ...interface{}) error {
	return wrap(ErrNotFound, format, args...)
}

// DependencyUnavailable wraps ErrDependencyUnavailable and keeps the cause in the chain
func DependencyUnavailable(cause error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrDependencyUnavailable, msg)
	}
	return fmt.Errorf("%w: %s: %w", ErrDependencyUnavailable, msg, cause)
}

func wrap(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// HTTPStatus maps an error from the taxonomy to an HTTP status code
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a machine-readable code for an error
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "UNAUTHENTICATED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrDependencyUnavailable):
		return "DEPENDENCY_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}
