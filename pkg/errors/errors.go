// Package errors defines the error taxonomy shared across the search core:
// query parse and validation failures, per-element indexing and execution
// failures, and lifecycle violations. An AppError wraps a sentinel with a
// human-readable message and an HTTP status for the service layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmptyQuery        = errors.New("empty query")
	ErrInvalidQuery      = errors.New("invalid query")
	ErrUnknownField      = errors.New("unknown field")
	ErrMalformedRange    = errors.New("malformed range")
	ErrElementNotFound   = errors.New("element not found")
	ErrIndexing          = errors.New("indexing failed")
	ErrEngineClosed      = errors.New("engine is shut down")
	ErrSourceUnavailable = errors.New("element source unavailable")
	ErrInternal          = errors.New("internal error")
)

// AppError wraps a sentinel error with context for callers and an HTTP
// status code for the service handler.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError around the given sentinel.
func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Newf is New with fmt-style message formatting.
func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to the HTTP status the service should return.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	switch {
	case errors.Is(err, ErrEmptyQuery),
		errors.Is(err, ErrInvalidQuery),
		errors.Is(err, ErrUnknownField),
		errors.Is(err, ErrMalformedRange):
		return http.StatusBadRequest
	case errors.Is(err, ErrElementNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEngineClosed), errors.Is(err, ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
