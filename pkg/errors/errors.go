// Package errors holds the sentinel errors shared across services and maps
// them onto HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrRoundNotFound        = errors.New("round not found")
	ErrRoundRevealed        = errors.New("round already revealed")
	ErrAlreadyCompleted     = errors.New("daily challenge already completed")
	ErrResultNotFound       = errors.New("result not found")
	ErrGeneratorUnavailable = errors.New("content generator unavailable")
	ErrUpstream             = errors.New("upstream request failed")
	ErrRateLimited          = errors.New("rate limit exceeded")
	ErrTimeout              = errors.New("operation timed out")
	ErrInternal             = errors.New("internal error")
)

// known pairs each client-visible sentinel with its status. Order matters
// only when one error wraps several sentinels.
var known = []struct {
	err    error
	status int
}{
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrRoundNotFound, http.StatusNotFound},
	{ErrResultNotFound, http.StatusNotFound},
	{ErrRoundRevealed, http.StatusConflict},
	{ErrAlreadyCompleted, http.StatusConflict},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrGeneratorUnavailable, http.StatusBadGateway},
	{ErrUpstream, http.StatusBadGateway},
	{ErrTimeout, http.StatusServiceUnavailable},
}

// AppError attaches a client-facing message and status to a sentinel.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func New(sentinel error, status int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: status}
}

func Newf(sentinel error, status int, format string, args ...any) *AppError {
	return New(sentinel, status, fmt.Sprintf(format, args...))
}

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

// HTTPStatusCode prefers an AppError's own status, then the first known
// sentinel in the chain, then 500.
func HTTPStatusCode(err error) int {
	if appErr, ok := asAppError(err); ok {
		return appErr.StatusCode
	}
	if k, ok := lookup(err); ok {
		return known[k].status
	}
	return http.StatusInternalServerError
}

// PublicMessage never exposes the text of an unrecognised error.
func PublicMessage(err error) string {
	if appErr, ok := asAppError(err); ok {
		return appErr.Message
	}
	if k, ok := lookup(err); ok {
		return known[k].err.Error()
	}
	return ErrInternal.Error()
}

func asAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

func lookup(err error) (int, bool) {
	for i, k := range known {
		if errors.Is(err, k.err) {
			return i, true
		}
	}
	return 0, false
}
