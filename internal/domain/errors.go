package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrRateLimited  = errors.New("rate limited")
)

// ValidationError carries field-level messages so clients can highlight the
// offending form fields. Unwraps to ErrBadRequest.
type ValidationError struct {
	Msg    string
	Fields map[string]string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrBadRequest }

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(msg, field, detail string) *ValidationError {
	return &ValidationError{Msg: msg, Fields: map[string]string{field: detail}}
}

// RateLimitError tells the caller how long to wait before retrying.
// Unwraps to ErrRateLimited.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %ds", e.RetryAfterSeconds())
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int(e.RetryAfter.Seconds())
	if secs < 1 && e.RetryAfter > 0 {
		return 1
	}
	return secs
}
