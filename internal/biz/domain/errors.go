package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// RateLimitError is returned by a completion backend that rejected the call
// with a "too many requests" status
type RateLimitError struct {
	StatusCode int
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rate limited (%d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("rate limited (%d)", e.StatusCode)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimit reports whether err carries a 429 rate-limit status
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl) && rl.StatusCode == http.StatusTooManyRequests
}

// ServiceError means the completion backend could not produce a reply
type ServiceError struct {
	Attempts int
	Cause    error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("completion failed after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}
