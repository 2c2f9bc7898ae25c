// Package upstream holds what every third-party provider adapter shares:
// the error taxonomy for provider failures and the guard that bounds
// outbound traffic.
package upstream

import (
	"errors"
	"fmt"
)

// Common provider errors.
var (
	// ErrMissingCredential is returned when a provider's API key is not configured.
	ErrMissingCredential = errors.New("provider credential not configured")

	// ErrRateLimited is returned when the local upstream rate limit is exhausted.
	ErrRateLimited = errors.New("upstream rate limit exceeded")
)

// Error is a non-2xx reply from a provider. Body carries the raw provider
// response for server-side logs; it is not meant for end users.
type Error struct {
	// Provider is the provider name, e.g. "deepgram".
	Provider string

	// StatusCode is the HTTP status the provider answered with, 0 when the
	// request never got a response.
	StatusCode int

	// Body is the raw response body.
	Body string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode == 0 && e.Cause != nil {
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// MissingCredential returns ErrMissingCredential annotated with the provider
// and the environment variable that would supply it.
func MissingCredential(provider, envVar string) error {
	return fmt.Errorf("%w: %s (set %s)", ErrMissingCredential, provider, envVar)
}

// StatusCode extracts the provider status from err, or 0.
func StatusCode(err error) int {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}

// Body extracts the raw provider body from err, or "".
func Body(err error) string {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Body
	}
	return ""
}
