// Package driver defines the contract every storage backend implements, the
// error taxonomy shared by all backends, and the registry that maps provider
// keys to driver factories.
package driver

import (
	"errors"
	"fmt"
)

// Sentinel errors for backend failure classification.
// Use errors.Is(err, driver.ErrNotAuthorized) to check.
var (
	// ErrConfig indicates missing or malformed backend configuration,
	// detected at driver construction. Never recovered automatically.
	ErrConfig = errors.New("driver: invalid configuration")

	// ErrInit indicates an unrecognized top-level configuration shape,
	// e.g. an unknown provider key. Fatal to the calling operation.
	ErrInit = errors.New("driver: initialization failed")

	// ErrNotAuthorized indicates a missing, rejected, or expired token.
	// The caller must re-trigger the authorization flow.
	ErrNotAuthorized = errors.New("driver: not authorized")

	// ErrNotFound indicates the requested id or path resolves to no entry.
	ErrNotFound = errors.New("driver: entry not found")

	// ErrTransport indicates any other error surfaced by the remote API
	// (rate limit, server error, network failure). Propagated to the
	// caller unmodified — the core never retries.
	ErrTransport = errors.New("driver: transport error")
)

// RequestError carries the HTTP status and response detail of a backend API
// failure. It wraps a sentinel so callers can classify with errors.Is while
// still branching on backend-specific detail if needed.
type RequestError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("driver: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
