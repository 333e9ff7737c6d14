package model

import (
	"errors"
	"fmt"
)

// Error kinds shared across the service. Components wrap these with context
// via fmt.Errorf and %w; the HTTP layer maps them to status codes with
// errors.Is. Nothing below the handlers knows about HTTP statuses.
var (
	// ErrNotFound covers missing upstream resources, empty rosters, fuzzy
	// matches below threshold, and absent snapshots.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed tags, names, or period inputs,
	// always before any network call.
	ErrValidation = errors.New("invalid input")

	// ErrRateLimited is returned when the local fixed-window limiter denies
	// a request.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrAuthDenied is returned when the upstream API rejects our credentials.
	ErrAuthDenied = errors.New("upstream access denied")

	// ErrUpstreamTimeout is returned when an upstream call exceeds its
	// bounded timeout.
	ErrUpstreamTimeout = errors.New("upstream request timed out")

	// ErrUpstreamUnavailable is returned on connection-level upstream failure.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrStorage is returned when a snapshot batch fails to commit. The batch
	// is always rolled back, never partially applied.
	ErrStorage = errors.New("storage failure")
)

// UpstreamStatusError is an upstream response with an unexpected non-2xx
// status. It carries the original status and body for logging and wraps a
// generic sentinel so callers can match it without knowing the status.
type UpstreamStatusError struct {
	Status int
	Body   string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// ErrUpstream is matched by every UpstreamStatusError.
var ErrUpstream = errors.New("upstream error")

func (e *UpstreamStatusError) Unwrap() error { return ErrUpstream }
