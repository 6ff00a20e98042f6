package apperrors

import "errors"

// Sentinel errors shared across repositories, services and handlers.
// Handlers map these to HTTP status codes.
var (
	// ErrNotFound means the referenced item or session does not exist for the owner.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a duplicate item add or a submission against an already
	// completed session.
	ErrConflict = errors.New("conflict")

	// ErrUpstreamUnavailable means the question generator or answer grader
	// failed or timed out.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrValidation means a malformed request payload.
	ErrValidation = errors.New("validation failed")
)
