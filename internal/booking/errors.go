package booking

import "errors"

var (
	// ErrSessionNotFound means the workflow session is unknown or expired.
	ErrSessionNotFound = errors.New("booking: session not found or expired")
	// ErrSessionCancelled guards every operation after a confirmed
	// cancellation: the workflow is terminal and must not resume.
	ErrSessionCancelled = errors.New("booking: session was cancelled")
	// ErrMissingPrecondition is the defect-guard for views invoked without
	// the data they require. Callers route to a safe fallback, never throw.
	ErrMissingPrecondition = errors.New("booking: required selection is missing")
	// ErrInvalidState rejects an operation that the current workflow state
	// does not offer.
	ErrInvalidState = errors.New("booking: operation not available in current state")
	// ErrNoCancelRequested rejects a cancel confirmation that was never
	// requested; cancellation is an explicit two-step action.
	ErrNoCancelRequested = errors.New("booking: no cancellation was requested")
)
