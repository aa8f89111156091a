package scheduling

import "errors"

// Domain error categories surfaced by the scheduling engine. Handlers map
// them onto HTTP status codes; none of them are retried internally.
// Anything else bubbling out of the engine is a persistence failure and is
// reported as a generic internal error.
var (
	// ErrValidation marks malformed input caught before any persistence call.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced doctor or appointment that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks a caller that is neither a party to the appointment
	// nor an admin, or whose role lacks the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict marks a temporal overlap with an existing active booking.
	ErrConflict = errors.New("scheduling conflict")

	// ErrStateGuard marks a transition requested from a state or time window
	// that disallows it.
	ErrStateGuard = errors.New("state guard violated")
)
