package shared

import "errors"

// Authentication errors.
var (
	// ErrChallengeExpired indicates the signed message is not the currently
	// issued challenge for the address, or its freshness window has passed.
	ErrChallengeExpired = errors.New("challenge expired")
	// ErrSignatureInvalid indicates the signature does not verify against the
	// wallet public key.
	ErrSignatureInvalid = errors.New("signature invalid")
	// ErrTooManyAttempts indicates the address exceeded its failed-attempt budget.
	ErrTooManyAttempts = errors.New("too many attempts")
)

// Authorization errors.
var (
	// ErrUnauthenticated indicates no identity could be resolved for the transport.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInsufficientRole indicates the actor's role is below a governing feature's requirement.
	ErrInsufficientRole = errors.New("insufficient role")
	// ErrFeatureDisabled indicates a governing feature is currently disabled.
	ErrFeatureDisabled = errors.New("feature disabled")
)

// Realtime errors.
var (
	// ErrConnectionClosed indicates the connection already left the open state.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrMalformedEvent indicates an event payload that could not be decoded.
	ErrMalformedEvent = errors.New("malformed event")
)

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("not found")
