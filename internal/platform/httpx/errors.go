package httpx

import (
	"errors"
	"net/http"

	"github.com/flutterbye/platform/internal/shared"
)

// Sentinel errors for the transport layer.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
)

// RespondError maps domain errors to HTTP responses. Every kind in the
// platform taxonomy stays distinct on the wire so clients can render the
// right remediation.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrChallengeExpired):
		Problem(w, http.StatusUnauthorized, "challenge_expired", "Challenge Expired", "request a new login challenge")
	case errors.Is(err, shared.ErrSignatureInvalid):
		Problem(w, http.StatusUnauthorized, "signature_invalid", "Signature Invalid", "signature does not match the wallet")
	case errors.Is(err, shared.ErrTooManyAttempts):
		Problem(w, http.StatusTooManyRequests, "too_many_attempts", "Too Many Attempts", "retry after the lockout window")
	case errors.Is(err, shared.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "unauthenticated", "Unauthenticated", "connect a wallet to continue")
	case errors.Is(err, shared.ErrInsufficientRole):
		Problem(w, http.StatusForbidden, "insufficient_role", "Insufficient Role", "")
	case errors.Is(err, shared.ErrFeatureDisabled):
		Problem(w, http.StatusServiceUnavailable, "feature_disabled", "Feature Unavailable", "this feature has been disabled by administrators")
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "not_found", "Not Found", "")
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "validation_failed", "Validation Failed", "")
	default:
		Problem(w, http.StatusInternalServerError, "internal", "Internal Error", "")
	}
}
