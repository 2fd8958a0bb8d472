package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/observability"
	"github.com/flutterbye/platform/internal/platform/httpx"
	"github.com/flutterbye/platform/internal/shared"
)

// Resolver maps an HTTP request's transport credential to an identity.
type Resolver interface {
	ResolveRequest(r *http.Request) (*identity.Identity, error)
}

// Middleware wires gate checks into the HTTP routing layer.
type Middleware struct {
	Gate     *Gate
	Resolver Resolver
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Protect resolves the caller's identity, stores it in context, and runs the
// feature gate against the request path. Anonymous callers pass through to
// ungoverned and role-free targets.
func (m Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := m.Resolver.ResolveRequest(r)
		if err != nil && !errors.Is(err, shared.ErrUnauthenticated) {
			if m.Logger != nil {
				m.Logger.Error("resolve credential", slog.Any("error", err))
			}
			// Authorization fails closed on internal errors.
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		if actor != nil {
			r = r.WithContext(shared.ContextWithPrincipal(r.Context(), actor))
		}
		verdict := m.Gate.CheckRoute(actor, r.URL.Path)
		if !verdict.Allowed {
			m.deny(w, r, verdict.Reason)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures the resolved caller holds at least the given role.
func (m Middleware) RequireRole(min identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := actorFromContext(r)
			if actor == nil {
				m.deny(w, r, shared.ErrUnauthenticated)
				return
			}
			if !actor.Role.AtLeast(min) {
				m.deny(w, r, shared.ErrInsufficientRole)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission ensures the resolved caller holds the permission, either
// explicitly or through its role.
func (m Middleware) RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := actorFromContext(r)
			if actor == nil {
				m.deny(w, r, shared.ErrUnauthenticated)
				return
			}
			if !m.Gate.HasPermission(actor, perm) {
				m.deny(w, r, shared.ErrInsufficientRole)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, reason error) {
	if m.Metrics != nil {
		m.Metrics.AuthzDenied(reasonLabel(reason))
	}
	if m.Logger != nil {
		m.Logger.Warn("request denied",
			slog.String("path", r.URL.Path),
			slog.Any("reason", reason))
	}
	httpx.RespondError(w, reason)
}

func actorFromContext(r *http.Request) *identity.Identity {
	actor, _ := shared.PrincipalFromContext(r.Context()).(*identity.Identity)
	return actor
}

func reasonLabel(reason error) string {
	switch {
	case errors.Is(reason, shared.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(reason, shared.ErrInsufficientRole):
		return "insufficient_role"
	case errors.Is(reason, shared.ErrFeatureDisabled):
		return "feature_disabled"
	default:
		return "other"
	}
}
