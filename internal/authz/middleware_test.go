package authz_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flutterbye/platform/internal/authz"
	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/shared"
)

type staticResolver struct {
	id  *identity.Identity
	err error
}

func (s staticResolver) ResolveRequest(r *http.Request) (*identity.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.id == nil {
		return nil, shared.ErrUnauthenticated
	}
	return s.id, nil
}

func protectedRouter(t *testing.T, resolver authz.Resolver) http.Handler {
	t.Helper()
	gate, _ := newGate(t)
	mw := authz.Middleware{Gate: gate, Resolver: resolver}

	var inner http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mw.Protect(inner)
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func TestProtectAllowsUnmanagedAnonymous(t *testing.T) {
	h := protectedRouter(t, staticResolver{})
	require.Equal(t, http.StatusOK, get(h, "/anything").Code)
}

func TestProtectDeniesGatedAnonymous(t *testing.T) {
	h := protectedRouter(t, staticResolver{})
	require.Equal(t, http.StatusUnauthorized, get(h, "/chat").Code)
}

func TestProtectDisabledFeature(t *testing.T) {
	admin := &identity.Identity{WalletAddress: "a", Role: identity.RoleAdmin}
	h := protectedRouter(t, staticResolver{id: admin})
	require.Equal(t, http.StatusServiceUnavailable, get(h, "/flutterai").Code)
}

func TestProtectFailsClosedOnResolverError(t *testing.T) {
	h := protectedRouter(t, staticResolver{err: errors.New("store down")})
	require.Equal(t, http.StatusUnauthorized, get(h, "/anything").Code)
}

func TestProtectStoresPrincipal(t *testing.T) {
	user := &identity.Identity{WalletAddress: "w1", Role: identity.RoleUser}
	gate, _ := newGate(t)
	mw := authz.Middleware{Gate: gate, Resolver: staticResolver{id: user}}

	var seen shared.Principal
	h := mw.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.PrincipalFromContext(r.Context())
	}))
	get(h, "/chat")
	require.NotNil(t, seen)
	require.Equal(t, "w1", seen.Wallet())
}

func TestRequireRole(t *testing.T) {
	gate, _ := newGate(t)
	user := &identity.Identity{WalletAddress: "u", Role: identity.RoleUser}
	admin := &identity.Identity{WalletAddress: "a", Role: identity.RoleAdmin}

	for _, tc := range []struct {
		name  string
		actor *identity.Identity
		want  int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"user", user, http.StatusForbidden},
		{"admin", admin, http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mw := authz.Middleware{Gate: gate, Resolver: staticResolver{id: tc.actor}}
			h := mw.Protect(mw.RequireRole(identity.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))
			require.Equal(t, tc.want, get(h, "/unmanaged").Code)
		})
	}
}

func TestRequirePermission(t *testing.T) {
	gate, _ := newGate(t)
	user := &identity.Identity{WalletAddress: "u", Role: identity.RoleUser}
	granted := &identity.Identity{WalletAddress: "g", Role: identity.RoleUser, Permissions: []string{"features.view"}}
	root := &identity.Identity{WalletAddress: "r", Role: identity.RoleSuperAdmin}

	for _, tc := range []struct {
		name  string
		actor *identity.Identity
		want  int
	}{
		{"plain user", user, http.StatusForbidden},
		{"explicit grant", granted, http.StatusOK},
		{"super admin", root, http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mw := authz.Middleware{Gate: gate, Resolver: staticResolver{id: tc.actor}}
			h := mw.Protect(mw.RequirePermission("features.view")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))
			require.Equal(t, tc.want, get(h, "/unmanaged").Code)
		})
	}
}
