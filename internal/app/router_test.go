package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/flutterbye/platform/internal/auth"
	"github.com/flutterbye/platform/internal/authz"
	"github.com/flutterbye/platform/internal/features"
	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/shared"
	_ "github.com/flutterbye/platform/testing"
)

type identityMemRepo struct {
	mu         sync.Mutex
	identities map[string]*identity.Identity
}

func (r *identityMemRepo) GetByWallet(_ context.Context, wallet string) (*identity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.identities[wallet]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *id
	return &clone, nil
}

func (r *identityMemRepo) Upsert(_ context.Context, id *identity.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *id
	r.identities[id.WalletAddress] = &clone
	return nil
}

func (r *identityMemRepo) UpdateRole(_ context.Context, wallet string, role identity.Role, permissions []string) (*identity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.identities[wallet]
	if !ok {
		return nil, shared.ErrNotFound
	}
	id.Role = role
	id.Permissions = permissions
	clone := *id
	return &clone, nil
}

func (r *identityMemRepo) List(_ context.Context) ([]*identity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*identity.Identity, 0, len(r.identities))
	for _, id := range r.identities {
		clone := *id
		out = append(out, &clone)
	}
	return out, nil
}

type featureMemRepo struct {
	mu    sync.Mutex
	order []*features.Feature
}

func (r *featureMemRepo) List(_ context.Context) ([]*features.Feature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*features.Feature(nil), r.order...), nil
}

func (r *featureMemRepo) Upsert(_ context.Context, f *features.Feature) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.order {
		if existing.ID == f.ID {
			r.order[i] = f
			return nil
		}
	}
	r.order = append(r.order, f)
	return nil
}

func (r *featureMemRepo) Delete(_ context.Context, featureID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.order {
		if existing.ID == featureID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return nil
		}
	}
	return nil
}

// newTestRouter assembles the full router over in-memory stores, seeded with
// the default feature set and a user plus an admin wallet.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Now().UTC()

	idRepo := &identityMemRepo{identities: map[string]*identity.Identity{
		"user-wallet": {
			WalletAddress: "user-wallet",
			Role:          identity.RoleUser,
			CreatedAt:     now,
			LastAuthAt:    now,
		},
		"admin-wallet": {
			WalletAddress: "admin-wallet",
			Role:          identity.RoleAdmin,
			CreatedAt:     now,
			LastAuthAt:    now,
		},
	}}
	store := identity.NewStore(idRepo, logger)
	require.NoError(t, store.Warm(context.Background()))

	registry := features.NewRegistry(&featureMemRepo{}, logger, nil)
	require.NoError(t, registry.Load(context.Background()))
	require.NoError(t, registry.EnsureDefaults(context.Background()))

	challenges := auth.NewChallengeStore(rdb, time.Minute)
	limiter := auth.NewAttemptLimiter(rdb, 5, time.Minute)
	verifier := auth.NewVerifier(challenges, limiter, store, logger)
	tokens := auth.NewTokenCodec("test-secret", time.Hour)
	resolver := auth.NewCredentialResolver(tokens, store)
	authHandler := auth.NewHandler(logger, challenges, verifier, tokens, resolver)

	gate := authz.NewGate(store, registry)
	guard := &authz.Middleware{Gate: gate, Resolver: resolver, Logger: logger}

	return NewRouter(RouterParams{
		Logger:          logger,
		Config:          &Config{AppRequestTimeout: 5 * time.Second},
		AuthHandler:     authHandler,
		FeatureHandler:  features.NewHandler(logger, registry, nil),
		IdentityHandler: identity.NewHandler(logger, store),
		Authz:           guard,
	})
}

func get(t *testing.T, router http.Handler, target, wallet string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if wallet != "" {
		req.Header.Set(auth.WalletHeader, wallet)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type adminCheckBody struct {
	IsAdmin     bool     `json:"isAdmin"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func TestAdminCheckAnswersEveryCaller(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name    string
		wallet  string
		isAdmin bool
		role    string
	}{
		{name: "anonymous", wallet: "", isAdmin: false, role: "guest"},
		{name: "plain user", wallet: "user-wallet", isAdmin: false, role: "user"},
		{name: "admin", wallet: "admin-wallet", isAdmin: true, role: "admin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(t, router, "/api/admin/check", tc.wallet)
			require.Equal(t, http.StatusOK, rec.Code)

			var body adminCheckBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tc.isAdmin, body.IsAdmin)
			require.Equal(t, tc.role, body.Role)
			require.NotNil(t, body.Permissions)
		})
	}
}

func TestAdminFeaturesRequiresAdmin(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name   string
		wallet string
		want   int
	}{
		{name: "anonymous", wallet: "", want: http.StatusUnauthorized},
		{name: "plain user", wallet: "user-wallet", want: http.StatusForbidden},
		{name: "admin", wallet: "admin-wallet", want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(t, router, "/api/admin/features", tc.wallet)
			require.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestNavigationOpenToAnonymous(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/api/features/navigation", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		NavItems []string `json:"navItems"`
		Routes   []string `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Contains(t, view.NavItems, "Home")
}

func TestAuthChallengeMounted(t *testing.T) {
	router := newTestRouter(t)

	payload := bytes.NewBufferString(`{"walletAddress":"11111111111111111111111111111111"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/challenge", payload)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	rec := get(t, router, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
