package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/flutterbye/platform/internal/auth"
	"github.com/flutterbye/platform/internal/identity"
	_ "github.com/flutterbye/platform/testing"
)

type authFixture struct {
	handler    *auth.Handler
	router     chi.Router
	challenges *auth.ChallengeStore
	store      *identity.Store
	repo       *stubIdentityRepo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repo := newStubIdentityRepo()
	store := identity.NewStore(repo, nil)
	challenges := auth.NewChallengeStore(client, 5*time.Minute)
	limiter := auth.NewAttemptLimiter(client, 5, 15*time.Minute)
	verifier := auth.NewVerifier(challenges, limiter, store, nil)
	tokens := auth.NewTokenCodec("test-secret", time.Hour)
	resolver := auth.NewCredentialResolver(tokens, store)
	handler := auth.NewHandler(discardLogger(), challenges, verifier, tokens, resolver)

	router := chi.NewRouter()
	router.Route("/api/auth", handler.MountRoutes)
	router.Get("/api/admin/check", handler.HandleAdminCheck)

	return &authFixture{handler: handler, router: router, challenges: challenges, store: store, repo: repo}
}

func (f *authFixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func TestChallengeEndpoint(t *testing.T) {
	f := newAuthFixture(t)
	w := newWallet(t)

	res := f.post(t, "/api/auth/challenge", map[string]string{"walletAddress": w.address})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var payload struct {
		Message   string    `json:"message"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Message == "" || payload.ExpiresAt.IsZero() {
		t.Fatalf("incomplete challenge payload: %+v", payload)
	}
}

func TestChallengeEndpointRejectsShortAddress(t *testing.T) {
	f := newAuthFixture(t)
	res := f.post(t, "/api/auth/challenge", map[string]string{"walletAddress": "short"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestLoginFlow(t *testing.T) {
	f := newAuthFixture(t)
	w := newWallet(t)

	message, _, err := f.challenges.Issue(context.Background(), w.address)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	res := f.post(t, "/api/auth/login", map[string]string{
		"walletAddress": w.address,
		"signature":     w.sign(message),
		"message":       message,
		"deviceInfo":    "test-suite",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var payload struct {
		Identity *identity.Identity `json:"identity"`
		Token    string             `json:"token"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Token == "" {
		t.Fatal("expected a session token")
	}
	if payload.Identity == nil || payload.Identity.Role != identity.RoleUser {
		t.Fatalf("unexpected identity payload: %+v", payload.Identity)
	}

	// The minted token authenticates follow-up requests.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.Header.Set("Authorization", "Bearer "+payload.Token)
	userRes := httptest.NewRecorder()
	f.router.ServeHTTP(userRes, req)
	if userRes.Code != http.StatusOK {
		t.Fatalf("expected 200 from /user, got %d", userRes.Code)
	}
}

func TestLoginWithForgedSignature(t *testing.T) {
	f := newAuthFixture(t)
	w := newWallet(t)
	other := newWallet(t)

	message, _, err := f.challenges.Issue(context.Background(), w.address)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	res := f.post(t, "/api/auth/login", map[string]string{
		"walletAddress": w.address,
		"signature":     other.sign(message),
		"message":       message,
	})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	var problem struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &problem); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if problem.Type != "signature_invalid" {
		t.Fatalf("expected signature_invalid, got %q", problem.Type)
	}
}

func TestLoginWithoutChallenge(t *testing.T) {
	f := newAuthFixture(t)
	w := newWallet(t)
	message := "Flutterbye authentication: never-issued"

	res := f.post(t, "/api/auth/login", map[string]string{
		"walletAddress": w.address,
		"signature":     w.sign(message),
		"message":       message,
	})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	var problem struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &problem); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if problem.Type != "challenge_expired" {
		t.Fatalf("expected challenge_expired, got %q", problem.Type)
	}
}

func TestUserEndpointAnonymous(t *testing.T) {
	f := newAuthFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestAdminCheckAnonymousGetsGuest(t *testing.T) {
	f := newAuthFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/check", nil)
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var payload struct {
		IsAdmin     bool     `json:"isAdmin"`
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.IsAdmin || payload.Role != "guest" {
		t.Fatalf("expected guest answer, got %+v", payload)
	}
	if payload.Permissions == nil {
		t.Fatal("expected empty permissions array, not null")
	}
}

func TestAdminCheckAdminWallet(t *testing.T) {
	f := newAuthFixture(t)
	if err := f.repo.Upsert(context.Background(), &identity.Identity{WalletAddress: "admin-wallet", Role: identity.RoleAdmin}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/check", nil)
	req.Header.Set(auth.WalletHeader, "admin-wallet")
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	var payload struct {
		IsAdmin bool   `json:"isAdmin"`
		Role    string `json:"role"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.IsAdmin || payload.Role != "admin" {
		t.Fatalf("expected admin answer, got %+v", payload)
	}
}
