package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newIdentityRouter(t *testing.T) (chi.Router, *Store) {
	t.Helper()
	repo := newMemoryRepo()
	require.NoError(t, repo.Upsert(context.Background(), &Identity{WalletAddress: "target", Role: RoleUser}))

	store := NewStore(repo, nil)
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), store)

	router := chi.NewRouter()
	router.Route("/api/admin/identities", handler.MountAdminRoutes)
	return router, store
}

func TestSetRoleEndpoint(t *testing.T) {
	router, store := newIdentityRouter(t)

	body, _ := json.Marshal(map[string]any{"role": "admin", "permissions": []string{"identities.view"}})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/identities/target/role", bytes.NewReader(body))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	id, err := store.Resolve(context.Background(), "target")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, id.Role)
	require.Contains(t, id.Permissions, "identities.view")
}

func TestSetRoleEndpointRejectsUnknownRole(t *testing.T) {
	router, _ := newIdentityRouter(t)

	body, _ := json.Marshal(map[string]any{"role": "owner"})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/identities/target/role", bytes.NewReader(body))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestSetRoleEndpointUnknownWallet(t *testing.T) {
	router, _ := newIdentityRouter(t)

	body, _ := json.Marshal(map[string]any{"role": "admin"})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/identities/ghost/role", bytes.NewReader(body))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusNotFound, res.Code)
}
