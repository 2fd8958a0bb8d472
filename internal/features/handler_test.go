package features

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/flutterbye/platform/internal/shared"
)

type testPrincipal struct {
	wallet string
	role   string
}

func (p testPrincipal) Wallet() string   { return p.wallet }
func (p testPrincipal) RoleName() string { return p.role }

func newFeatureRouter(t *testing.T) (chi.Router, *Registry) {
	t.Helper()
	reg := seededRegistry(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, reg, nil)

	router := chi.NewRouter()
	router.Route("/api/features", handler.MountPublicRoutes)
	router.Route("/api/admin/features", handler.MountAdminRoutes)
	return router, reg
}

func adminRequest(method, path string, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	ctx := shared.ContextWithPrincipal(req.Context(), testPrincipal{wallet: "admin-wallet", role: "admin"})
	return req.WithContext(ctx)
}

func TestNavigationEndpoint(t *testing.T) {
	router, _ := newFeatureRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/features/navigation", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var view NavigationView
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &view))
	require.Contains(t, view.NavItems, "mint")
	require.NotContains(t, view.NavItems, "flutterai")
}

func TestEnabledEndpoint(t *testing.T) {
	router, _ := newFeatureRouter(t)

	for path, want := range map[string]bool{
		"/api/features/mint/enabled":      true,
		"/api/features/flutterai/enabled": false,
		"/api/features/unknown/enabled":   false,
	} {
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, res.Code, path)
		var payload map[string]bool
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
		require.Equal(t, want, payload["enabled"], path)
	}
}

func TestToggleEndpointStampsActor(t *testing.T) {
	router, reg := newFeatureRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodPost, "/api/admin/features/mint/toggle", map[string]bool{"enabled": false}))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	require.False(t, reg.IsEnabled("mint"))

	f, ok := reg.Get("mint")
	require.True(t, ok)
	require.Equal(t, "admin-wallet", f.UpdatedBy)
}

func TestCreateEndpoint(t *testing.T) {
	router, reg := newFeatureRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodPost, "/api/admin/features", map[string]any{
		"id":           "marketplace",
		"name":         "Marketplace",
		"category":     "consumer",
		"enabled":      true,
		"requiredRole": "user",
		"routes":       []string{"/marketplace"},
		"navItems":     []string{"marketplace"},
	}))
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	require.True(t, reg.IsEnabled("marketplace"))

	// Same id again conflicts.
	res = httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodPost, "/api/admin/features", map[string]any{
		"id":       "marketplace",
		"name":     "Marketplace",
		"category": "consumer",
	}))
	require.Equal(t, http.StatusConflict, res.Code)
}

func TestCreateEndpointRejectsBadCategory(t *testing.T) {
	router, _ := newFeatureRouter(t)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodPost, "/api/admin/features", map[string]any{
		"id":       "bad",
		"name":     "Bad",
		"category": "experimental",
	}))
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestUpdateEndpointUnknownFeature(t *testing.T) {
	router, _ := newFeatureRouter(t)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodPatch, "/api/admin/features/ghost", map[string]any{"name": "Ghost"}))
	require.Equal(t, http.StatusNotFound, res.Code)
}

func TestBulkEndpoint(t *testing.T) {
	router, reg := newFeatureRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodPost, "/api/admin/features/bulk", map[string]any{
		"updates": []map[string]any{
			{"featureId": "mint", "enabled": false},
			{"featureId": "flutterai", "enabled": true},
			{"featureId": "ghost", "enabled": true},
		},
	}))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	var payload map[string]int
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.Equal(t, 2, payload["updated"])
	require.False(t, reg.IsEnabled("mint"))
	require.True(t, reg.IsEnabled("flutterai"))
}

func TestDeleteEndpoint(t *testing.T) {
	router, reg := newFeatureRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodDelete, "/api/admin/features/flutterai", nil))
	require.Equal(t, http.StatusNoContent, res.Code)
	_, ok := reg.Get("flutterai")
	require.False(t, ok)
}

func TestStatsEndpoint(t *testing.T) {
	router, _ := newFeatureRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, adminRequest(http.MethodGet, "/api/admin/features/stats", nil))
	require.Equal(t, http.StatusOK, res.Code)

	var stats Stats
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &stats))
	require.Equal(t, 4, stats.Total)
	require.Equal(t, 1, stats.Disabled)
}
