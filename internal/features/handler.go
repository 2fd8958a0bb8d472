package features

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/platform/httpx"
	"github.com/flutterbye/platform/internal/shared"
)

// Handler wires the public polling endpoints and the admin mutation surface.
type Handler struct {
	logger    *slog.Logger
	registry  *Registry
	navCache  *NavCache
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, registry *Registry, navCache *NavCache) *Handler {
	return &Handler{
		logger:    logger,
		registry:  registry,
		navCache:  navCache,
		validator: validator.New(),
	}
}

// MountPublicRoutes registers the client polling endpoints.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/navigation", h.handleNavigation)
	r.Get("/{id}/enabled", h.handleEnabled)
}

// MountAdminRoutes registers the admin mutation endpoints. Authorization is
// enforced by the gate middleware mounted above these routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/stats", h.handleStats)
	r.Post("/bulk", h.handleBulk)
	r.Patch("/{id}", h.handleUpdate)
	r.Post("/{id}/toggle", h.handleToggle)
	r.Delete("/{id}", h.handleDelete)
}

func (h *Handler) handleNavigation(w http.ResponseWriter, r *http.Request) {
	view, err := h.navCache.Fetch(r.Context(), h.registry)
	if err != nil {
		h.logger.Error("navigation projection", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleEnabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	httpx.JSON(w, http.StatusOK, map[string]bool{"enabled": h.registry.IsEnabled(id)})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.registry.List())
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.registry.Stats())
}

type createFeatureRequest struct {
	ID           string   `json:"id" validate:"required"`
	Name         string   `json:"name" validate:"required"`
	Description  string   `json:"description"`
	Category     string   `json:"category" validate:"required,oneof=core enterprise consumer ai social admin"`
	Enabled      bool     `json:"enabled"`
	RequiredRole *string  `json:"requiredRole" validate:"omitempty,oneof=guest user admin super_admin"`
	Routes       []string `json:"routes"`
	APIEndpoints []string `json:"apiEndpoints"`
	NavItems     []string `json:"navItems"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createFeatureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	f := &Feature{
		ID:           req.ID,
		Name:         req.Name,
		Description:  req.Description,
		Category:     Category(req.Category),
		Enabled:      req.Enabled,
		Routes:       req.Routes,
		APIEndpoints: req.APIEndpoints,
		NavItems:     req.NavItems,
	}
	if req.RequiredRole != nil {
		role := identity.Role(*req.RequiredRole)
		f.RequiredRole = &role
	}
	created, err := h.registry.Create(r.Context(), f, actorWallet(r))
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			httpx.Problem(w, http.StatusConflict, "duplicate", "Duplicate", "feature id already exists")
			return
		}
		h.logger.Error("create feature", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

type updateFeatureRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Category     *string  `json:"category" validate:"omitempty,oneof=core enterprise consumer ai social admin"`
	Enabled      *bool    `json:"enabled"`
	RequiredRole *string  `json:"requiredRole" validate:"omitempty,oneof=guest user admin super_admin"`
	Routes       []string `json:"routes"`
	APIEndpoints []string `json:"apiEndpoints"`
	NavItems     []string `json:"navItems"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateFeatureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	updated, err := h.registry.Update(r.Context(), chi.URLParam(r, "id"), func(f *Feature) {
		if req.Name != nil {
			f.Name = *req.Name
		}
		if req.Description != nil {
			f.Description = *req.Description
		}
		if req.Category != nil {
			f.Category = Category(*req.Category)
		}
		if req.Enabled != nil {
			f.Enabled = *req.Enabled
		}
		if req.RequiredRole != nil {
			role := identity.Role(*req.RequiredRole)
			f.RequiredRole = &role
		}
		if req.Routes != nil {
			f.Routes = req.Routes
		}
		if req.APIEndpoints != nil {
			f.APIEndpoints = req.APIEndpoints
		}
		if req.NavItems != nil {
			f.NavItems = req.NavItems
		}
	}, actorWallet(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	updated, err := h.registry.SetEnabled(r.Context(), chi.URLParam(r, "id"), req.Enabled, actorWallet(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

type bulkRequest struct {
	Updates []struct {
		FeatureID string `json:"featureId"`
		Enabled   bool   `json:"enabled"`
	} `json:"updates" validate:"required,min=1"`
}

func (h *Handler) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	updates := make(map[string]bool, len(req.Updates))
	for _, u := range req.Updates {
		updates[u.FeatureID] = u.Enabled
	}
	applied, err := h.registry.BulkSetEnabled(r.Context(), updates, actorWallet(r))
	if err != nil {
		h.logger.Error("bulk toggle", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"updated": applied})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func actorWallet(r *http.Request) string {
	if p := shared.PrincipalFromContext(r.Context()); p != nil {
		return p.Wallet()
	}
	return ""
}
