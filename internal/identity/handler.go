package identity

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/flutterbye/platform/internal/platform/httpx"
)

// Handler wires the super_admin identity management endpoints.
type Handler struct {
	logger    *slog.Logger
	store     *Store
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store, validator: validator.New()}
}

// MountAdminRoutes registers identity management routes. Authorization is
// enforced by the gate middleware mounted above these routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/{address}/role", h.handleSetRole)
}

type setRoleRequest struct {
	Role        string   `json:"role" validate:"required,oneof=guest user admin super_admin"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	id, err := h.store.SetRole(r.Context(), chi.URLParam(r, "address"), Role(req.Role), req.Permissions)
	if err != nil {
		h.logger.Error("set role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"identity": id})
}
