package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/platform/httpx"
	"github.com/flutterbye/platform/internal/shared"
)

// Handler wires HTTP endpoints for wallet authentication flows.
type Handler struct {
	logger     *slog.Logger
	challenges *ChallengeStore
	verifier   *Verifier
	tokens     *TokenCodec
	resolver   *CredentialResolver
	validator  *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, challenges *ChallengeStore, verifier *Verifier, tokens *TokenCodec, resolver *CredentialResolver) *Handler {
	return &Handler{
		logger:     logger,
		challenges: challenges,
		verifier:   verifier,
		tokens:     tokens,
		resolver:   resolver,
		validator:  validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/challenge", h.handleChallenge)
	r.Post("/login", h.handleLogin)
	r.Get("/user", h.handleUser)
}

type challengeRequest struct {
	WalletAddress string `json:"walletAddress" validate:"required,min=32,max=44"`
}

type challengeResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	message, expiresAt, err := h.challenges.Issue(r.Context(), req.WalletAddress)
	if err != nil {
		h.logger.Error("issue challenge", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, challengeResponse{Message: message, ExpiresAt: expiresAt})
}

type loginRequest struct {
	WalletAddress string `json:"walletAddress" validate:"required,min=32,max=44"`
	Signature     string `json:"signature" validate:"required"`
	Message       string `json:"message" validate:"required"`
	DeviceInfo    string `json:"deviceInfo"`
}

type loginResponse struct {
	Identity *identity.Identity `json:"identity"`
	Token    string             `json:"token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	id, err := h.verifier.Verify(r.Context(), req.WalletAddress, req.Signature, req.Message)
	if err != nil {
		if !errors.Is(err, shared.ErrChallengeExpired) &&
			!errors.Is(err, shared.ErrSignatureInvalid) &&
			!errors.Is(err, shared.ErrTooManyAttempts) {
			h.logger.Error("verify login", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	token, err := h.tokens.Mint(id)
	if err != nil {
		h.logger.Error("mint session token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("wallet authenticated",
		slog.String("wallet", id.WalletAddress),
		slog.String("role", string(id.Role)),
		slog.String("device", req.DeviceInfo))
	httpx.JSON(w, http.StatusOK, loginResponse{Identity: id, Token: token})
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolver.ResolveRequest(r)
	if err != nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"identity": id})
}

type adminCheckResponse struct {
	IsAdmin     bool     `json:"isAdmin"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// HandleAdminCheck reports the caller's admin standing. Anonymous callers get
// a guest answer rather than an error so dashboards can render either way.
func (h *Handler) HandleAdminCheck(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolver.ResolveRequest(r)
	if err != nil {
		httpx.JSON(w, http.StatusOK, adminCheckResponse{Role: string(identity.RoleGuest), Permissions: []string{}})
		return
	}
	perms := id.Permissions
	if perms == nil {
		perms = []string{}
	}
	httpx.JSON(w, http.StatusOK, adminCheckResponse{
		IsAdmin:     id.IsAdmin(),
		Role:        string(id.Role),
		Permissions: perms,
	})
}
