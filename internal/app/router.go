package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flutterbye/platform/internal/auth"
	"github.com/flutterbye/platform/internal/authz"
	"github.com/flutterbye/platform/internal/features"
	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/observability"
	"github.com/flutterbye/platform/internal/realtime"
	"github.com/flutterbye/platform/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthHandler     *auth.Handler
	FeatureHandler  *features.Handler
	IdentityHandler *identity.Handler
	RealtimeHandler *realtime.Handler
	JobHandler      *jobs.Handler
	Authz           *authz.Middleware
	Pool            *pgxpool.Pool
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with Flutterbye defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	if params.RealtimeHandler != nil {
		r.Handle("/ws", params.RealtimeHandler.HTTPHandler())
	}

	r.Route("/api", func(api chi.Router) {
		// The admin check answers guests with their effective role, so it
		// stays outside the gate even though it lives under /api/admin.
		api.Get("/admin/check", params.AuthHandler.HandleAdminCheck)

		api.Group(func(gated chi.Router) {
			gated.Use(params.Authz.Protect)

			gated.Route("/auth", func(ar chi.Router) {
				ar.Use(AuthRateLimit())
				params.AuthHandler.MountRoutes(ar)
			})

			gated.Route("/features", func(fr chi.Router) {
				params.FeatureHandler.MountPublicRoutes(fr)
			})

			gated.Route("/admin/features", func(fr chi.Router) {
				fr.Use(params.Authz.RequireRole(identity.RoleAdmin))
				params.FeatureHandler.MountAdminRoutes(fr)
			})

			if params.JobHandler != nil {
				gated.Route("/admin/jobs", func(jr chi.Router) {
					jr.Use(params.Authz.RequireRole(identity.RoleAdmin))
					params.JobHandler.MountRoutes(jr)
				})
			}

			gated.Route("/admin/identities", func(ir chi.Router) {
				ir.Use(params.Authz.RequireRole(identity.RoleSuperAdmin))
				params.IdentityHandler.MountAdminRoutes(ir)
			})
		})
	})

	return r
}
