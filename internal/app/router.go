package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sentinel-iam/sentinel/internal/auth"
	"github.com/sentinel-iam/sentinel/internal/featuregate"
	"github.com/sentinel-iam/sentinel/internal/observability"
	"github.com/sentinel-iam/sentinel/internal/platform/httpx"
	"github.com/sentinel-iam/sentinel/internal/rbac"
	"github.com/sentinel-iam/sentinel/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Gate           *featuregate.Gate
	RBACMiddleware rbac.Middleware
	AuthHandler    *auth.Handler
	UsersHandler   *users.Handler
	RolesHandler   *rbac.RolesHandler
	Metrics        *observability.Metrics
}

// NewRouter assembles the request pipeline. Authorization runs in a fixed
// order: the feature gate first, then bearer authentication, then per-route
// permission checks. There is exactly one decision point per concern.
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

	// The gate precedes authentication so a disabled family looks absent
	// even to authenticated callers.
	r.Use(params.Gate.Middleware)
	r.Use(params.RBACMiddleware.Authenticate)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.NotFound(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.NotFound(w)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	if params.RolesHandler != nil {
		r.Route("/roles", params.RolesHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
