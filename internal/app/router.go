package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/aegis-admin/aegis/internal/auth"
	"github.com/aegis-admin/aegis/internal/rbac"
	"github.com/aegis-admin/aegis/internal/roles"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	AuthHandler  *auth.Handler
	RolesHandler *roles.Handler
	Guard        *auth.Guard
	RBAC         rbac.Middleware
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		// Credential-guessing protection on top of the global limit.
		r.Group(func(r chi.Router) {
			r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
			params.AuthHandler.MountPublicRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(params.Guard.RequireAuth)
			params.AuthHandler.MountProtectedRoutes(r)
		})
	})

	r.Route("/roles", func(r chi.Router) {
		r.Use(params.Guard.RequireAuth)
		r.With(params.RBAC.RequirePermission("system:role:create")).Post("/", params.RolesHandler.Create)
		r.With(params.RBAC.RequirePermission("system:role:list")).Get("/", params.RolesHandler.FindAll)
		r.With(params.RBAC.RequirePermission("system:role:remove")).Post("/batch-remove", params.RolesHandler.BatchRemove)
		r.With(params.RBAC.RequirePermission("system:role:read")).Get("/{id}", params.RolesHandler.FindOne)
		r.With(params.RBAC.RequirePermission("system:role:update")).Patch("/{id}", params.RolesHandler.Update)
		r.With(params.RBAC.RequirePermission("system:role:remove")).Delete("/{id}", params.RolesHandler.Remove)
	})

	return r
}
