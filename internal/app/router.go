package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/arbiterhq/arbiter/internal/auth"
	"github.com/arbiterhq/arbiter/internal/permissions"
	"github.com/arbiterhq/arbiter/internal/posts"
	"github.com/arbiterhq/arbiter/internal/rbac"
	"github.com/arbiterhq/arbiter/internal/roles"
	"github.com/arbiterhq/arbiter/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthMiddleware     auth.Middleware
	RBACMiddleware     rbac.Middleware
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *permissions.Handler
	PostsHandler       *posts.Handler
}

// NewRouter constructs the chi.Router. Admin surfaces mount behind the
// authenticator plus an Admin role gate, mirroring the route map of the API.
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

	r.Route("/api/v1/users", params.UsersHandler.MountRoutes)
	r.Route("/api/v1/posts", params.PostsHandler.MountRoutes)

	adminGate := func(r chi.Router) {
		r.Use(params.AuthMiddleware.Authenticate)
		r.Use(params.RBACMiddleware.RequireRole("Admin"))
	}
	r.Route("/api/admin/permissions", func(r chi.Router) {
		adminGate(r)
		params.PermissionsHandler.MountRoutes(r)
	})
	r.Route("/api/admin/roles", func(r chi.Router) {
		adminGate(r)
		params.RolesHandler.MountRoutes(r)
	})

	return r
}
