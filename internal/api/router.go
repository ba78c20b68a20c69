package api

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/go-chi/chi/v5"

	"github.com/daap14/useradmin/internal/api/handler"
	"github.com/daap14/useradmin/internal/api/middleware"
	"github.com/daap14/useradmin/internal/config"
	"github.com/daap14/useradmin/internal/metrics"
	"github.com/daap14/useradmin/internal/rbac"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger    handler.Pinger
	RedisPinger handler.Pinger
	Version     string
	OpenAPISpec []byte
	Features    config.Features
	Metrics     *metrics.Metrics

	Auth      middleware.Authenticator
	Users     handler.UserService
	Projector interface {
		handler.UserProjector
		handler.TransferCandidateProjector
	}
	Creator  handler.UserCreator
	Projects handler.PersonalProjectCreator
	Hub      handler.ConnectionAttacher
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.RedisPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	settingsHandler := handler.NewSettingsHandler(deps.Features)
	r.Get("/settings", settingsHandler.ServeHTTP)

	if deps.Auth == nil {
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Auth))

		if deps.Users != nil && deps.Projector != nil {
			userHandler := handler.NewUserHandler(deps.Users, deps.Projector, deps.Creator, deps.Projects)
			r.Route("/users", func(r chi.Router) {
				r.With(middleware.RequireScope(rbac.ScopeUserList)).Get("/", userHandler.List)
				r.With(middleware.RequireScope(rbac.ScopeUserCreate)).Post("/", userHandler.Create)
				r.With(middleware.RequireScope(rbac.ScopeUserList)).Get("/by-email/{email}", userHandler.GetByEmail)
				r.With(middleware.RequireScope(rbac.ScopeUserDelete)).Delete("/{id}", userHandler.Delete)
				r.With(middleware.RequireScope(rbac.ScopeUserChangeRole)).Patch("/{id}/role", userHandler.UpdateRole)
			})

			projectHandler := handler.NewProjectHandler(deps.Projector)
			r.With(middleware.RequireScope(rbac.ScopeProjectList)).Get("/projects/transfer-candidates", projectHandler.TransferCandidates)
		}

		if deps.Hub != nil {
			eventsHandler := handler.NewEventsHandler(deps.Hub)
			r.Get("/events", eventsHandler.ServeHTTP)
		}
	})

	return r
}
