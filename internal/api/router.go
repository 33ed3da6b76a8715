package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/good-yellow-bee/taskboard/internal/api/members"
	"github.com/good-yellow-bee/taskboard/internal/api/middleware"
	"github.com/good-yellow-bee/taskboard/internal/api/projects"
	"github.com/good-yellow-bee/taskboard/internal/api/respond"
	"github.com/good-yellow-bee/taskboard/internal/api/tasks"
	"github.com/good-yellow-bee/taskboard/internal/api/users"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	routeMetrics := middleware.NewRouteMetrics()
	requireAuth := middleware.JWTAuth(s.jwt)
	perUser := middleware.RateLimitByUser(s.userLimiter)

	// Global middleware
	if s.config.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(routeMetrics.Middleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(chimw.StripSlashes)
	r.Use(chimw.Timeout(s.config.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Err(w, respond.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Err(w, respond.ErrMethodNotAllowed)
	})

	r.Route("/users", func(r chi.Router) {
		userHandler := users.NewHandler(s.services.Users)

		// Public credential endpoints with IP rate limiting
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(s.ipLimiter))
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
			r.Post("/refresh", userHandler.Refresh)
			r.Post("/logout", userHandler.Logout)
		})

		// Public directory
		r.Get("/", userHandler.List)
		r.Get("/{id}", userHandler.GetByID)

		// Caller and self-service endpoints
		r.Group(func(r chi.Router) {
			r.Use(requireAuth, perUser)
			r.Post("/me", userHandler.Me)
			r.Get("/me", userHandler.Me)

			r.With(middleware.RequireSelf("Not authorized to update this user")).Put("/{id}", userHandler.Update)
			r.With(middleware.RequireSelf("Not authorized to update this user")).Patch("/{id}", userHandler.Update)
			r.With(middleware.RequireSelf("Not authorized to delete this user")).Delete("/{id}", userHandler.Delete)
		})
	})

	r.Route("/projects", func(r chi.Router) {
		r.Use(requireAuth, perUser)

		projectHandler := projects.NewHandler(s.services.Projects)
		memberHandler := members.NewHandler(s.services.Members)

		r.Get("/", projectHandler.List)
		r.Post("/", projectHandler.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", projectHandler.GetByID)
			r.Put("/", projectHandler.Update)
			r.Patch("/", projectHandler.Update)
			r.Delete("/", projectHandler.Delete)

			r.Route("/members", func(r chi.Router) {
				r.Get("/", memberHandler.List)
				r.Post("/", memberHandler.Add)
				r.Put("/{member_id}", memberHandler.Update)
				r.Patch("/{member_id}", memberHandler.Update)
				r.Delete("/{member_id}", memberHandler.Remove)
			})
		})
	})

	r.Route("/tasks", func(r chi.Router) {
		taskHandler := tasks.NewHandler(s.services.Tasks)

		listAuth := requireAuth
		if !s.services.Tasks.RequiresMembership() {
			listAuth = middleware.OptionalJWTAuth(s.jwt)
		}

		r.With(requireAuth, perUser).Get("/my-tasks", taskHandler.MyTasks)

		r.Route("/{project_id}/tasks", func(r chi.Router) {
			r.With(listAuth, perUser).Get("/", taskHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, perUser)
				r.Post("/", taskHandler.Create)
				r.Get("/{task_id}", taskHandler.Get)
				r.Put("/{task_id}", taskHandler.Update)
				r.Patch("/{task_id}", taskHandler.Update)
				r.Delete("/{task_id}", taskHandler.Delete)
			})
		})
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	if err := routeMetrics.Load(r); err != nil {
		log.Printf("load metric routes: %v", err)
	}
	return r
}
