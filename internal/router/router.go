// Package router sets up all HTTP routes and middleware chains for the
// ruletracker API. Reads are open; writes additionally pass through the
// rate limiter.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ruletracker/internal/handlers"
	"ruletracker/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. limiter may be nil to disable rate limiting.
func New(api *handlers.API, metrics *middleware.Metrics, limiter *middleware.RateLimiter, corsOrigins []string) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(metrics.Middleware)
	r.Use(middleware.CORS(corsOrigins))

	// Ops endpoints.
	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/ops/invalidations", api.RecentInvalidations)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.SecureHeaders)
		if limiter != nil {
			r.Use(limiter.Middleware)
		}

		// Categories
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", api.ListCategories)
			r.Post("/", api.CreateCategory)
			r.Get("/tree", api.CategoryTree)
			r.Post("/reorder", api.ReorderCategories)
			r.Get("/{id}", api.GetCategory)
			r.Put("/{id}", api.UpdateCategory)
			r.Delete("/{id}", api.DeleteCategory)
			r.Get("/{id}/children", api.CategoryChildren)
			r.Get("/{id}/path", api.CategoryPath)
			r.Post("/{id}/move", api.MoveCategory)
		})

		// Rules
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", api.ListRules)
			r.Post("/", api.CreateRule)
			r.Put("/{id}", api.UpdateRule)
			r.Delete("/{id}", api.DeleteRule)
			r.Post("/{id}/follow", api.FollowRule)
			r.Post("/{id}/violate", api.ViolateRule)
			r.Get("/{id}/records", api.RuleRecords)
		})

		// View session
		r.Route("/view", func(r chi.Router) {
			r.Get("/", api.GetView)
			r.Delete("/", api.ResetView)
			r.Post("/select", api.SelectCategory)
			r.Post("/toggle", api.ToggleCategory)
			r.Post("/modal", api.OpenModal)
			r.Delete("/modal", api.CloseModal)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
