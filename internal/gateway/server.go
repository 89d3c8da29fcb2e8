package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	r.Method(http.MethodGet, "/metrics", g.metrics.Handler())

	// Webhooks carry their own per-source verification.
	r.Post("/webhooks/{source}", g.dispatcher.ServeHTTP)

	// Status is not mounted if no auth is configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(requireAuth(g.config.Auth, g.logger))
			r.Get("/status", g.handleStatus())
		})
	}

	return r
}
