package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public — no auth required.
	r.Get("/health", s.handleHealth())
	r.Handle("/metrics", promhttp.Handler())

	// Admin endpoints — bearer auth required. Not mounted without a token.
	if s.config.BearerToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware())
			r.Route("/admin", func(r chi.Router) {
				r.Get("/status", s.handleStatus())
				r.Get("/audit", s.handleAuditLog())
				r.Get("/ws/audit", s.handleAuditStream())
				r.Post("/refresh-tools", s.handleRefreshTools())
			})
		})
	}

	return r
}
