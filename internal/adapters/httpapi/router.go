package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the API HTTP router.
//
// This is intentionally a thin adapter: it wires routes and middleware and
// delegates everything else to the Server handlers.
func NewRouter(s *Server, auth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	// Baseline production-safe middleware (minimal but useful).
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(auth)

	// Health endpoint is deliberately unauthenticated (used for infra checks).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/search", s.handleSearch)
	r.Post("/validate-phone", s.handleValidatePhone)
	r.Post("/validate-email", s.handleValidateEmail)
	r.Get("/transactions/{constituentID}", s.handleTransactions)
	r.Get("/recent", s.handleRecent)
	r.Get("/cache/stats", s.handleCacheStats)
	r.Post("/cache/cleanup", s.handleCacheCleanup)

	return r
}
