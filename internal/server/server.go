// ABOUTME: HTTP router assembly for the fake REST backend.
// ABOUTME: Wires store, logging, auth, and the account/resource/admin handlers.

package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/2389/restadmin/internal/accounts"
	"github.com/2389/restadmin/internal/admin"
	"github.com/2389/restadmin/internal/auth"
	"github.com/2389/restadmin/internal/logging"
	"github.com/2389/restadmin/internal/resources"
	"github.com/2389/restadmin/internal/store"
)

// New returns the backend's router. Request logs go to logger and s.
func New(s *store.Store, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(s, logger))
	r.Use(auth.Middleware(s))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	// Favicon
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	accounts.NewHandlers(s, logger).RegisterRoutes(r)
	admin.NewHandlers(s, logger).RegisterRoutes(r)
	resources.NewHandlers(s, logger).RegisterRoutes(r)

	return r
}
