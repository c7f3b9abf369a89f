package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/premierdelan/internal/auth"
)

// NewRouter builds the API router with the global middleware stack. A nil
// signer disables authentication. A non-empty staticDir is served at the root.
func NewRouter(h *EventHandler, signer *auth.Signer, logger *zap.Logger, staticDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(logger))
	r.Use(CORS)
	r.Use(Authenticate(signer))

	h.Routes(r)

	if staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}
	return r
}
