package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/index"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(db index.DocIndex, snapshotPath string, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(db, snapshotPath)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/documents", h.ListDocuments)
	r.Get("/resolve/{id}", h.ResolveID)
	r.Get("/redirects", h.ListRedirects)
	r.Get("/backrefs/{id}", h.Backrefs)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
