package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/location"
	"github.com/starford/raido/internal/redirect"
	"github.com/starford/raido/internal/snapshot"
)

// Handler holds API route handlers.
type Handler struct {
	db           index.DocIndex
	snapshotPath string
}

// NewHandler creates a new Handler over the document index and the stored
// before-snapshot.
func NewHandler(db index.DocIndex, snapshotPath string) *Handler {
	return &Handler{db: db, snapshotPath: snapshotPath}
}

// ListDocuments handles GET /api/documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.ListDocuments()
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	items := make([]DocumentItem, len(rows))
	for i, row := range rows {
		items[i] = DocumentItem{
			ID:        row.ID,
			Location:  string(row.Location),
			Title:     row.Title,
			UpdatedAt: row.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: len(items)})
}

// ResolveID handles GET /api/resolve/{id}. With ?from=<location> the
// response carries the relative href the referencing document should use,
// which is exactly the Mode B resolution the render-time macro needs.
func (h *Handler) ResolveID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	row, err := h.db.GetDocument(id)
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("unknown identifier: "+id))
		return
	}
	if err != nil {
		slog.Error("resolve failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	resp := ResolveResponse{ID: row.ID, Location: string(row.Location)}
	if from := r.URL.Query().Get("from"); from != "" {
		fromLoc, err := location.Normalize(from)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("bad from location"))
			return
		}
		resp.Href = location.Rel(fromLoc, row.Location)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRedirects handles GET /api/redirects: the delta between the stored
// before-snapshot and the index's current mapping, as redirect rules.
func (h *Handler) ListRedirects(w http.ResponseWriter, r *http.Request) {
	before, err := snapshot.Load(h.snapshotPath)
	if errors.Is(err, apperr.ErrNoSnapshot) {
		writeJSON(w, http.StatusNotFound, errorBody("no snapshot: run prepare first"))
		return
	}
	if err != nil {
		slog.Error("load snapshot failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("corrupt snapshot"))
		return
	}

	current, err := h.db.Mapping()
	if err != nil {
		slog.Error("mapping failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	delta := snapshot.Diff(before.Documents, current)
	rules, err := redirect.Rules(delta)
	if err != nil {
		slog.Error("rule synthesis failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("inconsistent mapping"))
		return
	}

	items := make([]RedirectRuleItem, len(rules))
	for i, rule := range rules {
		items[i] = RedirectRuleItem{From: string(rule.From), To: string(rule.To)}
	}
	writeJSON(w, http.StatusOK, RedirectListResponse{Rules: items, Removed: delta.Removed})
}

// Backrefs handles GET /api/backrefs/{id}: which documents reference id.
// Useful before deleting a document to see what would break.
func (h *Handler) Backrefs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	refs, err := h.db.Referencing(id)
	if err != nil {
		slog.Error("backrefs failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if refs == nil {
		refs = []string{}
	}
	writeJSON(w, http.StatusOK, BackrefsResponse{ID: id, References: refs})
}
