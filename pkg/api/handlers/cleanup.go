package handlers

import (
	"net/http"
	"strconv"

	"github.com/markhive/markhive/pkg/scan"
	"github.com/markhive/markhive/pkg/store"
)

// CleanupHandler serves the orphan listing and bulk delete endpoints.
//
// Orphans are indexed documents whose file path is no longer under a given
// folder - typically rows left behind after files were moved or the folder
// was reorganized.
type CleanupHandler struct {
	store *store.GORMStore
}

// NewCleanupHandler creates a new cleanup handler.
func NewCleanupHandler(st *store.GORMStore) *CleanupHandler {
	return &CleanupHandler{store: st}
}

// Orphans handles GET /api/cleanup/orphans.
//
// Query parameters:
//   - folder (required): documents outside this folder are orphans
//   - file_type: restrict to one extension
//   - keyword: case-insensitive path substring
//   - page, per_page: pagination (defaults 1, 20)
func (h *CleanupHandler) Orphans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	folder := q.Get("folder")
	if folder == "" {
		BadRequest(w, "folder is required")
		return
	}
	normalized, err := scan.NormalizePath(folder)
	if err != nil {
		BadRequest(w, "invalid folder")
		return
	}

	filter := store.OrphanFilter{
		Folder:      normalized,
		FileType:    q.Get("file_type"),
		PathKeyword: q.Get("keyword"),
		Page:        intParam(q.Get("page"), 1),
		PerPage:     intParam(q.Get("per_page"), 20),
	}

	docs, total, err := h.store.FindOrphans(r.Context(), filter)
	if err != nil {
		InternalServerError(w, "Failed to list orphans")
		return
	}

	OK(w, map[string]interface{}{
		"documents": docs,
		"total":     total,
		"page":      filter.Page,
		"per_page":  filter.PerPage,
	})
}

// deleteRequest is the POST /api/cleanup/delete body.
type deleteRequest struct {
	IDs []uint `json:"ids"`
}

// Delete handles POST /api/cleanup/delete - bulk delete by document id.
// Unknown ids are ignored; the response reports how many rows actually went
// away.
func (h *CleanupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		BadRequest(w, "ids is required")
		return
	}

	deleted, err := h.store.BulkDelete(r.Context(), req.IDs)
	if err != nil {
		InternalServerError(w, "Failed to delete documents")
		return
	}

	OK(w, map[string]interface{}{
		"requested": len(req.IDs),
		"deleted":   deleted,
	})
}

// intParam parses a positive integer query parameter, falling back to def.
func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
