package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/markhive/markhive/pkg/ingest"
	"github.com/markhive/markhive/pkg/models"
	"github.com/markhive/markhive/pkg/store"
)

// DocumentsHandler serves single-document reads and the retry flow.
type DocumentsHandler struct {
	store *store.GORMStore
	coord *ingest.Coordinator
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(st *store.GORMStore, coord *ingest.Coordinator) *DocumentsHandler {
	return &DocumentsHandler{store: st, coord: coord}
}

// documentView is a document plus its markdown body, which the model itself
// keeps out of JSON.
type documentView struct {
	*models.Document
	MarkdownContent *string `json:"markdown_content"`
}

// Get handles GET /api/documents/{id} - full document including converted
// markdown, for preview.
func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	doc, err := h.store.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrDocumentNotFound) {
			NotFound(w, "Document not found")
			return
		}
		InternalServerError(w, "Failed to get document")
		return
	}

	OK(w, documentView{Document: doc, MarkdownContent: doc.MarkdownContent})
}

// Retry handles POST /api/documents/{id}/retry - re-run conversion for a
// failed document.
//
// Only documents in the failed state are eligible; anything else returns
// 409 Conflict. The response carries the document with its new outcome,
// which may be another failure.
func (h *DocumentsHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	doc, err := h.coord.RetryDocument(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDocumentNotFound):
			NotFound(w, "Document not found")
		case errors.Is(err, models.ErrDocumentNotFailed):
			Conflict(w, "Only failed documents can be retried")
		default:
			InternalServerError(w, "Retry failed")
		}
		return
	}

	OK(w, documentView{Document: doc, MarkdownContent: doc.MarkdownContent})
}

// parseID extracts the {id} route parameter. Writes a 400 and returns false
// on garbage.
func parseID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		BadRequest(w, "Invalid document id")
		return 0, false
	}
	return uint(id), true
}
