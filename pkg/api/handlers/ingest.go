package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/markhive/markhive/pkg/ingest"
	"github.com/markhive/markhive/pkg/models"
)

// IngestHandler handles the ingestion control endpoints: starting sessions,
// streaming their events, cancelling, and the session debug surface.
type IngestHandler struct {
	coord *ingest.Coordinator
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(coord *ingest.Coordinator) *IngestHandler {
	return &IngestHandler{coord: coord}
}

// startRequest is the POST /api/ingest body. Dates accept either a bare day
// ("2026-08-24") or RFC3339; a bare date_to is inclusive through the end of
// that day.
type startRequest struct {
	Folder    string   `json:"folder"`
	Recursive *bool    `json:"recursive"`
	DateFrom  string   `json:"date_from"`
	DateTo    string   `json:"date_to"`
	FileTypes []string `json:"file_types"`
}

// Start handles POST /api/ingest - start an ingestion session.
//
// Returns 202 Accepted with the session id; the run itself happens in the
// background and is observed via the event stream.
func (h *IngestHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Folder == "" {
		BadRequest(w, "folder is required")
		return
	}

	dateFrom, err := parseDate(req.DateFrom, false)
	if err != nil {
		BadRequest(w, fmt.Sprintf("invalid date_from: %v", err))
		return
	}
	dateTo, err := parseDate(req.DateTo, true)
	if err != nil {
		BadRequest(w, fmt.Sprintf("invalid date_to: %v", err))
		return
	}

	recursive := true
	if req.Recursive != nil {
		recursive = *req.Recursive
	}

	s, err := h.coord.Start(r.Context(), ingest.Request{
		Folder:    req.Folder,
		Recursive: recursive,
		DateFrom:  dateFrom,
		DateTo:    dateTo,
		FileTypes: req.FileTypes,
	})
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, okResponse(map[string]string{
		"session_id": s.ID,
	}))
}

// Events handles GET /api/ingest/{id}/events - the server-sent event stream.
//
// A subscriber attaching mid-run first replays the session's retained
// history, then receives live events. The stream closes after the terminal
// event, or when the client disconnects.
func (h *IngestHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.coord.Registry().Get(id)
	if err != nil {
		NotFound(w, "Session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalServerError(w, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// The server's WriteTimeout would cut long-running streams short.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	sub := s.Bus().Subscribe()
	defer sub.Cancel()

	for {
		ev, ok := sub.Next(r.Context())
		if !ok {
			return
		}
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}

// Cancel handles POST /api/ingest/{id}/cancel.
//
// Cancellation is cooperative: this sets the session's stop flag and returns
// immediately; the run winds down at its next loop iteration. Cancelling an
// already-ended session is a harmless no-op.
func (h *IngestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.coord.Registry().Cancel(id) {
		NotFound(w, "Session not found")
		return
	}
	OK(w, map[string]string{"session_id": id})
}

// CancelAll handles POST /api/ingest/cancel-all.
func (h *IngestHandler) CancelAll(w http.ResponseWriter, r *http.Request) {
	ids := h.coord.Registry().CancelAll()
	OK(w, map[string]interface{}{
		"cancelled": ids,
		"count":     len(ids),
	})
}

// Sessions handles GET /api/sessions - ids of active sessions.
func (h *IngestHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	OK(w, map[string]interface{}{
		"active": h.coord.Registry().Active(),
	})
}

// SessionHistory handles GET /api/sessions/{id} - the debug snapshot of one
// session, including its retained event history. Ended sessions remain
// available for a grace window.
func (h *IngestHandler) SessionHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := h.coord.Registry().GetSnapshot(id)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			NotFound(w, "Session not found")
			return
		}
		InternalServerError(w, "Failed to load session")
		return
	}
	OK(w, snap)
}

// parseDate parses a bare day or RFC3339 timestamp. endOfDay shifts a bare
// day to its last nanosecond so inclusive upper bounds behave as expected.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		t = t.UTC()
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", s)
	}
	t = t.UTC()
	return &t, nil
}
