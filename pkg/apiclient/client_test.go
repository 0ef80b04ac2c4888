package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func writeEnvelope(w http.ResponseWriter, status int, data any, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"status": "ok", "timestamp": "2026-08-24T00:00:00Z"}
	if data != nil {
		body["data"] = data
	}
	if errMsg != "" {
		body["status"] = "error"
		body["error"] = errMsg
	}
	_ = json.NewEncoder(w).Encode(body)
}

func TestStartIngest(t *testing.T) {
	c := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/ingest", r.URL.Path)

		var req StartIngestRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "/data/docs", req.Folder)

		writeEnvelope(w, http.StatusAccepted, map[string]string{"session_id": "abc-123"}, "")
	})

	id, err := c.StartIngest(StartIngestRequest{Folder: "/data/docs"})
	require.NoError(t, err)
	assert.Equal(t, "abc-123", id)
}

func TestErrorUnwrapping(t *testing.T) {
	c := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, nil, "Session not found")
	})

	err := c.CancelSession("nope")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsNotFound())
	assert.Contains(t, apiErr.Error(), "Session not found")
}

func TestActiveSessions(t *testing.T) {
	c := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/sessions", r.URL.Path)
		writeEnvelope(w, http.StatusOK, map[string]any{"active": []string{"a", "b"}}, "")
	})

	ids, err := c.ActiveSessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestSearchEncodesParams(t *testing.T) {
	c := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "kubernetes", q.Get("q"))
		assert.Equal(t, "md,txt", q.Get("file_types"))
		assert.Equal(t, "2", q.Get("page"))
		writeEnvelope(w, http.StatusOK, map[string]any{
			"hits": []any{}, "total": 0, "page": 2, "per_page": 20,
		}, "")
	})

	results, err := c.Search(SearchParams{
		Keyword:   "kubernetes",
		FileTypes: []string{"md", "txt"},
		Page:      2,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, results.Total)
	assert.Equal(t, 2, results.Page)
}

func TestNonJSONErrorBody(t *testing.T) {
	c := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	})

	err := c.get("/api/sessions", nil)
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}
