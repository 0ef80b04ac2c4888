package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markhive/markhive/pkg/store"
)

func newTestStore(t *testing.T) *store.GORMStore {
	t.Helper()
	st, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealthLiveness(t *testing.T) {
	h := NewHealthHandler(newTestStore(t))

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestHealthReadiness(t *testing.T) {
	t.Run("HealthyStore", func(t *testing.T) {
		h := NewHealthHandler(newTestStore(t))

		rec := httptest.NewRecorder()
		h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "healthy", decodeResponse(t, rec).Status)
	})

	t.Run("NilStore", func(t *testing.T) {
		h := NewHealthHandler(nil)

		rec := httptest.NewRecorder()
		h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "unhealthy", decodeResponse(t, rec).Status)
	})

	t.Run("ClosedStore", func(t *testing.T) {
		st := newTestStore(t)
		require.NoError(t, st.Close())
		h := NewHealthHandler(st)

		rec := httptest.NewRecorder()
		h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestParseDate(t *testing.T) {
	t.Run("BareDay", func(t *testing.T) {
		got, err := parseDate("2026-03-01", false)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "2026-03-01T00:00:00Z", got.Format("2006-01-02T15:04:05Z07:00"))
	})

	t.Run("BareDayEndOfDay", func(t *testing.T) {
		got, err := parseDate("2026-03-01", true)
		require.NoError(t, err)
		assert.Equal(t, "2026-03-01", got.Format("2006-01-02"))
		assert.Equal(t, 23, got.Hour())
	})

	t.Run("RFC3339", func(t *testing.T) {
		got, err := parseDate("2026-03-01T12:30:00Z", false)
		require.NoError(t, err)
		assert.Equal(t, 12, got.Hour())
	})

	t.Run("Empty", func(t *testing.T) {
		got, err := parseDate("", false)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := parseDate("not-a-date", false)
		assert.Error(t, err)
	})
}
