package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markhive/markhive/pkg/convert"
	"github.com/markhive/markhive/pkg/ingest"
	"github.com/markhive/markhive/pkg/models"
	"github.com/markhive/markhive/pkg/search"
	"github.com/markhive/markhive/pkg/store"
)

type envelope struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
}

type testEnv struct {
	server *httptest.Server
	store  *store.GORMStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	convert.ResetForTest()
	convert.Bootstrap(convert.Options{
		NativeMarkdownTypes: []string{"md"},
		PlainTextTypes:      []string{"txt"},
		CodeTypes:           []string{"py"},
	})
	t.Cleanup(convert.ResetForTest)

	st, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	reg := ingest.NewRegistry(100, time.Minute)
	coord := ingest.NewCoordinator(st, reg, ingest.Config{WorkerPoolSize: 2}, nil)

	router := NewRouter(Deps{
		Store:       st,
		Coordinator: coord,
		Search:      search.NewService(st),
		FileTypes: map[string][]string{
			"native_markdown_types": {"md"},
			"plain_text_types":      {"txt"},
		},
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, store: st}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, envelope) {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func (e *testEnv) post(t *testing.T, path string, body any) (*http.Response, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(e.server.URL+path, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

// startIngest kicks off a session over the API and waits for it to finish.
func (e *testEnv) startIngest(t *testing.T, folder string) string {
	t.Helper()
	resp, env := e.post(t, "/api/ingest", map[string]any{"folder": folder})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var data struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.SessionID)

	require.Eventually(t, func() bool {
		resp, env := e.get(t, "/api/sessions/"+data.SessionID)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var snap struct {
			Done bool `json:"done"`
		}
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			return false
		}
		return snap.Done
	}, 30*time.Second, 20*time.Millisecond)

	return data.SessionID
}

func writeTestFolder(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# Kubernetes notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "todo.txt"), []byte("buy milk"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob.xyz"), []byte("opaque"), 0o644))
	return dir
}

func TestIngestFlow(t *testing.T) {
	env := newTestEnv(t)
	dir := writeTestFolder(t)

	id := env.startIngest(t, dir)

	t.Run("EventStreamReplaysHistory", func(t *testing.T) {
		resp, err := http.Get(env.server.URL + "/api/ingest/" + id + "/events")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

		var stages []string
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var ev struct {
				Stage     string `json:"stage"`
				SessionID string `json:"session_id"`
			}
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
			assert.Equal(t, id, ev.SessionID)
			stages = append(stages, ev.Stage)
		}

		require.NotEmpty(t, stages)
		assert.Equal(t, "scan_start", stages[0])
		assert.Equal(t, "scan_complete", stages[1])
		assert.Equal(t, "done", stages[len(stages)-1])
		assert.Contains(t, stages, "file_error") // blob.xyz is unsupported
	})

	t.Run("SessionHistoryEndpoint", func(t *testing.T) {
		resp, env2 := env.get(t, "/api/sessions/"+id)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var snap struct {
			SessionID string `json:"session_id"`
			Done      bool   `json:"done"`
			History   []any  `json:"history"`
		}
		require.NoError(t, json.Unmarshal(env2.Data, &snap))
		assert.Equal(t, id, snap.SessionID)
		assert.True(t, snap.Done)
		assert.NotEmpty(t, snap.History)
	})

	t.Run("UnknownSessionIs404", func(t *testing.T) {
		resp, _ := env.get(t, "/api/sessions/no-such-session")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp2, err := http.Get(env.server.URL + "/api/ingest/no-such-session/events")
		require.NoError(t, err)
		resp2.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
	})

	t.Run("BadFolderRejected", func(t *testing.T) {
		resp, _ := env.post(t, "/api/ingest", map[string]any{"folder": filepath.Join(dir, "missing")})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("MissingFolderRejected", func(t *testing.T) {
		resp, _ := env.post(t, "/api/ingest", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestCancelEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("CancelUnknownIs404", func(t *testing.T) {
		resp, _ := env.post(t, "/api/ingest/nope/cancel", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("CancelEndedSessionIsNoOp", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# a"), 0o644))
		id := env.startIngest(t, dir)

		resp, _ := env.post(t, "/api/ingest/"+id+"/cancel", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("CancelAll", func(t *testing.T) {
		resp, env2 := env.post(t, "/api/ingest/cancel-all", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var data struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(env2.Data, &data))
		assert.Equal(t, 0, data.Count)
	})
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t)
	dir := writeTestFolder(t)
	env.startIngest(t, dir)

	t.Run("KeywordHit", func(t *testing.T) {
		resp, env2 := env.get(t, "/api/search?q=kubernetes")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var results struct {
			Total int64 `json:"total"`
			Hits  []struct {
				FileName string `json:"file_name"`
				Snippet  string `json:"snippet"`
			} `json:"hits"`
		}
		require.NoError(t, json.Unmarshal(env2.Data, &results))
		require.EqualValues(t, 1, results.Total)
		assert.Equal(t, "notes.md", results.Hits[0].FileName)
		assert.Contains(t, results.Hits[0].Snippet, "<mark>Kubernetes</mark>")
	})

	t.Run("FileTypeFilter", func(t *testing.T) {
		resp, env2 := env.get(t, "/api/search?q=milk&file_types=txt")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var results struct {
			Total int64 `json:"total"`
		}
		require.NoError(t, json.Unmarshal(env2.Data, &results))
		assert.EqualValues(t, 1, results.Total)
	})

	t.Run("MissingKeywordRejected", func(t *testing.T) {
		resp, _ := env.get(t, "/api/search")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("BadMtimeRejected", func(t *testing.T) {
		resp, _ := env.get(t, "/api/search?q=x&mtime_from=garbage")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDocumentEndpoints(t *testing.T) {
	env := newTestEnv(t)
	dir := writeTestFolder(t)
	env.startIngest(t, dir)

	docs, err := env.store.ListDocuments(context.Background(), 1, 50)
	require.NoError(t, err)
	require.NotEmpty(t, docs)

	var completedID, failedID uint
	for _, d := range docs {
		switch d.Status {
		case "completed":
			completedID = d.ID
		case "failed":
			failedID = d.ID
		}
	}
	require.NotZero(t, completedID)
	require.NotZero(t, failedID)

	t.Run("GetIncludesMarkdown", func(t *testing.T) {
		resp, env2 := env.get(t, fmt.Sprintf("/api/documents/%d", completedID))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var doc struct {
			ID              uint    `json:"id"`
			Status          string  `json:"status"`
			MarkdownContent *string `json:"markdown_content"`
		}
		require.NoError(t, json.Unmarshal(env2.Data, &doc))
		assert.Equal(t, completedID, doc.ID)
		require.NotNil(t, doc.MarkdownContent)
		assert.NotEmpty(t, *doc.MarkdownContent)
	})

	t.Run("GetUnknownIs404", func(t *testing.T) {
		resp, _ := env.get(t, "/api/documents/999999")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("GetGarbageIdIs400", func(t *testing.T) {
		resp, _ := env.get(t, "/api/documents/abc")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("RetryCompletedIsConflict", func(t *testing.T) {
		resp, _ := env.post(t, fmt.Sprintf("/api/documents/%d/retry", completedID), nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("RetryFailedStaysFailedForUnsupportedType", func(t *testing.T) {
		resp, env2 := env.post(t, fmt.Sprintf("/api/documents/%d/retry", failedID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var doc struct {
			Status       string  `json:"status"`
			ErrorMessage *string `json:"error_message"`
		}
		require.NoError(t, json.Unmarshal(env2.Data, &doc))
		assert.Equal(t, "failed", doc.Status)
		require.NotNil(t, doc.ErrorMessage)
		assert.Contains(t, *doc.ErrorMessage, "Unsupported file type")
	})

	t.Run("RetryUnknownIs404", func(t *testing.T) {
		resp, _ := env.post(t, "/api/documents/999999/retry", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRetryRecoversFailedDocument(t *testing.T) {
	env := newTestEnv(t)
	dir := writeTestFolder(t)
	env.startIngest(t, dir)

	docs, err := env.store.ListDocuments(context.Background(), 1, 50)
	require.NoError(t, err)
	var failedID uint
	for _, d := range docs {
		if d.Status == models.StatusFailed {
			failedID = d.ID
		}
	}
	require.NotZero(t, failedID)

	// blob.xyz failed because no handler covered xyz during the run.
	// Registering it makes the retry convert cleanly.
	convert.ResetForTest()
	convert.Bootstrap(convert.Options{
		NativeMarkdownTypes: []string{"md"},
		PlainTextTypes:      []string{"txt", "xyz"},
	})

	resp, env2 := env.post(t, fmt.Sprintf("/api/documents/%d/retry", failedID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc struct {
		Status          string  `json:"status"`
		ErrorMessage    *string `json:"error_message"`
		MarkdownContent *string `json:"markdown_content"`
	}
	require.NoError(t, json.Unmarshal(env2.Data, &doc))
	assert.Equal(t, "completed", doc.Status)
	assert.Nil(t, doc.ErrorMessage)
	require.NotNil(t, doc.MarkdownContent)
	assert.Contains(t, *doc.MarkdownContent, "opaque")
}

func TestCleanupEndpoints(t *testing.T) {
	env := newTestEnv(t)
	dir := writeTestFolder(t)
	env.startIngest(t, dir)

	otherDir := t.TempDir()

	t.Run("AllDocsAreOrphansOfAnotherFolder", func(t *testing.T) {
		resp, env2 := env.get(t, "/api/cleanup/orphans?folder="+otherDir)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var data struct {
			Total     int64 `json:"total"`
			Documents []struct {
				ID uint `json:"id"`
			} `json:"documents"`
		}
		require.NoError(t, json.Unmarshal(env2.Data, &data))
		assert.EqualValues(t, 3, data.Total)
	})

	t.Run("NoOrphansUnderOwnFolder", func(t *testing.T) {
		resp, env2 := env.get(t, "/api/cleanup/orphans?folder="+dir)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var data struct {
			Total int64 `json:"total"`
		}
		require.NoError(t, json.Unmarshal(env2.Data, &data))
		assert.EqualValues(t, 0, data.Total)
	})

	t.Run("MissingFolderRejected", func(t *testing.T) {
		resp, _ := env.get(t, "/api/cleanup/orphans")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("DeleteByIDs", func(t *testing.T) {
		docs, err := env.store.ListDocuments(context.Background(), 1, 50)
		require.NoError(t, err)
		require.NotEmpty(t, docs)

		resp, env2 := env.post(t, "/api/cleanup/delete", map[string]any{
			"ids": []uint{docs[0].ID, 999999},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var data struct {
			Requested int   `json:"requested"`
			Deleted   int64 `json:"deleted"`
		}
		require.NoError(t, json.Unmarshal(env2.Data, &data))
		assert.Equal(t, 2, data.Requested)
		assert.EqualValues(t, 1, data.Deleted)
	})

	t.Run("EmptyIDsRejected", func(t *testing.T) {
		resp, _ := env.post(t, "/api/cleanup/delete", map[string]any{"ids": []uint{}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestConfigEcho(t *testing.T) {
	env := newTestEnv(t)

	resp, env2 := env.get(t, "/api/config/file-types")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var data struct {
		FileTypes map[string][]string `json:"file_types"`
	}
	require.NoError(t, json.Unmarshal(env2.Data, &data))
	assert.Equal(t, []string{"md"}, data.FileTypes["native_markdown_types"])
}

func TestHealthRoutes(t *testing.T) {
	env := newTestEnv(t)

	resp, env2 := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", env2.Status)

	resp, env2 = env.get(t, "/health/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", env2.Status)
}
