package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/markhive/markhive/pkg/models"
)

// createTestStore creates an in-memory SQLite store for testing.
func createTestStore(t *testing.T) *GORMStore {
	t.Helper()
	store, err := New(&Config{
		Type: DatabaseTypeSQLite,
		SQLite: SQLiteConfig{
			Path: ":memory:",
		},
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testWrite(path string) DocumentWrite {
	now := time.Now().UTC().Truncate(time.Second)
	return DocumentWrite{
		FilePath:         path,
		FileName:         "notes.md",
		FileType:         "md",
		FileSize:         42,
		FileCreatedAt:    now.Add(-time.Hour),
		FileModifiedTime: now,
		Source:           models.SourceLocalFS,
	}
}

func mustComplete(t *testing.T, st *GORMStore, path, content string) *models.Document {
	t.Helper()
	doc, err := st.MarkCompleted(context.Background(), testWrite(path), content, models.ConversionDirect)
	if err != nil {
		t.Fatalf("MarkCompleted(%s) failed: %v", path, err)
	}
	return doc
}

func TestMarkCompleted(t *testing.T) {
	st := createTestStore(t)

	doc := mustComplete(t, st, "/docs/notes.md", "# Notes")

	if doc.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if doc.Status != models.StatusCompleted {
		t.Errorf("expected status completed, got %s", doc.Status)
	}
	if doc.MarkdownContent == nil || *doc.MarkdownContent != "# Notes" {
		t.Errorf("unexpected content: %v", doc.MarkdownContent)
	}
	if doc.ConversionType == nil || *doc.ConversionType != models.ConversionDirect {
		t.Errorf("unexpected conversion type: %v", doc.ConversionType)
	}
	if doc.ErrorMessage != nil {
		t.Errorf("expected nil error message, got %q", *doc.ErrorMessage)
	}
}

func TestMarkFailedClearsContent(t *testing.T) {
	st := createTestStore(t)

	first := mustComplete(t, st, "/docs/notes.md", "# Notes")

	failed, err := st.MarkFailed(context.Background(), testWrite("/docs/notes.md"), "converter crashed")
	if err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	// Upsert keyed on file_path: same row, flipped outcome.
	if failed.ID != first.ID {
		t.Errorf("expected same row (id %d), got %d", first.ID, failed.ID)
	}
	if failed.Status != models.StatusFailed {
		t.Errorf("expected status failed, got %s", failed.Status)
	}
	if failed.MarkdownContent != nil {
		t.Error("expected content cleared on failure")
	}
	if failed.ConversionType != nil {
		t.Error("expected conversion type cleared on failure")
	}
	if failed.ErrorMessage == nil || *failed.ErrorMessage != "converter crashed" {
		t.Errorf("unexpected error message: %v", failed.ErrorMessage)
	}
}

func TestUpsertKeepsOneRowPerPath(t *testing.T) {
	st := createTestStore(t)

	for i := 0; i < 3; i++ {
		mustComplete(t, st, "/docs/notes.md", "# Notes")
	}

	n, err := st.CountDocuments(context.Background(), "")
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
}

func TestLookupByPath(t *testing.T) {
	st := createTestStore(t)
	mustComplete(t, st, "/docs/Notes.md", "x")

	t.Run("case insensitive match", func(t *testing.T) {
		doc, err := st.LookupByPath(context.Background(), "/docs/notes.MD")
		if err != nil {
			t.Fatalf("LookupByPath failed: %v", err)
		}
		if doc.FilePath != "/docs/Notes.md" {
			t.Errorf("unexpected path: %s", doc.FilePath)
		}
	})

	t.Run("missing path returns not found", func(t *testing.T) {
		_, err := st.LookupByPath(context.Background(), "/docs/other.md")
		if !errors.Is(err, models.ErrDocumentNotFound) {
			t.Errorf("expected ErrDocumentNotFound, got %v", err)
		}
	})
}

func TestGetDocumentNotFound(t *testing.T) {
	st := createTestStore(t)
	_, err := st.GetDocument(context.Background(), 999)
	if !errors.Is(err, models.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestUpdateConversionOutcome(t *testing.T) {
	st := createTestStore(t)

	doc, err := st.MarkFailed(context.Background(), testWrite("/docs/notes.md"), "boom")
	if err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	t.Run("success flips to completed", func(t *testing.T) {
		content := "# Recovered"
		ct := models.ConversionDirect
		if err := st.UpdateConversionOutcome(context.Background(), doc.ID, &content, &ct, nil); err != nil {
			t.Fatalf("UpdateConversionOutcome failed: %v", err)
		}

		got, err := st.GetDocument(context.Background(), doc.ID)
		if err != nil {
			t.Fatalf("GetDocument failed: %v", err)
		}
		if got.Status != models.StatusCompleted {
			t.Errorf("expected completed, got %s", got.Status)
		}
		if got.MarkdownContent == nil || *got.MarkdownContent != "# Recovered" {
			t.Errorf("unexpected content: %v", got.MarkdownContent)
		}
		if got.ErrorMessage != nil {
			t.Errorf("expected error cleared, got %q", *got.ErrorMessage)
		}
	})

	t.Run("failure flips back to failed", func(t *testing.T) {
		msg := "still broken"
		if err := st.UpdateConversionOutcome(context.Background(), doc.ID, nil, nil, &msg); err != nil {
			t.Fatalf("UpdateConversionOutcome failed: %v", err)
		}

		got, err := st.GetDocument(context.Background(), doc.ID)
		if err != nil {
			t.Fatalf("GetDocument failed: %v", err)
		}
		if got.Status != models.StatusFailed {
			t.Errorf("expected failed, got %s", got.Status)
		}
		if got.MarkdownContent != nil {
			t.Error("expected content cleared")
		}
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		msg := "x"
		err := st.UpdateConversionOutcome(context.Background(), 999, nil, nil, &msg)
		if !errors.Is(err, models.ErrDocumentNotFound) {
			t.Errorf("expected ErrDocumentNotFound, got %v", err)
		}
	})
}

func TestBulkDelete(t *testing.T) {
	st := createTestStore(t)

	a := mustComplete(t, st, "/docs/a.md", "a")
	b := mustComplete(t, st, "/docs/b.md", "b")

	deleted, err := st.BulkDelete(context.Background(), []uint{a.ID, b.ID, 999})
	if err != nil {
		t.Fatalf("BulkDelete failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}

	deleted, err = st.BulkDelete(context.Background(), nil)
	if err != nil {
		t.Fatalf("BulkDelete(nil) failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 deleted for empty ids, got %d", deleted)
	}
}

func TestDistinctFileTypes(t *testing.T) {
	st := createTestStore(t)

	for _, p := range []struct{ path, ft string }{
		{"/docs/a.md", "md"},
		{"/docs/b.md", "md"},
		{"/docs/c.txt", "txt"},
		{"/docs/README", ""},
	} {
		w := testWrite(p.path)
		w.FileType = p.ft
		if _, err := st.MarkCompleted(context.Background(), w, "x", models.ConversionDirect); err != nil {
			t.Fatalf("MarkCompleted(%s) failed: %v", p.path, err)
		}
	}

	types, err := st.DistinctFileTypes(context.Background())
	if err != nil {
		t.Fatalf("DistinctFileTypes failed: %v", err)
	}
	if len(types) != 2 || types[0] != "md" || types[1] != "txt" {
		t.Errorf("unexpected types: %v", types)
	}
}

func TestFindOrphans(t *testing.T) {
	st := createTestStore(t)

	for _, path := range []string{
		"/docs/current/a.md",
		"/docs/current/sub/b.md",
		"/docs/old/c.md",
		"/docs/old/d.txt",
	} {
		mustComplete(t, st, path, "x")
	}

	t.Run("documents outside folder", func(t *testing.T) {
		docs, total, err := st.FindOrphans(context.Background(), OrphanFilter{Folder: "/docs/current"})
		if err != nil {
			t.Fatalf("FindOrphans failed: %v", err)
		}
		if total != 2 || len(docs) != 2 {
			t.Fatalf("expected 2 orphans, got total=%d len=%d", total, len(docs))
		}
		if docs[0].FilePath != "/docs/old/c.md" {
			t.Errorf("unexpected first orphan: %s", docs[0].FilePath)
		}
	})

	t.Run("file type filter", func(t *testing.T) {
		docs, total, err := st.FindOrphans(context.Background(), OrphanFilter{Folder: "/docs/current", FileType: "txt"})
		if err != nil {
			t.Fatalf("FindOrphans failed: %v", err)
		}
		if total != 1 || len(docs) != 1 || docs[0].FilePath != "/docs/old/d.txt" {
			t.Errorf("unexpected result: total=%d docs=%v", total, docs)
		}
	})

	t.Run("path keyword is case insensitive", func(t *testing.T) {
		_, total, err := st.FindOrphans(context.Background(), OrphanFilter{Folder: "/docs/current", PathKeyword: "C.MD"})
		if err != nil {
			t.Fatalf("FindOrphans failed: %v", err)
		}
		if total != 1 {
			t.Errorf("expected 1 match, got %d", total)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		docs, total, err := st.FindOrphans(context.Background(), OrphanFilter{Folder: "/docs/current", PerPage: 1, Page: 2})
		if err != nil {
			t.Fatalf("FindOrphans failed: %v", err)
		}
		if total != 2 || len(docs) != 1 || docs[0].FilePath != "/docs/old/d.txt" {
			t.Errorf("unexpected page: total=%d docs=%v", total, docs)
		}
	})
}

func TestCountDocumentsByStatus(t *testing.T) {
	st := createTestStore(t)

	mustComplete(t, st, "/docs/a.md", "a")
	if _, err := st.MarkFailed(context.Background(), testWrite("/docs/b.md"), "boom"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	n, err := st.CountDocuments(context.Background(), models.StatusFailed)
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 failed, got %d", n)
	}

	n, err = st.CountDocuments(context.Background(), "")
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 total, got %d", n)
	}
}

func TestIngestStateLifecycle(t *testing.T) {
	st := createTestStore(t)

	state, err := st.GetOrCreateIngestState(context.Background(), models.SourceLocalFS, "/docs")
	if err != nil {
		t.Fatalf("GetOrCreateIngestState failed: %v", err)
	}
	if state.ID == 0 {
		t.Fatal("expected non-zero state ID")
	}
	if state.CursorUpdatedAt != nil {
		t.Error("expected nil cursor on fresh state")
	}

	again, err := st.GetOrCreateIngestState(context.Background(), models.SourceLocalFS, "/docs")
	if err != nil {
		t.Fatalf("second GetOrCreateIngestState failed: %v", err)
	}
	if again.ID != state.ID {
		t.Errorf("expected same row, got %d and %d", state.ID, again.ID)
	}

	started := time.Now().UTC().Truncate(time.Second)
	if err := st.BeginRun(context.Background(), state.ID, started); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := st.SetTotalFiles(context.Background(), state.ID, 10); err != nil {
		t.Fatalf("SetTotalFiles failed: %v", err)
	}
	if err := st.FinishRun(context.Background(), state.ID, 7, 2, 1, started.Add(time.Minute)); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	cursor := started.Truncate(24 * time.Hour)
	if err := st.AdvanceCursor(context.Background(), state.ID, cursor); err != nil {
		t.Fatalf("AdvanceCursor failed: %v", err)
	}

	got, err := st.GetIngestState(context.Background(), models.SourceLocalFS, "/docs")
	if err != nil {
		t.Fatalf("GetIngestState failed: %v", err)
	}
	if got.TotalFiles != 10 || got.Processed != 7 || got.Skipped != 2 || got.Errors != 1 {
		t.Errorf("unexpected counters: %+v", got)
	}
	if got.LastStartedAt == nil || got.LastEndedAt == nil {
		t.Error("expected run timestamps set")
	}
	if got.CursorUpdatedAt == nil || !got.CursorUpdatedAt.Equal(cursor) {
		t.Errorf("unexpected cursor: %v", got.CursorUpdatedAt)
	}
	if got.LastErrorMessage != nil {
		t.Errorf("expected nil error message, got %q", *got.LastErrorMessage)
	}
}

func TestIngestStateScopesAreIndependent(t *testing.T) {
	st := createTestStore(t)

	a, err := st.GetOrCreateIngestState(context.Background(), models.SourceLocalFS, "/docs/a")
	if err != nil {
		t.Fatalf("GetOrCreateIngestState(a) failed: %v", err)
	}
	b, err := st.GetOrCreateIngestState(context.Background(), models.SourceLocalFS, "/docs/b")
	if err != nil {
		t.Fatalf("GetOrCreateIngestState(b) failed: %v", err)
	}
	if a.ID == b.ID {
		t.Fatal("expected distinct state rows per scope")
	}

	if err := st.SetLastError(context.Background(), a.ID, "walk failed"); err != nil {
		t.Fatalf("SetLastError failed: %v", err)
	}

	gotA, err := st.GetIngestState(context.Background(), models.SourceLocalFS, "/docs/a")
	if err != nil {
		t.Fatalf("GetIngestState(a) failed: %v", err)
	}
	if gotA.LastErrorMessage == nil {
		t.Error("expected error message on scope a")
	}

	gotB, err := st.GetIngestState(context.Background(), models.SourceLocalFS, "/docs/b")
	if err != nil {
		t.Fatalf("GetIngestState(b) failed: %v", err)
	}
	if gotB.LastErrorMessage != nil {
		t.Error("expected scope b untouched")
	}
}

func TestIngestStateNotFound(t *testing.T) {
	st := createTestStore(t)

	_, err := st.GetIngestState(context.Background(), models.SourceLocalFS, "/nowhere")
	if !errors.Is(err, models.ErrIngestStateNotFound) {
		t.Errorf("expected ErrIngestStateNotFound, got %v", err)
	}

	err = st.SetTotalFiles(context.Background(), 999, 1)
	if !errors.Is(err, models.ErrIngestStateNotFound) {
		t.Errorf("expected ErrIngestStateNotFound, got %v", err)
	}
}

func TestHealthcheck(t *testing.T) {
	st := createTestStore(t)
	if err := st.Healthcheck(context.Background()); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
}
