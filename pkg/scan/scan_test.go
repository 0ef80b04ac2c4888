package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNormalizePath(t *testing.T) {
	t.Run("AbsolutePathStaysAbsolute", func(t *testing.T) {
		got, err := NormalizePath("/tmp/docs/notes.md")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/docs/notes.md", got)
	})

	t.Run("RelativePathResolved", func(t *testing.T) {
		got, err := NormalizePath("notes.md")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got))
	})

	t.Run("Idempotent", func(t *testing.T) {
		once, err := NormalizePath("/tmp/café/notes.md")
		require.NoError(t, err)
		twice, err := NormalizePath(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	})

	t.Run("UnicodeNormalizedToNFC", func(t *testing.T) {
		// "café" with a combining acute accent (NFD)
		decomposed := "/tmp/café/notes.md"
		composed := "/tmp/café/notes.md"
		got, err := NormalizePath(decomposed)
		require.NoError(t, err)
		assert.Equal(t, composed, got)
	})

	t.Run("BackslashesBecomeForwardSlashes", func(t *testing.T) {
		got, err := NormalizePath(`/tmp/docs\sub\notes.md`)
		require.NoError(t, err)
		assert.NotContains(t, got, `\`)
	})
}

func TestExtensionOf(t *testing.T) {
	assert.Equal(t, "md", ExtensionOf("/docs/notes.MD"))
	assert.Equal(t, "gz", ExtensionOf("archive.tar.gz"))
	assert.Equal(t, "", ExtensionOf("/docs/README"))
	assert.Equal(t, "", ExtensionOf("/docs/.hidden"))
}

func TestProbe(t *testing.T) {
	t.Run("RegularFile", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, filepath.Join(dir, "notes.md"), "# hello")

		meta, err := Probe(path)
		require.NoError(t, err)
		assert.Equal(t, "notes.md", meta.FileName)
		assert.Equal(t, "md", meta.FileType)
		assert.Equal(t, int64(7), meta.FileSize)
		assert.Equal(t, time.UTC, meta.FileModifiedTime.Location())
		assert.False(t, meta.FileCreatedAt.IsZero())
		assert.True(t, filepath.IsAbs(meta.FilePath))
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Probe(filepath.Join(t.TempDir(), "gone.md"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMetadataUnavailable))
	})

	t.Run("Directory", func(t *testing.T) {
		_, err := Probe(t.TempDir())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMetadataUnavailable))
	})
}

func TestScan(t *testing.T) {
	newTree := func(t *testing.T) string {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.md"), "a")
		writeFile(t, filepath.Join(dir, "b.txt"), "b")
		writeFile(t, filepath.Join(dir, "b.txt.meta.json"), "{}")
		writeFile(t, filepath.Join(dir, "sub", "c.md"), "c")
		writeFile(t, filepath.Join(dir, "node_modules", "d.md"), "d")
		writeFile(t, filepath.Join(dir, ".git", "e.md"), "e")
		return dir
	}

	names := func(paths []string) []string {
		out := make([]string, 0, len(paths))
		for _, p := range paths {
			out = append(out, filepath.Base(p))
		}
		return out
	}

	t.Run("RecursiveFindsAll", func(t *testing.T) {
		dir := newTree(t)
		got, err := Scan(context.Background(), Options{Root: dir, Recursive: true})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a.md", "b.txt", "c.md", "d.md", "e.md"}, names(got))
	})

	t.Run("NonRecursiveStopsAtRoot", func(t *testing.T) {
		dir := newTree(t)
		got, err := Scan(context.Background(), Options{Root: dir})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a.md", "b.txt"}, names(got))
	})

	t.Run("SidecarsAreNeverDocuments", func(t *testing.T) {
		dir := newTree(t)
		got, err := Scan(context.Background(), Options{Root: dir, Recursive: true})
		require.NoError(t, err)
		assert.NotContains(t, names(got), "b.txt.meta.json")
	})

	t.Run("ExcludedDirsPruned", func(t *testing.T) {
		dir := newTree(t)
		got, err := Scan(context.Background(), Options{
			Root:         dir,
			Recursive:    true,
			ExcludedDirs: []string{"node_modules", ".*"},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a.md", "b.txt", "c.md"}, names(got))
	})

	t.Run("AllowedExtensionsFilter", func(t *testing.T) {
		dir := newTree(t)
		got, err := Scan(context.Background(), Options{
			Root:              dir,
			Recursive:         true,
			AllowedExtensions: []string{"txt"},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"b.txt"}, names(got))
	})

	t.Run("ExcludedExtensionsDropped", func(t *testing.T) {
		dir := newTree(t)
		got, err := Scan(context.Background(), Options{
			Root:               dir,
			Recursive:          true,
			ExcludedExtensions: []string{"md"},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"b.txt"}, names(got))
	})

	t.Run("MtimeWindow", func(t *testing.T) {
		dir := t.TempDir()
		oldFile := writeFile(t, filepath.Join(dir, "old.md"), "old")
		writeFile(t, filepath.Join(dir, "new.md"), "new")

		past := time.Now().Add(-48 * time.Hour)
		require.NoError(t, os.Chtimes(oldFile, past, past))

		from := time.Now().UTC().Add(-time.Hour)
		got, err := Scan(context.Background(), Options{Root: dir, Recursive: true, MtimeFrom: &from})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"new.md"}, names(got))

		to := time.Now().UTC().Add(-time.Hour)
		got, err = Scan(context.Background(), Options{Root: dir, Recursive: true, MtimeTo: &to})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"old.md"}, names(got))
	})

	t.Run("RootMustBeDirectory", func(t *testing.T) {
		dir := t.TempDir()
		file := writeFile(t, filepath.Join(dir, "a.md"), "a")
		_, err := Scan(context.Background(), Options{Root: file})
		require.Error(t, err)
	})

	t.Run("MissingRootFails", func(t *testing.T) {
		_, err := Scan(context.Background(), Options{Root: filepath.Join(t.TempDir(), "missing")})
		require.Error(t, err)
	})
}
