// Package scan discovers files on the local filesystem and probes their
// metadata. The probe owns path normalization: every path that reaches the
// database or is compared against stored paths goes through NormalizePath.
package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ErrMetadataUnavailable indicates a path could not be stat'd. The
// coordinator treats this as a skip, not an error.
var ErrMetadataUnavailable = errors.New("file metadata unavailable")

// FileMeta is the normalized metadata for one file.
type FileMeta struct {
	// FileName is the basename including extension.
	FileName string
	// FileType is the lowercased extension without the leading dot;
	// empty for files with no extension.
	FileType string
	// FileSize is the size in bytes.
	FileSize int64
	// FileCreatedAt is a best-effort creation instant in UTC. Platforms
	// without birth time fall back to the inode change time (ctime).
	FileCreatedAt time.Time
	// FileModifiedTime is the mtime as a UTC instant.
	FileModifiedTime time.Time
	// FilePath is the identity key: absolute, NFC-normalized, with
	// forward-slash separators.
	FilePath string
}

// NormalizePath canonicalizes a path into the form used as the document
// identity key: resolve to absolute, NFC-normalize, replace backslashes with
// forward slashes. Normalization is idempotent.
func NormalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %q: %w", path, err)
	}
	nfc := norm.NFC.String(abs)
	return strings.ReplaceAll(nfc, "\\", "/"), nil
}

// ExtensionOf returns the lowercased extension of a path without the leading
// dot, or "" if the file has no extension.
func ExtensionOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// Probe stats a path and returns its normalized metadata. Timestamps are
// converted to UTC instants. Returns an error wrapping
// ErrMetadataUnavailable when the path does not exist or cannot be stat'd.
func Probe(path string) (*FileMeta, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrMetadataUnavailable, path)
	}

	normalized, err := NormalizePath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}

	return &FileMeta{
		FileName:         filepath.Base(path),
		FileType:         ExtensionOf(path),
		FileSize:         info.Size(),
		FileCreatedAt:    createdTime(info).UTC(),
		FileModifiedTime: info.ModTime().UTC(),
		FilePath:         normalized,
	}, nil
}
