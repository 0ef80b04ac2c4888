package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/markhive/markhive/internal/logger"
)

// Options controls a single filesystem scan.
type Options struct {
	// Root is the directory to walk.
	Root string
	// Recursive controls descent below Root.
	Recursive bool
	// AllowedExtensions is a lowercased allow-list without dots. When
	// empty every extension passes.
	AllowedExtensions []string
	// MtimeFrom and MtimeTo bound the file modification time (inclusive,
	// UTC). Either may be nil.
	MtimeFrom *time.Time
	MtimeTo   *time.Time
	// ExcludedDirs are doublestar patterns matched against directory
	// basenames; matching directories are pruned.
	ExcludedDirs []string
	// ExcludedExtensions are lowercased extensions (no dot) to drop.
	ExcludedExtensions []string
}

// Scan walks Root depth-first and returns the paths that pass all filters,
// in directory iteration order. It fails only for I/O errors on the root
// itself; errors on individual entries are logged and skipped.
func Scan(ctx context.Context, opts Options) ([]string, error) {
	rootInfo, err := os.Stat(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("scan failed for root %q: %w", opts.Root, err)
	}
	if !rootInfo.IsDir() {
		return nil, fmt.Errorf("scan failed: root %q is not a directory", opts.Root)
	}

	allowed := toSet(opts.AllowedExtensions)
	excludedExts := toSet(opts.ExcludedExtensions)

	var matched []string
	walkErr := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if path == opts.Root {
				return fmt.Errorf("scan failed for root %q: %w", opts.Root, err)
			}
			logger.Warn("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == opts.Root {
				return nil
			}
			if matchesAny(opts.ExcludedDirs, d.Name()) {
				return filepath.SkipDir
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		// Sidecar metadata files describe their neighbor, they are
		// never documents themselves.
		if strings.HasSuffix(d.Name(), ".meta.json") {
			return nil
		}

		ext := ExtensionOf(path)
		if _, drop := excludedExts[ext]; drop {
			return nil
		}
		if len(allowed) > 0 {
			if _, ok := allowed[ext]; !ok {
				return nil
			}
		}

		if opts.MtimeFrom != nil || opts.MtimeTo != nil {
			info, err := d.Info()
			if err != nil {
				logger.Warn("skipping file without metadata", "path", path, "error", err)
				return nil
			}
			mtime := info.ModTime().UTC()
			if opts.MtimeFrom != nil && mtime.Before(*opts.MtimeFrom) {
				return nil
			}
			if opts.MtimeTo != nil && mtime.After(*opts.MtimeTo) {
				return nil
			}
		}

		matched = append(matched, path)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return matched, nil
}

// matchesAny reports whether name matches any of the doublestar patterns.
// Invalid patterns never match.
func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
