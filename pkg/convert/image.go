package convert

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/markhive/markhive/internal/logger"
	"github.com/markhive/markhive/pkg/models"
)

// imageFrontMatter makes image documents searchable even when OCR and
// captioning find nothing: hash, dimensions, and a camera-metadata
// allow-list.
type imageFrontMatter struct {
	Type      string            `yaml:"type"`
	File      string            `yaml:"file"`
	SHA256    string            `yaml:"sha256"`
	SizeBytes int64             `yaml:"size_bytes"`
	Width     int               `yaml:"width,omitempty"`
	Height    int               `yaml:"height,omitempty"`
	EXIF      map[string]string `yaml:"exif,omitempty"`
}

// handleImage walks the provider fallback chain until one provider
// produces a description. Every provider failing fails the conversion
// with the per-provider errors aggregated into one message.
func handleImage(ctx context.Context, path, fileType string) Result {
	opts := options()
	chain := providerChain(opts)

	var body string
	var provider string
	var failures []string
	for i, p := range chain {
		out, err := p.Describe(ctx, path)
		if err == nil {
			body = out
			provider = p.Name()
			break
		}
		failures = append(failures, fmt.Sprintf("provider=%s error=%v", p.Name(), err))
		logger.WarnCtx(ctx, "image provider failed",
			logger.KeyProvider, p.Name(),
			logger.KeyAttempt, i+1,
			logger.KeyError, err.Error())
		if ctx.Err() != nil {
			break
		}
	}
	if body == "" {
		return Fail(path, fileType, "all image providers failed: "+strings.Join(failures, "; "))
	}

	logger.DebugCtx(ctx, "image described", logger.KeyProvider, provider)

	if !opts.EnableFrontMatter {
		return Succeed(path, fileType, body, models.ConversionImageToMD)
	}

	fm, err := buildImageFrontMatter(path)
	if err != nil {
		// Metadata is best-effort; the description alone is still a
		// valid document.
		logger.WarnCtx(ctx, "image front matter skipped", logger.KeyError, err.Error())
		return Succeed(path, fileType, body, models.ConversionImageToMD)
	}
	md, err := frontMatter(fm, body)
	if err != nil {
		return Succeed(path, fileType, body, models.ConversionImageToMD)
	}
	return Succeed(path, fileType, md, models.ConversionImageToMD)
}

func buildImageFrontMatter(path string) (*imageFrontMatter, error) {
	sum, size, err := hashFile(path)
	if err != nil {
		return nil, err
	}
	fm := &imageFrontMatter{
		Type:      "image",
		File:      filepath.Base(path),
		SHA256:    sum,
		SizeBytes: size,
	}

	if f, err := os.Open(path); err == nil {
		if cfg, _, err := image.DecodeConfig(f); err == nil {
			fm.Width = cfg.Width
			fm.Height = cfg.Height
		}
		f.Close()
	}

	// EXIF only exists in JPEG and TIFF containers.
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".jpg" || ext == ".jpeg" || ext == ".tif" || ext == ".tiff" {
		if tags, err := readEXIF(path); err == nil && len(tags) > 0 {
			fm.EXIF = tags
		}
	}
	return fm, nil
}
