package convert

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const tesseractTimeout = 2 * time.Minute

// localProvider extracts text from images with tesseract. It is the
// terminal fallback of every provider chain: it has no network
// dependencies and degrades to an empty-text note when the binary is
// missing or the image has no recognizable text.
type localProvider struct {
	lang string
}

func newLocalProvider(opts Options) *localProvider {
	lang := opts.TesseractLang
	if lang == "" {
		lang = "eng"
	}
	return &localProvider{lang: lang}
}

func (p *localProvider) Name() string { return "local" }

func (p *localProvider) Describe(ctx context.Context, path string) (string, error) {
	text, err := p.ocr(ctx, path)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", filepath.Base(path))
	if text == "" {
		b.WriteString("Image file. No text detected by OCR.\n")
	} else {
		b.WriteString("## Extracted Text\n\n")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (p *localProvider) ocr(ctx context.Context, path string) (string, error) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		// OCR is optional; the document still gets hash and EXIF
		// metadata from the front matter.
		return "", nil
	}

	cctx, cancel := context.WithTimeout(ctx, tesseractTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "tesseract", path, "stdout", "-l", p.lang)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("tesseract: %s", firstLine(detail))
	}
	return strings.TrimSpace(stdout.String()), nil
}
