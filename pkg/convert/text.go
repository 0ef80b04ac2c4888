package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/markhive/markhive/pkg/models"
)

// readLossy reads a file as UTF-8, replacing invalid byte sequences
// instead of failing. Mixed-encoding notes are common in the wild.
func readLossy(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(raw), "�"), nil
}

// handleNative passes markdown files through verbatim.
func handleNative(_ context.Context, path, fileType string) Result {
	content, err := readLossy(path)
	if err != nil {
		return Fail(path, fileType, fmt.Sprintf("read failed: %v", err))
	}
	return Succeed(path, fileType, content, models.ConversionDirect)
}

// handlePlainText wraps plain text files with a title heading derived from
// the filename.
func handlePlainText(_ context.Context, path, fileType string) Result {
	content, err := readLossy(path)
	if err != nil {
		return Fail(path, fileType, fmt.Sprintf("read failed: %v", err))
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	md := fmt.Sprintf("# %s\n\n%s", title, content)
	return Succeed(path, fileType, md, models.ConversionTextToMD)
}

// handleCode wraps source files in a fenced code block tagged with the
// file extension so the language survives into the markdown.
func handleCode(_ context.Context, path, fileType string) Result {
	content, err := readLossy(path)
	if err != nil {
		return Fail(path, fileType, fmt.Sprintf("read failed: %v", err))
	}
	title := filepath.Base(path)
	fence := "```"
	if strings.Contains(content, "```") {
		fence = "````"
	}
	md := fmt.Sprintf("# %s\n\n%s%s\n%s\n%s", title, fence, fileType,
		strings.TrimRight(content, "\n"), fence)
	return Succeed(path, fileType, md, models.ConversionCodeToMD)
}
