package convert

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/markhive/markhive/internal/logger"
	"github.com/markhive/markhive/pkg/models"
)

const structuredTimeout = 5 * time.Minute

// handleStructured delegates office and rich-document formats (pdf, docx,
// xlsx, epub, ...) to the configured external converter command.
func handleStructured(ctx context.Context, path, fileType string) Result {
	md, err := runStructuredCommand(ctx, path)
	if err != nil {
		return Fail(path, fileType, err.Error())
	}
	return Succeed(path, fileType, md, models.ConversionStructuredToMD)
}

// handleHTML runs the same external converter but tags the result so HTML
// pages are distinguishable from office documents.
func handleHTML(ctx context.Context, path, fileType string) Result {
	md, err := runStructuredCommand(ctx, path)
	if err != nil {
		return Fail(path, fileType, err.Error())
	}
	return Succeed(path, fileType, md, models.ConversionHTMLToMD)
}

// runStructuredCommand executes the configured converter with {input}
// substituted by the file path and returns its stdout as markdown.
func runStructuredCommand(ctx context.Context, path string) (string, error) {
	opts := options()
	if strings.TrimSpace(opts.StructuredCommand) == "" {
		return "", fmt.Errorf("no structured document converter configured")
	}

	argv := substituteCommand(opts.StructuredCommand, path)
	if len(argv) == 0 {
		return "", fmt.Errorf("invalid structured converter command")
	}

	cctx, cancel := context.WithTimeout(ctx, structuredTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("converter %q failed: %s", argv[0], firstLine(detail))
	}
	logger.DebugCtx(ctx, "structured converter finished",
		logger.KeyPath, path,
		logger.KeyDurationMs, logger.Duration(start))

	md := strings.TrimSpace(stdout.String())
	if md == "" {
		return "", fmt.Errorf("converter %q produced empty output", argv[0])
	}
	return md, nil
}

// substituteCommand splits the command template on whitespace and replaces
// the {input} placeholder. The path is substituted as a single argv entry,
// so spaces in filenames are safe. A template without {input} gets the
// path appended.
func substituteCommand(template, path string) []string {
	fields := strings.Fields(template)
	substituted := false
	argv := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		if strings.Contains(f, "{input}") {
			argv = append(argv, strings.ReplaceAll(f, "{input}", path))
			substituted = true
			continue
		}
		argv = append(argv, f)
	}
	if !substituted {
		argv = append(argv, path)
	}
	return argv
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
