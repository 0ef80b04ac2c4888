// Package convert turns heterogeneous file formats into markdown. It hosts
// the extension-dispatch registry, one handler per conversion category, and
// the provider fallback chain used by image conversion.
package convert

import (
	"strings"

	"github.com/markhive/markhive/pkg/models"
)

// Result is the outcome of one conversion attempt. Handlers never return
// errors through the error channel; failures are carried as values so the
// coordinator can persist them without unwinding.
type Result struct {
	Success        bool
	Content        string
	ConversionType models.ConversionType
	Error          string
	FilePath       string
	FileType       string
}

// Succeed builds a successful result with NUL bytes stripped from the
// content. Database text columns reject NUL, and OCR output occasionally
// contains it.
func Succeed(path, fileType, content string, ct models.ConversionType) Result {
	return Result{
		Success:        true,
		Content:        strings.ReplaceAll(content, "\x00", ""),
		ConversionType: ct,
		FilePath:       path,
		FileType:       fileType,
	}
}

// Fail builds a failed result carrying a human-readable message with the
// root cause.
func Fail(path, fileType, errMsg string) Result {
	return Result{
		Success:  false,
		Error:    errMsg,
		FilePath: path,
		FileType: fileType,
	}
}
