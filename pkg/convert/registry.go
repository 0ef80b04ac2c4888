package convert

import (
	"context"
	"strings"
	"sync"

	"github.com/markhive/markhive/internal/logger"
)

// Handler converts a single file into markdown. path is the normalized
// absolute path, fileType the lowercased extension without dot.
type Handler func(ctx context.Context, path, fileType string) Result

// Options carries everything the handlers need from configuration. The
// registry is bootstrapped once per process from a snapshot of these.
type Options struct {
	// Extension category lists, lowercased without dots.
	NativeMarkdownTypes []string
	PlainTextTypes      []string
	CodeTypes           []string
	StructuredTypes     []string
	XMindTypes          []string
	ImageTypes          []string
	VideoTypes          []string
	HTMLTypes           []string
	DiagramTypes        []string

	// Image provider chain.
	ImageProviderPrimary string
	ImageProviderChain   []string
	TesseractLang        string
	EnableFrontMatter    bool
	LLMTimeout           int // milliseconds, remote providers
	LLMBaseURL           string
	LLMAPIKeyEnv         string
	LLMModel             string

	// External converter for office/structured documents. {input} is
	// substituted with the file path; stdout is taken as markdown.
	StructuredCommand string

	// ffprobe binary for video metadata. Defaults to "ffprobe" on PATH.
	FFProbePath string
}

var (
	registryMu   sync.RWMutex
	bootstrapped bool
	handlers     map[string]Handler
	registryOpts Options
)

// Bootstrap populates the extension dispatch table from the category lists.
// Later calls are no-ops; the first configuration wins for the process
// lifetime.
func Bootstrap(opts Options) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if bootstrapped {
		return
	}
	bootstrapped = true

	registryOpts = opts
	handlers = make(map[string]Handler)

	register(opts.NativeMarkdownTypes, handleNative)
	register(opts.PlainTextTypes, handlePlainText)
	register(opts.CodeTypes, handleCode)
	register(opts.StructuredTypes, handleStructured)
	register(opts.XMindTypes, handleXMind)
	register(opts.ImageTypes, handleImage)
	register(opts.VideoTypes, handleVideo)
	register(opts.HTMLTypes, handleHTML)
	register(opts.DiagramTypes, handleDrawio)

	logger.Debug("conversion registry initialized",
		"extensions", len(handlers))
}

// register maps each extension to a handler. Later registrations
// overwrite earlier ones, so when an extension appears in more than one
// category list the category registered last wins.
func register(exts []string, h Handler) {
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		handlers[ext] = h
	}
}

// HandlerFor returns the handler for an extension, or nil when the
// extension is not registered.
func HandlerFor(fileType string) Handler {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return handlers[strings.ToLower(fileType)]
}

// KnownExtensions returns the set of registered extensions. The scanner
// uses this as the default allow-list.
func KnownExtensions() map[string]struct{} {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make(map[string]struct{}, len(handlers))
	for ext := range handlers {
		out[ext] = struct{}{}
	}
	return out
}

// Convert dispatches a file to its handler. Unregistered extensions
// produce a failed result rather than an error.
func Convert(ctx context.Context, path, fileType string) Result {
	h := HandlerFor(fileType)
	if h == nil {
		return Fail(path, fileType, "Unsupported file type: "+fileType)
	}
	return h(ctx, path, fileType)
}

func options() Options {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registryOpts
}

// ResetForTest clears the registry and provider cache so tests can
// bootstrap with their own options.
func ResetForTest() {
	registryMu.Lock()
	bootstrapped = false
	handlers = nil
	registryOpts = Options{}
	registryMu.Unlock()
	resetProvidersForTest()
}
