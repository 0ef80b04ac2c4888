package convert

import (
	"context"
	"strings"
	"sync"

	"github.com/markhive/markhive/internal/logger"
)

// ImageProvider produces a markdown description of an image. "local" is
// the OCR-based provider; any other name is treated as a remote
// vision-model provider.
type ImageProvider interface {
	Name() string
	Describe(ctx context.Context, path string) (string, error)
}

var (
	providerMu    sync.Mutex
	providerCache map[string]ImageProvider
)

// providerChain resolves the configured fallback chain: the primary
// provider first, then the rest of the chain with duplicates removed.
// An empty configuration degrades to the local provider alone.
func providerChain(opts Options) []ImageProvider {
	names := make([]string, 0, 1+len(opts.ImageProviderChain))
	if opts.ImageProviderPrimary != "" {
		names = append(names, opts.ImageProviderPrimary)
	}
	names = append(names, opts.ImageProviderChain...)

	seen := make(map[string]struct{}, len(names))
	chain := make([]ImageProvider, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		chain = append(chain, providerFor(name, opts))
	}
	if len(chain) == 0 {
		chain = append(chain, providerFor("local", opts))
	}
	return chain
}

// providerFor returns the cached provider for a name, building it on
// first use. A remote provider with no base URL configured degrades to
// local so the chain never dead-ends on misconfiguration.
func providerFor(name string, opts Options) ImageProvider {
	providerMu.Lock()
	defer providerMu.Unlock()

	if providerCache == nil {
		providerCache = make(map[string]ImageProvider)
	}
	if p, ok := providerCache[name]; ok {
		return p
	}

	var p ImageProvider
	switch name {
	case "local":
		p = newLocalProvider(opts)
	default:
		if strings.TrimSpace(opts.LLMBaseURL) == "" {
			logger.Warn("remote image provider has no base URL, using local OCR",
				logger.KeyProvider, name)
			p = newLocalProvider(opts)
		} else {
			p = newRemoteProvider(name, opts)
		}
	}
	providerCache[name] = p
	return p
}

func resetProvidersForTest() {
	providerMu.Lock()
	providerCache = nil
	providerMu.Unlock()
}
