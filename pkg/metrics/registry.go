package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	mu       sync.Mutex
	enabled  bool
	registry *prometheus.Registry
)

// InitRegistry creates the global Prometheus registry and enables metrics
// collection. Must be called before any metric set is constructed; metric
// constructors return nil (zero overhead) until then.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	enabled = true
	return registry
}

// IsEnabled reports whether metrics collection is enabled.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// GetRegistry returns the global registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return nil
	}
	return registry
}

// ResetForTest clears the global registry so tests can re-initialize.
func ResetForTest() {
	mu.Lock()
	defer mu.Unlock()
	enabled = false
	registry = nil
}
