// Package metrics exposes Prometheus instrumentation for the client
// registry, the IO thread pool, and the dentry lock serializer.
//
// Every constructor here returns nil when metrics are disabled, and
// every recording function on the concrete types tolerates a nil
// receiver, so callers can pass a nil metrics handle through
// unconditionally rather than branching on whether metrics are enabled.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.Mutex
	enabled  bool
	registry *prometheus.Registry
)

// InitRegistry creates the Prometheus registry backing every metric in
// this package. Calling it twice is a no-op after the first call.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	if registry == nil {
		registry = prometheus.NewRegistry()
		enabled = true
	}

	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// GetRegistry returns the shared registry, or nil if InitRegistry has
// not been called.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	return registry
}

// Reset discards the current registry. Exists for test isolation: the
// package-level registry is process-global, and individual test cases
// that call InitRegistry need a clean slate.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
	enabled = false
}
