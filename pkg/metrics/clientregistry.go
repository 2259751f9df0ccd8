package metrics

// ClientRegistryMetrics observes aggregate pkg/client.Registry state.
// Implementations are polled periodically from a client registry
// statedump rather than called from inside the registry itself, so
// pkg/client carries no dependency on this package.
type ClientRegistryMetrics interface {
	Observe(active int, totalFDs, totalBinds uint64)
}

// newPrometheusClientRegistryMetrics is set by pkg/metrics/prometheus's
// init(), a registration indirection that avoids an import cycle
// between this package and its prometheus backend.
var newPrometheusClientRegistryMetrics func() ClientRegistryMetrics

// RegisterClientRegistryMetricsConstructor registers the Prometheus
// constructor. Called by pkg/metrics/prometheus's package init.
func RegisterClientRegistryMetricsConstructor(constructor func() ClientRegistryMetrics) {
	newPrometheusClientRegistryMetrics = constructor
}

// NewClientRegistryMetrics returns nil when metrics are disabled or no
// backend has registered itself, giving callers zero-overhead nil-safe
// instrumentation by default.
func NewClientRegistryMetrics() ClientRegistryMetrics {
	if !IsEnabled() || newPrometheusClientRegistryMetrics == nil {
		return nil
	}
	return newPrometheusClientRegistryMetrics()
}

// ObserveClientRegistry records a client registry statedump snapshot.
func ObserveClientRegistry(m ClientRegistryMetrics, active int, totalFDs, totalBinds uint64) {
	if m != nil {
		m.Observe(active, totalFDs, totalBinds)
	}
}
