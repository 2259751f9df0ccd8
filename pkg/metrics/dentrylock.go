package metrics

// DentryLockMetrics observes pkg/dentrylock.Serializer's active lock count.
type DentryLockMetrics interface {
	ObserveActiveLocks(n uint64)
}

var newPrometheusDentryLockMetrics func() DentryLockMetrics

// RegisterDentryLockMetricsConstructor registers the Prometheus
// constructor. Called by pkg/metrics/prometheus's package init.
func RegisterDentryLockMetricsConstructor(constructor func() DentryLockMetrics) {
	newPrometheusDentryLockMetrics = constructor
}

// NewDentryLockMetrics returns nil when metrics are disabled or no
// backend has registered itself.
func NewDentryLockMetrics() DentryLockMetrics {
	if !IsEnabled() || newPrometheusDentryLockMetrics == nil {
		return nil
	}
	return newPrometheusDentryLockMetrics()
}

// ObserveDentryLock records the serializer's current active lock count.
func ObserveDentryLock(m DentryLockMetrics, n uint64) {
	if m != nil {
		m.ObserveActiveLocks(n)
	}
}
