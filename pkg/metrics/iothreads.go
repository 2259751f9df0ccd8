package metrics

import (
	"time"

	"github.com/glustercore/iocore/pkg/iothreads"
)

// IOThreadsMetrics observes the worker pool's queue depth, concurrency
// limits, worker counts, and watchdog stall events. Like
// ClientRegistryMetrics, it is polled from IOThreads.Statedump rather
// than wired into the pool itself.
type IOThreadsMetrics interface {
	ObserveClasses(classes []iothreads.PriorityStats)
	ObserveWorkers(currCount, sleepCount, maxThreads int)
	ObserveTunables(idleTime time.Duration, stackSize int64)
	RecordStall(pri iothreads.Priority)
}

var newPrometheusIOThreadsMetrics func() IOThreadsMetrics

// RegisterIOThreadsMetricsConstructor registers the Prometheus
// constructor. Called by pkg/metrics/prometheus's package init.
func RegisterIOThreadsMetricsConstructor(constructor func() IOThreadsMetrics) {
	newPrometheusIOThreadsMetrics = constructor
}

// NewIOThreadsMetrics returns nil when metrics are disabled or no
// backend has registered itself.
func NewIOThreadsMetrics() IOThreadsMetrics {
	if !IsEnabled() || newPrometheusIOThreadsMetrics == nil {
		return nil
	}
	return newPrometheusIOThreadsMetrics()
}

// ObserveIOThreadClasses records a Statedump's per-priority snapshot.
func ObserveIOThreadClasses(m IOThreadsMetrics, classes []iothreads.PriorityStats) {
	if m != nil {
		m.ObserveClasses(classes)
	}
}

// ObserveIOThreadWorkers records the pool's current/sleeping/maximum
// worker counts.
func ObserveIOThreadWorkers(m IOThreadsMetrics, currCount, sleepCount, maxThreads int) {
	if m != nil {
		m.ObserveWorkers(currCount, sleepCount, maxThreads)
	}
}

// ObserveIOThreadTunables records the pool's fixed idle_time and
// stack_size tunables.
func ObserveIOThreadTunables(m IOThreadsMetrics, idleTime time.Duration, stackSize int64) {
	if m != nil {
		m.ObserveTunables(idleTime, stackSize)
	}
}

// RecordIOThreadStall increments the stall counter for pri. Intended to
// be passed as (part of) an iothreads.StallHandler.
func RecordIOThreadStall(m IOThreadsMetrics, pri iothreads.Priority) {
	if m != nil {
		m.RecordStall(pri)
	}
}
