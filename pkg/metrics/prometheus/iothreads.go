package prometheus

import (
	"time"

	"github.com/glustercore/iocore/pkg/iothreads"
	"github.com/glustercore/iocore/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ioThreadsMetrics struct {
	queueSize      *prometheus.GaugeVec
	inFlight       *prometheus.GaugeVec
	limit          *prometheus.GaugeVec
	workerCount    prometheus.Gauge
	sleepCount     prometheus.Gauge
	maxThreads     prometheus.Gauge
	idleTimeSecond prometheus.Gauge
	stackSize      prometheus.Gauge
	stalls         *prometheus.CounterVec
}

func newIOThreadsMetrics() metrics.IOThreadsMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &ioThreadsMetrics{
		queueSize: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "iocore_iothreads_queue_size",
			Help: "Number of call stubs waiting in a priority class's queue",
		}, []string{"priority"}),
		inFlight: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "iocore_iothreads_in_flight",
			Help: "Number of call stubs currently executing for a priority class",
		}, []string{"priority"}),
		limit: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "iocore_iothreads_limit",
			Help: "Current concurrency limit for a priority class",
		}, []string{"priority"}),
		workerCount: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "iocore_iothreads_worker_count",
			Help: "Number of live worker goroutines",
		}),
		sleepCount: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "iocore_iothreads_sleeping_workers",
			Help: "Number of workers currently parked on the condition variable",
		}),
		maxThreads: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "iocore_iothreads_maximum_threads",
			Help: "Configured ceiling on live worker goroutines",
		}),
		idleTimeSecond: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "iocore_iothreads_idle_time_seconds",
			Help: "Configured idle timeout before a worker becomes a departure candidate",
		}),
		stackSize: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "iocore_iothreads_stack_size_bytes",
			Help: "Configured per-worker stack size, reported for parity only",
		}),
		stalls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "iocore_iothreads_watchdog_stalls_total",
			Help: "Total watchdog stall events raised per priority class",
		}, []string{"priority"}),
	}
}

func (m *ioThreadsMetrics) ObserveClasses(classes []iothreads.PriorityStats) {
	if m == nil {
		return
	}
	for _, c := range classes {
		label := c.Priority.String()
		m.queueSize.WithLabelValues(label).Set(float64(c.QueueSize))
		m.inFlight.WithLabelValues(label).Set(float64(c.InFlight))
		m.limit.WithLabelValues(label).Set(float64(c.Limit))
	}
}

func (m *ioThreadsMetrics) ObserveWorkers(currCount, sleepCount, maxThreads int) {
	if m == nil {
		return
	}
	m.workerCount.Set(float64(currCount))
	m.sleepCount.Set(float64(sleepCount))
	m.maxThreads.Set(float64(maxThreads))
}

func (m *ioThreadsMetrics) ObserveTunables(idleTime time.Duration, stackSize int64) {
	if m == nil {
		return
	}
	m.idleTimeSecond.Set(idleTime.Seconds())
	m.stackSize.Set(float64(stackSize))
}

func (m *ioThreadsMetrics) RecordStall(pri iothreads.Priority) {
	if m == nil {
		return
	}
	m.stalls.WithLabelValues(pri.String()).Inc()
}

func init() {
	metrics.RegisterIOThreadsMetricsConstructor(newIOThreadsMetrics)
}
