package prometheus

import (
	"github.com/glustercore/iocore/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type dentryLockMetrics struct {
	activeLocks prometheus.Gauge
}

func newDentryLockMetrics() metrics.DentryLockMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &dentryLockMetrics{
		activeLocks: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "iocore_dentrylock_active_locks",
			Help: "Number of entry locks currently held by the dentry serializer",
		}),
	}
}

func (m *dentryLockMetrics) ObserveActiveLocks(n uint64) {
	if m == nil {
		return
	}
	m.activeLocks.Set(float64(n))
}

func init() {
	metrics.RegisterDentryLockMetricsConstructor(newDentryLockMetrics)
}
