package prometheus

import (
	"github.com/glustercore/iocore/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type clientRegistryMetrics struct {
	activeClients prometheus.Gauge
	totalFDs      prometheus.Gauge
	totalBinds    prometheus.Gauge
}

func newClientRegistryMetrics() metrics.ClientRegistryMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &clientRegistryMetrics{
		activeClients: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "iocore_client_registry_active_clients",
			Help: "Number of clients currently registered (refcount > 0)",
		}),
		totalFDs: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "iocore_client_registry_total_fds",
			Help: "Total open file descriptors across all registered clients",
		}),
		totalBinds: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "iocore_client_registry_total_binds",
			Help: "Total bind_count across all registered clients",
		}),
	}
}

func (m *clientRegistryMetrics) Observe(active int, totalFDs, totalBinds uint64) {
	if m == nil {
		return
	}
	m.activeClients.Set(float64(active))
	m.totalFDs.Set(float64(totalFDs))
	m.totalBinds.Set(float64(totalBinds))
}

func init() {
	metrics.RegisterClientRegistryMetricsConstructor(newClientRegistryMetrics)
}
