// Package metrics wraps Prometheus counters/gauges for scan-level
// observability. Purely additive: no engine behavior depends on it, and
// it is updated only from the engine's own goroutine as each result is
// emitted and after each batch, so it introduces no locking on the hot
// path. Uses
// prometheus/client_golang's collector types directly rather than a
// custom in-memory registry, since a single-purpose scanner CLI has no
// need to decouple from a specific metrics backend across subsystems.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/richkmeli/portscanner/internal/result"
)

// Registry holds every metric this scanner exposes. Construct one per
// process (or per scan, if isolation between scans matters to the
// caller) and pass it to engine.New.
type Registry struct {
	PortsScanned     *prometheus.CounterVec
	ActiveConns      prometheus.Gauge
	BatchesProcessed prometheus.Counter
	ResponseTime     prometheus.Histogram
	PortsPerSecond   prometheus.Gauge
}

// NewRegistry builds and registers a fresh set of collectors against reg.
// Pass prometheus.NewRegistry() for test isolation, or
// prometheus.DefaultRegisterer for a long-lived process.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		PortsScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portscanner",
			Name:      "ports_scanned_total",
			Help:      "Ports scanned, partitioned by terminal status.",
		}, []string{"status"}),
		ActiveConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portscanner",
			Name:      "active_connections",
			Help:      "Connection records currently held by the engine's connection table.",
		}),
		BatchesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portscanner",
			Name:      "batches_processed_total",
			Help:      "Connect-scan batches fully classified and cleaned up.",
		}),
		ResponseTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "portscanner",
			Name:      "response_time_seconds",
			Help:      "Time from connect() to terminal classification, per port.",
			Buckets:   prometheus.DefBuckets,
		}),
		PortsPerSecond: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portscanner",
			Name:      "ports_per_second",
			Help:      "Completed-port throughput for the most recently finished scan.",
		}),
	}

	reg.MustRegister(m.PortsScanned, m.ActiveConns, m.BatchesProcessed, m.ResponseTime, m.PortsPerSecond)
	return m
}

// Observe records one classified ScanResult.
func (m *Registry) Observe(r result.ScanResult) {
	if m == nil {
		return
	}
	m.PortsScanned.WithLabelValues(r.Status.String()).Inc()
	m.ResponseTime.Observe(r.ResponseTime.Seconds())
}

// SetActiveConnections updates the live connection-table gauge.
func (m *Registry) SetActiveConnections(n int) {
	if m == nil {
		return
	}
	m.ActiveConns.Set(float64(n))
}

// IncBatches increments the processed-batch counter.
func (m *Registry) IncBatches() {
	if m == nil {
		return
	}
	m.BatchesProcessed.Inc()
}

// SetPortsPerSecond updates the throughput gauge from a completed scan's
// Stats.
func (m *Registry) SetPortsPerSecond(portsPerSecond float64) {
	if m == nil {
		return
	}
	m.PortsPerSecond.Set(portsPerSecond)
}
