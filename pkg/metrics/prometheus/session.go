// Package prometheus contains the Prometheus-backed implementations of the
// metrics interfaces.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/buildbeam/agentfs/pkg/metrics"
)

// sessionMetrics is the Prometheus implementation of metrics.SessionMetrics.
type sessionMetrics struct {
	exchangesTotal   *prometheus.CounterVec
	exchangeDuration *prometheus.HistogramVec
	tableDeltaBytes  *prometheus.CounterVec
	lookupsTotal     *prometheus.CounterVec
	drainPages       prometheus.Counter
}

// NewSessionMetrics creates a Prometheus-backed SessionMetrics instance, or
// the no-op implementation when metrics are disabled.
func NewSessionMetrics() metrics.SessionMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopSessionMetrics()
	}

	reg := metrics.GetRegistry()

	return &sessionMetrics{
		exchangesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentfs_exchanges_total",
				Help: "Total coordinator exchanges by message type and status",
			},
			[]string{"type", "status"},
		),
		exchangeDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "agentfs_exchange_duration_seconds",
				Help: "Duration of coordinator exchanges",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					1,      // 1s
				},
			},
			[]string{"type"},
		),
		tableDeltaBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentfs_table_delta_bytes_total",
				Help: "Table synchronization bytes received by table",
			},
			[]string{"table"},
		),
		lookupsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentfs_lookups_total",
				Help: "Path resolutions by outcome (local table hit vs remote listing)",
			},
			[]string{"outcome"},
		),
		drainPages: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "agentfs_drain_pages_total",
				Help: "Written-files drain pages processed",
			},
		),
	}
}

func (m *sessionMetrics) ExchangeCompleted(msgType string, seconds float64, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.exchangesTotal.WithLabelValues(msgType, status).Inc()
	m.exchangeDuration.WithLabelValues(msgType).Observe(seconds)
}

func (m *sessionMetrics) TableDelta(table string, bytes int) {
	m.tableDeltaBytes.WithLabelValues(table).Add(float64(bytes))
}

func (m *sessionMetrics) LookupResolved(outcome string) {
	m.lookupsTotal.WithLabelValues(outcome).Inc()
}

func (m *sessionMetrics) DrainPage() {
	m.drainPages.Inc()
}
