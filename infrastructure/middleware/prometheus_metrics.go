// Package middleware provides cross-cutting concerns for the fulfillment
// engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mosaic-data/mosaic/internal/ports"
)

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus, exposing fulfillment throughput, per-unit outcomes, and
// worker pool sizing.
type PrometheusMetrics struct {
	fulfillmentDuration *prometheus.HistogramVec
	fulfillmentUnits    *prometheus.HistogramVec
	unitResults         *prometheus.CounterVec
	poolSize            prometheus.Gauge
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// all metrics in the default Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		fulfillmentDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mosaic_fulfillment_duration_seconds",
				Help:    "Wall-clock duration of fulfillment calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		fulfillmentUnits: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mosaic_fulfillment_units",
				Help:    "Number of interfaces dispatched per fulfillment call.",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
			},
			[]string{"status"},
		),
		unitResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mosaic_unit_results_total",
				Help: "Interface executions by name and outcome.",
			},
			[]string{"interface", "status"},
		),
		poolSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mosaic_worker_pool_size",
				Help: "Effective worker count of the last dispatch.",
			},
		),
	}
}

// ObserveFulfillment records one completed fulfillment call.
func (m *PrometheusMetrics) ObserveFulfillment(d time.Duration, units int, status string) {
	m.fulfillmentDuration.WithLabelValues(status).Observe(d.Seconds())
	m.fulfillmentUnits.WithLabelValues(status).Observe(float64(units))
}

// IncUnitResult counts one interface completion.
func (m *PrometheusMetrics) IncUnitResult(iface, status string) {
	m.unitResults.WithLabelValues(iface, status).Inc()
}

// SetPoolSize records the effective worker count.
func (m *PrometheusMetrics) SetPoolSize(n int) {
	m.poolSize.Set(float64(n))
}
