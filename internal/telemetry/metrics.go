package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ShipmentsTotal  *prometheus.CounterVec
	CarrierErrors   *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// NewMetrics returns the process-wide Prometheus metrics, registering them
// on first use. Collectors can only be registered once per process.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = newMetrics()
	})
	return metrics
}

func newMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfillment_requests_total",
				Help: "Total number of fulfillment operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fulfillment_request_duration_seconds",
				Help:    "Operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ShipmentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfillment_shipments_total",
				Help: "Total carrier shipments by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		CarrierErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfillment_carrier_errors_total",
				Help: "Total carrier API errors by carrier and error type",
			},
			[]string{"carrier", "error_type"},
		),
	}
}

// RecordRequest records an operation metric.
func (m *Metrics) RecordRequest(operation, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, status).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(duration)
}

// RecordShipment records a carrier shipment outcome.
func (m *Metrics) RecordShipment(kind, outcome string) {
	m.ShipmentsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordError records a carrier error metric.
func (m *Metrics) RecordError(carrier, errorType string) {
	m.CarrierErrors.WithLabelValues(carrier, errorType).Inc()
}
