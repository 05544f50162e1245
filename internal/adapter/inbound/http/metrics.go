package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the transport.
// Pass to components that need to record metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseBytes   prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "palisade",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"method", "status"}, // method=GET, status=ok/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "palisade",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets, // 5ms to 10s
			},
			[]string{"method"},
		),
		ResponseBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "palisade",
				Name:      "response_bytes_total",
				Help:      "Total body bytes written to clients",
			},
		),
	}
}

// registerAccessDropsGauge exposes the access-log drop counter as a gauge.
// Registered separately because the access service is optional.
func registerAccessDropsGauge(reg prometheus.Registerer, drops func() int64) {
	promauto.With(reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "palisade",
			Name:      "access_log_drops",
			Help:      "Access records dropped due to backpressure",
		},
		func() float64 { return float64(drops()) },
	)
}
