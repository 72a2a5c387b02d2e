package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-level Prometheus metrics. Domain packages
// register their own collectors next to the code that records them.
type Metrics struct {
	HTTPLatency *prometheus.HistogramVec
	BuildInfo   *prometheus.GaugeVec
}

// New creates the process-level metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ballotguard_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route pattern and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		BuildInfo: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ballotguard_build_info",
			Help: "Constant 1, labelled with the running environment",
		}, []string{"environment"}),
	}
}

// MarkStarted records the running environment.
func (m *Metrics) MarkStarted(environment string) {
	m.BuildInfo.WithLabelValues(environment).Set(1)
}
