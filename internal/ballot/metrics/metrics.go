package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CastOutcomes *prometheus.CounterVec
	CastDuration prometheus.Histogram
}

// New registers the ballot collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CastOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ballotguard_cast_total",
			Help: "Cast attempts by outcome: ok or the rejecting error code",
		}, []string{"outcome"}),
		CastDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ballotguard_cast_duration_seconds",
			Help:    "Latency of cast, preconditions and insert included",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) ObserveCast(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CastOutcomes.WithLabelValues(outcome).Inc()
	m.CastDuration.Observe(elapsed.Seconds())
}
