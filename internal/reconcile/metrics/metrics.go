package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Runs        *prometheus.CounterVec
	RowsRemoved *prometheus.CounterVec
	Duration    prometheus.Histogram
	LastSuccess prometheus.Gauge
}

// New registers the reconciler collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ballotguard_reconcile_runs_total",
			Help: "Reconciliation runs by result: ok, failed or skipped",
		}, []string{"result"}),
		RowsRemoved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ballotguard_reconcile_rows_removed_total",
			Help: "Duplicate rows deleted by the reconciler per table",
		}, []string{"target"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ballotguard_reconcile_duration_seconds",
			Help:    "Duration of reconciliation runs",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "ballotguard_reconcile_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
}

func (m *Metrics) ObserveRun(result string, elapsed time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(result).Inc()
	m.Duration.Observe(elapsed.Seconds())
	if result == "ok" {
		m.LastSuccess.Set(float64(finished.Unix()))
	}
}

func (m *Metrics) AddRemoved(target string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.RowsRemoved.WithLabelValues(target).Add(float64(n))
}
