package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CodesIssued    prometheus.Counter
	IssueThrottled prometheus.Counter
	Verifications  *prometheus.CounterVec
}

// New registers the OTP collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CodesIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "ballotguard_otp_codes_issued_total",
			Help: "Total number of OTP codes issued",
		}),
		IssueThrottled: f.NewCounter(prometheus.CounterOpts{
			Name: "ballotguard_otp_issue_throttled_total",
			Help: "Total number of OTP issue requests rejected by the per-voter limiter",
		}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ballotguard_otp_verifications_total",
			Help: "OTP verification attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementIssued() {
	if m == nil {
		return
	}
	m.CodesIssued.Inc()
}

func (m *Metrics) IncrementThrottled() {
	if m == nil {
		return
	}
	m.IssueThrottled.Inc()
}

// ObserveVerification counts one verification; outcome is "ok", "mismatch",
// "expired", "already_consumed" or "missing".
func (m *Metrics) ObserveVerification(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}
