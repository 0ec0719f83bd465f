package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type prometheusObserver struct {
	overrideWrites *prometheus.CounterVec
	optIns         *prometheus.CounterVec
	eligibility    prometheus.Counter
}

var (
	overrideWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollout_override_writes_total",
		Help: "Total number of subject feature override writes",
	}, []string{"subject_kind"})
	optIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollout_opt_in_total",
		Help: "Total number of successful feature opt-ins",
	}, []string{"slug"})
	eligibilityEvals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollout_eligibility_evals_total",
		Help: "Total number of opt-in eligibility evaluations",
	})
)

func NewPrometheusObserver() EngineObserver {
	return &prometheusObserver{
		overrideWrites: overrideWrites,
		optIns:         optIns,
		eligibility:    eligibilityEvals,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (p *prometheusObserver) RecordOverrideWrite(subjectKind string) {
	p.overrideWrites.WithLabelValues(subjectKind).Inc()
}

func (p *prometheusObserver) RecordOptIn(slug string) {
	p.optIns.WithLabelValues(slug).Inc()
}

func (p *prometheusObserver) RecordEligibilityEval() {
	p.eligibility.Inc()
}
