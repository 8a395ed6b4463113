package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the client-side collectors for job submission and report
// polling. Each Recorder owns its registry so tests can inspect values
// without touching the process-wide default registry.
type Recorder struct {
	registry *prometheus.Registry

	SubmissionsTotal *prometheus.CounterVec
	PollAttempts     *prometheus.CounterVec
	PollOutcomes     *prometheus.CounterVec
	PollDuration     prometheus.Histogram
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		SubmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "traceops",
				Name:      "job_submissions_total",
				Help:      "Job submissions by result",
			},
			[]string{"result"},
		),
		PollAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "traceops",
				Name:      "report_poll_attempts_total",
				Help:      "Report fetch attempts by result (ready, pending, not_ready)",
			},
			[]string{"result"},
		),
		PollOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "traceops",
				Name:      "report_poll_outcomes_total",
				Help:      "Completed polling loops by outcome",
			},
			[]string{"outcome"},
		),
		PollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "traceops",
				Name:      "report_poll_duration_seconds",
				Help:      "Wall time from first fetch to loop termination",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 15, 30, 60},
			},
		),
	}
	reg.MustRegister(r.SubmissionsTotal, r.PollAttempts, r.PollOutcomes, r.PollDuration)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Submission(result string) {
	if r == nil {
		return
	}
	r.SubmissionsTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) PollAttempt(result string) {
	if r == nil {
		return
	}
	r.PollAttempts.WithLabelValues(result).Inc()
}

func (r *Recorder) PollOutcome(outcome string, seconds float64) {
	if r == nil {
		return
	}
	r.PollOutcomes.WithLabelValues(outcome).Inc()
	r.PollDuration.Observe(seconds)
}
