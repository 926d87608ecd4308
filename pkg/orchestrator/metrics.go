package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "mycroft"

// Metrics tracks pipeline activity for the /metrics endpoint. A nil *Metrics
// is valid and records nothing, so tests and one-shot commands skip the
// registry entirely.
type Metrics struct {
	plansCreated       prometheus.Counter
	autoApproved       prometheus.Counter
	sends              *prometheus.CounterVec
	fallbacks          prometheus.Counter
	rejectionsReviewed prometheus.Counter
	quarantined        prometheus.Counter
	cycleDuration      prometheus.Histogram
}

// NewMetrics creates the pipeline metrics and registers them when a
// registerer is provided.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		plansCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "plans_created_total",
			Help:      "Plans generated from work items",
		}),
		autoApproved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "plans_auto_approved_total",
			Help:      "Plans that cleared the confidence threshold without human review",
		}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sends_total",
			Help:      "Outbound send attempts by result",
		}, []string{"result"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reasoner_fallbacks_total",
			Help:      "Plans written with the fallback body because the reasoner failed",
		}),
		rejectionsReviewed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rejections_reviewed_total",
			Help:      "Rejected plans processed by the learning loop",
		}),
		quarantined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "items_quarantined_total",
			Help:      "Work items moved to quarantine after a processing failure",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one full polling cycle",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.plansCreated,
			m.autoApproved,
			m.sends,
			m.fallbacks,
			m.rejectionsReviewed,
			m.quarantined,
			m.cycleDuration,
		)
	}
	return m
}

func (m *Metrics) PlanCreated() {
	if m != nil {
		m.plansCreated.Inc()
	}
}

func (m *Metrics) AutoApproved() {
	if m != nil {
		m.autoApproved.Inc()
	}
}

func (m *Metrics) Send(result string) {
	if m != nil {
		m.sends.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Fallback() {
	if m != nil {
		m.fallbacks.Inc()
	}
}

func (m *Metrics) RejectionReviewed() {
	if m != nil {
		m.rejectionsReviewed.Inc()
	}
}

func (m *Metrics) Quarantined() {
	if m != nil {
		m.quarantined.Inc()
	}
}

func (m *Metrics) ObserveCycle(seconds float64) {
	if m != nil {
		m.cycleDuration.Observe(seconds)
	}
}
