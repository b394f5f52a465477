package metrics

import "github.com/prometheus/client_golang/prometheus"

// CaseMetrics exposes counters/histograms for the case review workflow.
type CaseMetrics struct {
	claimsTotal    *prometheus.CounterVec
	releasedTotal  prometheus.Counter
	reviewsTotal   *prometheus.CounterVec
	handlerLatency *prometheus.HistogramVec
}

func NewCaseMetrics(reg prometheus.Registerer) *CaseMetrics {
	m := &CaseMetrics{
		claimsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jeevansetu",
			Subsystem: "cases",
			Name:      "claims_total",
			Help:      "Total case claim attempts",
		}, []string{"role", "outcome"}),
		releasedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jeevansetu",
			Subsystem: "cases",
			Name:      "claims_released_total",
			Help:      "Total expired claims released back to the pool",
		}),
		reviewsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jeevansetu",
			Subsystem: "cases",
			Name:      "reviews_total",
			Help:      "Total review submissions",
		}, []string{"kind", "outcome"}),
		handlerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jeevansetu",
			Subsystem: "cases",
			Name:      "handler_latency_seconds",
			Help:      "Latency of case workflow handlers",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.claimsTotal, m.releasedTotal, m.reviewsTotal, m.handlerLatency)
	return m
}

func (m *CaseMetrics) ObserveClaim(role, outcome string) {
	if m == nil {
		return
	}
	m.claimsTotal.WithLabelValues(role, outcome).Inc()
}

func (m *CaseMetrics) ObserveReleased(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.releasedTotal.Add(float64(count))
}

func (m *CaseMetrics) ObserveReview(kind, outcome string) {
	if m == nil {
		return
	}
	m.reviewsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *CaseMetrics) ObserveHandlerLatency(handler string, seconds float64) {
	if m == nil {
		return
	}
	m.handlerLatency.WithLabelValues(handler).Observe(seconds)
}

// AssistantMetrics exposes counters for the AI assistant endpoints.
type AssistantMetrics struct {
	completionsTotal *prometheus.CounterVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		completionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jeevansetu",
			Subsystem: "assistant",
			Name:      "completions_total",
			Help:      "Total LLM completion calls",
		}, []string{"endpoint", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.completionsTotal)
	return m
}

func (m *AssistantMetrics) ObserveCompletion(endpoint, status string) {
	if m == nil {
		return
	}
	m.completionsTotal.WithLabelValues(endpoint, status).Inc()
}
