package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records reconciliation outcomes, rejected webhooks and job runs.
type PaymentMetrics struct {
	outcomes    *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobFailures *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on reg. A nil registerer
// yields a recorder that drops everything.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_reconciliation_outcomes_total",
		Help: "Reconciliation outcomes by source and outcome.",
	}, []string{"source", "outcome"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_webhook_rejections_total",
		Help: "Inbound provider webhooks rejected before reconciliation.",
	}, []string{"provider", "reason"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payments_job_duration_seconds",
		Help:    "Duration of payment batch jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	jobFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_job_failures_total",
		Help: "Payment batch job runs that returned an error.",
	}, []string{"job"})
	reg.MustRegister(outcomes, rejections, jobDuration, jobFailures)

	return &PaymentMetrics{
		outcomes:    outcomes,
		rejections:  rejections,
		jobDuration: jobDuration,
		jobFailures: jobFailures,
	}
}

func (m *PaymentMetrics) ObserveOutcome(source, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

func (m *PaymentMetrics) IncWebhookRejected(provider, reason string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(provider), normalizeLabel(reason)).Inc()
}

// ObserveJob records one job run; a non-nil err also counts as a failure.
func (m *PaymentMetrics) ObserveJob(job string, duration time.Duration, err error) {
	if m == nil || m.jobDuration == nil {
		return
	}
	m.jobDuration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
	if err != nil {
		m.jobFailures.WithLabelValues(normalizeLabel(job)).Inc()
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
