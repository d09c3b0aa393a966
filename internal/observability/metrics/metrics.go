package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics exposes counters/histograms for lead capture and notification.
type LeadMetrics struct {
	webhookTotal     *prometheus.CounterVec
	emailSendTotal   *prometheus.CounterVec
	emailSendLatency *prometheus.HistogramVec
	captureTotal     *prometheus.CounterVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadran",
			Subsystem: "leads",
			Name:      "notify_webhook_total",
			Help:      "Lead notification webhook invocations by outcome",
		}, []string{"outcome"}),
		emailSendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadran",
			Subsystem: "email",
			Name:      "send_total",
			Help:      "Transactional email sends by provider and status",
		}, []string{"provider", "status"}),
		emailSendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cadran",
			Subsystem: "email",
			Name:      "send_latency_seconds",
			Help:      "Latency of provider send calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		captureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadran",
			Subsystem: "leads",
			Name:      "capture_total",
			Help:      "Landing form lead captures by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.webhookTotal, m.emailSendTotal, m.emailSendLatency, m.captureTotal)
	return m
}

func (m *LeadMetrics) ObserveWebhook(outcome string) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(outcome).Inc()
}

func (m *LeadMetrics) ObserveEmailSend(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.emailSendTotal.WithLabelValues(provider, status).Inc()
	m.emailSendLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *LeadMetrics) ObserveCapture(status string) {
	if m == nil {
		return
	}
	m.captureTotal.WithLabelValues(status).Inc()
}
