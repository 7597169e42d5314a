package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FunnelMetrics exposes counters/histograms for the comment-to-lead funnel.
type FunnelMetrics struct {
	webhookTotal   *prometheus.CounterVec
	webhookLatency prometheus.Histogram
	commentTotal   *prometheus.CounterVec
	dmTotal        *prometheus.CounterVec
	leadTotal      *prometheus.CounterVec
	sinkTotal      *prometheus.CounterVec
	sinkLatency    *prometheus.HistogramVec
}

func NewFunnelMetrics(reg prometheus.Registerer) *FunnelMetrics {
	m := &FunnelMetrics{
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadfunnel",
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Inbound Meta webhook deliveries by result",
		}, []string{"result"}),
		webhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leadfunnel",
			Subsystem: "webhook",
			Name:      "processing_seconds",
			Help:      "Time spent handling a verified webhook delivery",
			Buckets:   prometheus.DefBuckets,
		}),
		commentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadfunnel",
			Subsystem: "webhook",
			Name:      "comment_events_total",
			Help:      "Comment events seen in webhook payloads by outcome",
		}, []string{"outcome"}),
		dmTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadfunnel",
			Subsystem: "instagram",
			Name:      "dm_sends_total",
			Help:      "Outbound Instagram DMs by status",
		}, []string{"status"}),
		leadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadfunnel",
			Subsystem: "intake",
			Name:      "submissions_total",
			Help:      "Intake form submissions by result",
		}, []string{"result"}),
		sinkTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadfunnel",
			Subsystem: "fanout",
			Name:      "sink_outcomes_total",
			Help:      "Fan-out sink attempts by sink and status",
		}, []string{"sink", "status"}),
		sinkLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadfunnel",
			Subsystem: "fanout",
			Name:      "sink_latency_seconds",
			Help:      "Latency of fan-out sink deliveries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.webhookTotal, m.webhookLatency, m.commentTotal, m.dmTotal, m.leadTotal, m.sinkTotal, m.sinkLatency)
	return m
}

// ObserveWebhook counts a delivery by result (verified, unauthorized, invalid_payload, too_large).
func (m *FunnelMetrics) ObserveWebhook(result string) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(result).Inc()
}

func (m *FunnelMetrics) ObserveWebhookLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.webhookLatency.Observe(d.Seconds())
}

func (m *FunnelMetrics) ObserveComment(outcome string) {
	if m == nil {
		return
	}
	m.commentTotal.WithLabelValues(outcome).Inc()
}

func (m *FunnelMetrics) ObserveDM(status string) {
	if m == nil {
		return
	}
	m.dmTotal.WithLabelValues(status).Inc()
}

func (m *FunnelMetrics) ObserveIntake(result string) {
	if m == nil {
		return
	}
	m.leadTotal.WithLabelValues(result).Inc()
}

func (m *FunnelMetrics) ObserveSink(sink, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.sinkTotal.WithLabelValues(sink, status).Inc()
	m.sinkLatency.WithLabelValues(sink).Observe(d.Seconds())
}
