package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFunnelMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFunnelMetrics(reg)

	m.ObserveWebhook("verified")
	m.ObserveWebhook("verified")
	m.ObserveWebhook("unauthorized")
	m.ObserveWebhookLatency(20 * time.Millisecond)
	m.ObserveComment("messaged")
	m.ObserveDM("sent")
	m.ObserveIntake("created")
	m.ObserveSink("google_sheets", "failed", time.Second)

	if got := testutil.ToFloat64(m.webhookTotal.WithLabelValues("verified")); got != 2 {
		t.Fatalf("verified deliveries = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.sinkTotal.WithLabelValues("google_sheets", "failed")); got != 1 {
		t.Fatalf("sheet failures = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.sinkLatency); got != 1 {
		t.Fatalf("expected one sink latency series, got %d", got)
	}
}

func TestFunnelMetricsNilSafe(t *testing.T) {
	var m *FunnelMetrics
	m.ObserveWebhook("verified")
	m.ObserveWebhookLatency(time.Millisecond)
	m.ObserveComment("skipped")
	m.ObserveDM("failed")
	m.ObserveIntake("invalid")
	m.ObserveSink("brevo", "skipped", 0)
}
