package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/ig-lead-funnel/internal/leads"
	"github.com/wolfman30/ig-lead-funnel/internal/observability/metrics"
	"github.com/wolfman30/ig-lead-funnel/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var dispatchTracer = otel.Tracer("leadfunnel.internal.fanout")

// DefaultSinkTimeout bounds a single sink delivery when none is configured.
const DefaultSinkTimeout = 8 * time.Second

// ErrSinkNotConfigured marks a sink whose credentials or target are absent.
// The dispatcher reports it as a skip rather than a failure.
var ErrSinkNotConfigured = errors.New("fanout: sink not configured")

// Sink delivers a stored lead to one external system.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, lead *leads.Lead) error
}

// Status is the result class of one sink delivery.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusSkipped Status = "skipped"
)

// Outcome describes what happened to one sink for one lead.
type Outcome struct {
	Sink     string
	Status   Status
	Err      error
	Duration time.Duration
}

// Dispatcher runs every sink for a lead concurrently. Sinks never see each
// other's failures and never fail the caller.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.FunnelMetrics
}

// NewDispatcher builds a dispatcher. Nil sinks are dropped.
func NewDispatcher(timeout time.Duration, logger *logging.Logger, m *metrics.FunnelMetrics, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultSinkTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Dispatcher{sinks: kept, timeout: timeout, logger: logger, metrics: m}
}

// Sinks returns the names of the registered sinks in registration order.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Dispatch fires all sinks and waits for them. Outcomes are returned in
// sink registration order. Cancelling ctx does not cancel in-flight sinks;
// each one is bounded by the dispatcher timeout instead.
func (d *Dispatcher) Dispatch(ctx context.Context, lead *leads.Lead) []Outcome {
	if d == nil || len(d.sinks) == 0 || lead == nil {
		return nil
	}

	ctx, span := dispatchTracer.Start(ctx, "fanout.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("leadfunnel.lead.id", lead.ID),
		attribute.Int("leadfunnel.fanout.sinks", len(d.sinks)),
	)

	base := context.WithoutCancel(ctx)
	outcomes := make([]Outcome, len(d.sinks))

	var wg sync.WaitGroup
	for i, sink := range d.sinks {
		wg.Add(1)
		go func(i int, sink Sink) {
			defer wg.Done()
			outcomes[i] = d.run(base, sink, lead)
		}(i, sink)
	}
	wg.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Status == StatusFailure {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("leadfunnel.fanout.failed", failed))
	if failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d sink(s) failed", failed))
	}
	return outcomes
}

// Notify satisfies leads.Notifier.
func (d *Dispatcher) Notify(ctx context.Context, lead *leads.Lead) {
	d.Dispatch(ctx, lead)
}

func (d *Dispatcher) run(parent context.Context, sink Sink, lead *leads.Lead) (out Outcome) {
	name := sink.Name()
	start := time.Now()
	out = Outcome{Sink: name}

	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			out.Status = StatusFailure
			out.Err = fmt.Errorf("fanout: sink %s panicked: %v", name, r)
		}
		out.Duration = time.Since(start)
		d.record(out, lead)
	}()

	err := sink.Deliver(ctx, lead)
	switch {
	case err == nil:
		out.Status = StatusSuccess
	case errors.Is(err, ErrSinkNotConfigured):
		out.Status = StatusSkipped
		out.Err = err
	default:
		out.Status = StatusFailure
		out.Err = err
	}
	return out
}

func (d *Dispatcher) record(out Outcome, lead *leads.Lead) {
	d.metrics.ObserveSink(out.Sink, string(out.Status), out.Duration)

	switch out.Status {
	case StatusSuccess:
		d.logger.Info("sink delivered lead", "sink", out.Sink, "lead_id", lead.ID, "duration_ms", out.Duration.Milliseconds())
	case StatusSkipped:
		d.logger.Debug("sink skipped", "sink", out.Sink, "lead_id", lead.ID, "reason", out.Err)
	default:
		args := []any{"sink", out.Sink, "lead_id", lead.ID, "email", lead.Email, "error", out.Err}
		var httpErr *HTTPError
		if errors.As(out.Err, &httpErr) {
			args = append(args, "status", httpErr.Status, "body", httpErr.Body)
		}
		d.logger.Error("sink delivery failed", args...)
	}
}
