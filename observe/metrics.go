package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome classifies how a memoized call was answered.
type Outcome string

const (
	// OutcomeHit means a fresh stored result was served.
	OutcomeHit Outcome = "hit"
	// OutcomeMiss means a new refresh was started.
	OutcomeMiss Outcome = "miss"
	// OutcomeCoalesced means the call joined a refresh already in flight.
	OutcomeCoalesced Outcome = "coalesced"
	// OutcomeError means the call failed before any refresh started.
	OutcomeError Outcome = "error"
)

// Metrics records cache outcomes and refreshes.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records how one call was answered.
	RecordCall(ctx context.Context, meta FuncMeta, outcome Outcome)

	// RecordRefresh records one underlying invocation with its duration and error status.
	RecordRefresh(ctx context.Context, meta FuncMeta, duration time.Duration, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	calls        metric.Int64Counter
	refreshes    metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates Metrics backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	calls, err := meter.Int64Counter(
		"memo.calls",
		metric.WithDescription("Memoized calls by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	refreshes, err := meter.Int64Counter(
		"memo.refresh.total",
		metric.WithDescription("Underlying function invocations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"memo.refresh.errors",
		metric.WithDescription("Underlying function invocations that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"memo.refresh.duration_ms",
		metric.WithDescription("Underlying function duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		calls:        calls,
		refreshes:    refreshes,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

func funcAttrs(meta FuncMeta) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("func.identity", meta.Identity),
		attribute.String("func.name", meta.Name),
	}
}

// RecordCall increments memo.calls with the outcome attribute.
func (m *metricsImpl) RecordCall(ctx context.Context, meta FuncMeta, outcome Outcome) {
	attrs := append(funcAttrs(meta), attribute.String("outcome", string(outcome)))
	m.calls.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRefresh records metrics for one underlying invocation.
func (m *metricsImpl) RecordRefresh(ctx context.Context, meta FuncMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(funcAttrs(meta)...)

	m.refreshes.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

// NewNoopMetrics returns Metrics that record nothing.
func NewNoopMetrics() Metrics {
	return &noopMetrics{}
}

func (m *noopMetrics) RecordCall(ctx context.Context, meta FuncMeta, outcome Outcome) {}

func (m *noopMetrics) RecordRefresh(ctx context.Context, meta FuncMeta, duration time.Duration, err error) {
}
