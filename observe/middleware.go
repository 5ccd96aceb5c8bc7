package observe

import (
	"context"
	"time"
)

// RefreshFunc runs one underlying invocation of a memoized function.
type RefreshFunc func(ctx context.Context) (any, error)

// Middleware instruments memoized functions with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use; Wrap returns a thread-safe RefreshFunc.
//   - Context: propagates context through tracing spans.
//   - Errors: errors from the wrapped function are recorded and propagated unchanged.
//   - Ownership: results are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
// Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewNoopTracer()
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	if logger == nil {
		logger = NewNoopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap instruments one refresh of the function described by meta.
func (m *Middleware) Wrap(meta FuncMeta, fn RefreshFunc) RefreshFunc {
	return func(ctx context.Context) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		result, err := fn(ctx)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordRefresh(ctx, meta, duration, err)

		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		logger := m.logger.WithFunc(meta)
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			logger.Error(ctx, "refresh failed", fields...)
		} else {
			logger.Debug(ctx, "refresh completed", fields...)
		}

		return result, err
	}
}

// RecordOutcome records how a call was answered.
func (m *Middleware) RecordOutcome(ctx context.Context, meta FuncMeta, outcome Outcome) {
	m.metrics.RecordCall(ctx, meta, outcome)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
