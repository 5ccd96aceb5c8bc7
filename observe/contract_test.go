package observe

import (
	"context"
	"testing"
	"time"
)

func TestObserverContract_Noops(t *testing.T) {
	cfg := Config{
		ServiceName: "observe-test",
		Tracing:     TracingConfig{Enabled: false, Exporter: "none"},
		Metrics:     MetricsConfig{Enabled: false, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: false, Level: "info"},
	}

	obs, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}

	if obs.Tracer() == nil {
		t.Fatalf("expected non-nil tracer")
	}
	if obs.Meter() == nil {
		t.Fatalf("expected non-nil meter")
	}
	if obs.Logger() == nil {
		t.Fatalf("expected non-nil logger")
	}
}

func TestLoggerContract_WithFunc(t *testing.T) {
	logger := &noopLogger{}
	if logger.WithFunc(FuncMeta{Identity: "noop"}) == nil {
		t.Fatalf("WithFunc should return non-nil logger")
	}
}

func TestMetricsContract_NoPanic(t *testing.T) {
	metrics := NewNoopMetrics()
	metrics.RecordRefresh(context.Background(), FuncMeta{Identity: "noop"}, 10*time.Millisecond, nil)
	metrics.RecordCall(context.Background(), FuncMeta{Identity: "noop"}, OutcomeHit)
}

func TestTracerContract_NoPanic(t *testing.T) {
	tracer := NewNoopTracer()
	_, span := tracer.StartSpan(context.Background(), FuncMeta{Identity: "noop"})
	tracer.EndSpan(span, nil)
}
