package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestMiddleware_SuccessPath verifies a successful refresh records telemetry.
func TestMiddleware_SuccessPath(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	tracer := &tracerImpl{tracer: tp.Tracer("test")}

	metricReader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader))
	metrics, _ := newMetrics(mp.Meter("test"))

	mw := NewMiddleware(tracer, metrics, &noopLogger{})
	meta := FuncMeta{Identity: "github.com/acme/users.Load", Name: "users.Load"}

	wrapped := mw.Wrap(meta, func(ctx context.Context) (any, error) {
		return "loaded", nil
	})
	result, err := wrapped(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result != "loaded" {
		t.Errorf("expected result %q, got %v", "loaded", result)
	}

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "memo.refresh.users.Load" {
		t.Errorf("expected span name 'memo.refresh.users.Load', got %q", spans[0].Name())
	}

	var rm metricdata.ResourceMetrics
	if err := metricReader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	if findMetric(rm, "memo.refresh.total") == nil {
		t.Error("memo.refresh.total metric not found")
	}
	if findMetric(rm, "memo.refresh.errors") != nil {
		t.Error("memo.refresh.errors recorded on success")
	}
}

// TestMiddleware_ErrorPath verifies a failed refresh records error telemetry.
func TestMiddleware_ErrorPath(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	tracer := &tracerImpl{tracer: tp.Tracer("test")}

	metricReader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader))
	metrics, _ := newMetrics(mp.Meter("test"))

	var buf bytes.Buffer
	mw := NewMiddleware(tracer, metrics, NewLoggerWithWriter("info", &buf))
	meta := FuncMeta{Identity: "pkg.fail", Name: "pkg.fail"}
	testErr := errors.New("upstream failed")

	wrapped := mw.Wrap(meta, func(ctx context.Context) (any, error) {
		return nil, testErr
	})
	if _, err := wrapped(context.Background()); err != testErr {
		t.Errorf("expected error %v, got %v", testErr, err)
	}

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	var memoError bool
	for _, attr := range spans[0].Attributes() {
		if string(attr.Key) == "memo.error" {
			memoError = attr.Value.AsBool()
		}
	}
	if !memoError {
		t.Error("expected memo.error=true on failed refresh")
	}

	var rm metricdata.ResourceMetrics
	if err := metricReader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	errMetric := findMetric(rm, "memo.refresh.errors")
	if errMetric == nil {
		t.Fatal("memo.refresh.errors metric not found")
	}
	sum, ok := errMetric.Data.(metricdata.Sum[int64])
	if ok && len(sum.DataPoints) > 0 && sum.DataPoints[0].Value != 1 {
		t.Errorf("expected errors count 1, got %d", sum.DataPoints[0].Value)
	}

	out := buf.String()
	if !strings.Contains(out, "refresh failed") || !strings.Contains(out, "upstream failed") {
		t.Errorf("expected error log line, got %q", out)
	}
	if !strings.Contains(out, `"func.identity":"pkg.fail"`) {
		t.Errorf("expected function identity in log line, got %q", out)
	}
}

// TestMiddleware_PropagatesContext verifies context is passed through.
func TestMiddleware_PropagatesContext(t *testing.T) {
	mw := NewMiddleware(NewNoopTracer(), &noopMetrics{}, &noopLogger{})

	type ctxKey string
	testKey := ctxKey("test")
	var receivedValue any

	wrapped := mw.Wrap(FuncMeta{Identity: "ctx"}, func(ctx context.Context) (any, error) {
		receivedValue = ctx.Value(testKey)
		return nil, nil
	})
	ctx := context.WithValue(context.Background(), testKey, "test_value")
	if _, err := wrapped(ctx); err != nil {
		t.Fatalf("wrapped() error = %v", err)
	}

	if receivedValue != "test_value" {
		t.Errorf("expected context value %q, got %v", "test_value", receivedValue)
	}
}

// TestMiddleware_ReturnsOriginalResult verifies the exact result is returned.
func TestMiddleware_ReturnsOriginalResult(t *testing.T) {
	mw := NewMiddleware(NewNoopTracer(), &noopMetrics{}, &noopLogger{})

	type complexResult struct {
		Data []int
	}
	expected := &complexResult{Data: []int{1, 2, 3}}

	wrapped := mw.Wrap(FuncMeta{Identity: "result"}, func(ctx context.Context) (any, error) {
		return expected, nil
	})
	result, err := wrapped(context.Background())
	if err != nil {
		t.Fatalf("wrapped() error = %v", err)
	}
	if result != expected {
		t.Error("middleware did not return exact same result object")
	}
}

// TestMiddleware_MeasuresDuration verifies duration is recorded.
func TestMiddleware_MeasuresDuration(t *testing.T) {
	metricReader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader))
	metrics, _ := newMetrics(mp.Meter("test"))

	mw := NewMiddleware(NewNoopTracer(), metrics, &noopLogger{})
	wrapped := mw.Wrap(FuncMeta{Identity: "timed"}, func(ctx context.Context) (any, error) {
		time.Sleep(100 * time.Millisecond)
		return nil, nil
	})
	if _, err := wrapped(context.Background()); err != nil {
		t.Fatalf("wrapped() error = %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := metricReader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	durationMetric := findMetric(rm, "memo.refresh.duration_ms")
	if durationMetric == nil {
		t.Fatal("memo.refresh.duration_ms metric not found")
	}
	hist, ok := durationMetric.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram, got %T", durationMetric.Data)
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no histogram data points")
	}
	if hist.DataPoints[0].Sum < 90 {
		t.Errorf("expected duration >= 90ms, got %f", hist.DataPoints[0].Sum)
	}
}

// TestMiddleware_RecordOutcome verifies call outcomes land on memo.calls.
func TestMiddleware_RecordOutcome(t *testing.T) {
	metricReader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader))
	metrics, _ := newMetrics(mp.Meter("test"))

	mw := NewMiddleware(nil, metrics, nil)
	meta := FuncMeta{Identity: "pkg.f", Name: "pkg.f"}
	ctx := context.Background()

	mw.RecordOutcome(ctx, meta, OutcomeMiss)
	mw.RecordOutcome(ctx, meta, OutcomeHit)
	mw.RecordOutcome(ctx, meta, OutcomeHit)
	mw.RecordOutcome(ctx, meta, OutcomeCoalesced)

	var rm metricdata.ResourceMetrics
	if err := metricReader.Collect(ctx, &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	calls := findMetric(rm, "memo.calls")
	if calls == nil {
		t.Fatal("memo.calls metric not found")
	}
	sum, ok := calls.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", calls.Data)
	}

	got := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		outcome, _ := dp.Attributes.Value("outcome")
		got[outcome.AsString()] += dp.Value
	}
	want := map[string]int64{"miss": 1, "hit": 2, "coalesced": 1}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("memo.calls{outcome=%s} = %d, want %d", k, got[k], v)
		}
	}
}

// TestMiddleware_NilComponents verifies nil components become no-ops.
func TestMiddleware_NilComponents(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)

	wrapped := mw.Wrap(FuncMeta{Identity: "noop"}, func(ctx context.Context) (any, error) {
		return "noop_result", nil
	})
	result, err := wrapped(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result != "noop_result" {
		t.Errorf("expected result %q, got %v", "noop_result", result)
	}
	mw.RecordOutcome(context.Background(), FuncMeta{Identity: "noop"}, OutcomeError)
}

func TestMiddlewareFromObserver(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Errorf("MiddlewareFromObserver(nil) error = %v, want ErrNilObserver", err)
	}

	obs, err := NewObserver(context.Background(), Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver() error = %v", err)
	}
	if mw == nil {
		t.Fatal("expected non-nil middleware")
	}
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}
