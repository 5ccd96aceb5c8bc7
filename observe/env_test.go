package observe

import (
	"context"
	"testing"
)

func TestLoggerFromEnv(t *testing.T) {
	t.Setenv(EnvDebug, "")
	if _, ok := LoggerFromEnv().(*noopLogger); !ok {
		t.Error("expected noop logger when DEBUG is unset")
	}

	t.Setenv(EnvDebug, "1")
	l, ok := LoggerFromEnv().(*structuredLogger)
	if !ok {
		t.Fatal("expected structured logger when DEBUG is set")
	}
	if l.level != LevelDebug {
		t.Errorf("level = %v, want debug", l.level)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvDebug, "")
	t.Setenv(EnvTracingExporter, "")
	t.Setenv(EnvMetricsExporter, "")
	t.Setenv(EnvTraceSamplePct, "")

	cfg := ConfigFromEnv("svc")
	if cfg.Tracing.Enabled || cfg.Metrics.Enabled || cfg.Logging.Enabled {
		t.Errorf("expected everything disabled, got %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvTracingExporter, "stdout")
	t.Setenv(EnvMetricsExporter, "prometheus")
	t.Setenv(EnvTraceSamplePct, "0.25")

	cfg = ConfigFromEnv("svc")
	if !cfg.Tracing.Enabled || cfg.Tracing.Exporter != "stdout" || cfg.Tracing.SamplePct != 0.25 {
		t.Errorf("tracing = %+v", cfg.Tracing)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Exporter != "prometheus" {
		t.Errorf("metrics = %+v", cfg.Metrics)
	}
	if !cfg.Logging.Enabled || cfg.Logging.Level != "debug" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfigFromEnv_BadSamplePct(t *testing.T) {
	t.Setenv(EnvTraceSamplePct, "lots")
	if got := ConfigFromEnv("svc").Tracing.SamplePct; got != 1.0 {
		t.Errorf("SamplePct = %v, want 1.0", got)
	}
}

func TestNoopLogger(t *testing.T) {
	l := NewNoopLogger()
	ctx := context.Background()
	l.Debug(ctx, "d")
	l.Info(ctx, "i")
	l.Warn(ctx, "w")
	l.Error(ctx, "e")
	if l.WithFunc(FuncMeta{Identity: "x"}) == nil {
		t.Error("WithFunc returned nil")
	}
}
