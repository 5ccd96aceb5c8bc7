package observe

import (
	"os"
	"strconv"
)

// Environment variables read by this package.
const (
	// EnvDebug enables diagnostic logging when set to any non-empty value.
	EnvDebug = "DEBUG"

	EnvTracingExporter = "CHERISH_TRACING_EXPORTER"
	EnvTraceSamplePct  = "CHERISH_TRACE_SAMPLE_PCT"
	EnvMetricsExporter = "CHERISH_METRICS_EXPORTER"
)

// DebugEnabled reports whether the DEBUG environment variable is set.
func DebugEnabled() bool {
	return os.Getenv(EnvDebug) != ""
}

// LoggerFromEnv returns a debug-level JSON logger on stderr when DEBUG is set,
// and a no-op logger otherwise.
func LoggerFromEnv() Logger {
	if !DebugEnabled() {
		return &noopLogger{}
	}
	return NewLogger("debug")
}

// ConfigFromEnv builds an observer configuration from the environment.
// Tracing and metrics are enabled when their exporter variable is set;
// logging follows DEBUG.
func ConfigFromEnv(serviceName string) Config {
	cfg := Config{
		ServiceName: serviceName,
		Tracing: TracingConfig{
			Exporter:  os.Getenv(EnvTracingExporter),
			SamplePct: 1.0,
		},
		Metrics: MetricsConfig{
			Exporter: os.Getenv(EnvMetricsExporter),
		},
		Logging: LoggingConfig{
			Enabled: DebugEnabled(),
			Level:   "debug",
		},
	}
	cfg.Tracing.Enabled = cfg.Tracing.Exporter != ""
	cfg.Metrics.Enabled = cfg.Metrics.Exporter != ""

	if s := os.Getenv(EnvTraceSamplePct); s != "" {
		if pct, err := strconv.ParseFloat(s, 64); err == nil {
			cfg.Tracing.SamplePct = pct
		}
	}
	return cfg
}
