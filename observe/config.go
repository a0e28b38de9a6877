package observe

import (
	"fmt"
	"slices"
)

// Config selects what an Observer exports and where.
type Config struct {
	ServiceName string
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig
}

// TracingConfig selects the span exporter and sampling ratio.
// A disabled tracer hands out non-recording spans.
type TracingConfig struct {
	Enabled   bool
	Exporter  string  // one of ValidTracingExporters
	SamplePct float64 // 0.0-1.0
}

// MetricsConfig selects the metric reader.
type MetricsConfig struct {
	Enabled  bool
	Exporter string // one of ValidMetricsExporters
}

// LoggingConfig selects the minimum log level.
type LoggingConfig struct {
	Enabled bool
	Level   string // one of ValidLogLevels
}

// DefaultConfig logs at info, keeps metrics in process and leaves tracing
// off.
func DefaultConfig(service string) Config {
	return Config{
		ServiceName: service,
		Tracing:     TracingConfig{Exporter: "none", SamplePct: 1.0},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
	}
}

// Validate reports the first unusable setting. Settings of a disabled
// subsystem are not checked.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}

	if t := c.Tracing; t.Enabled {
		if !slices.Contains(ValidTracingExporters, t.Exporter) {
			return fmt.Errorf("%w: %q", ErrInvalidTracingExporter, t.Exporter)
		}
		if t.SamplePct < 0 || t.SamplePct > 1.0 {
			return fmt.Errorf("%w, got: %f", ErrInvalidSamplePct, t.SamplePct)
		}
	}

	if m := c.Metrics; m.Enabled && !slices.Contains(ValidMetricsExporters, m.Exporter) {
		return fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, m.Exporter)
	}

	if l := c.Logging; l.Enabled && !slices.Contains(ValidLogLevels, l.Level) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return nil
}
