package exporters

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestNewTracingExporter(t *testing.T) {
	prev := Stdout
	Stdout = io.Discard
	t.Cleanup(func() { Stdout = prev })

	for _, name := range []string{"stdout", "none", ""} {
		t.Run(name, func(t *testing.T) {
			exp, err := NewTracingExporter(context.Background(), name)
			if err != nil {
				t.Fatalf("NewTracingExporter(%q) failed: %v", name, err)
			}
			if exp == nil {
				t.Fatal("expected non-nil exporter")
			}
		})
	}
}

func TestNewTracingExporter_Unknown(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "zipkin")
	if err == nil || !strings.Contains(err.Error(), "unknown exporter") {
		t.Errorf("expected unknown exporter error, got %v", err)
	}
}

func TestNewTracingExporter_MissingEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_JAEGER_ENDPOINT", "")

	for _, name := range []string{"otlp", "jaeger"} {
		if _, err := NewTracingExporter(context.Background(), name); !errors.Is(err, ErrEndpointNotConfigured) {
			t.Errorf("NewTracingExporter(%q) = %v, want ErrEndpointNotConfigured", name, err)
		}
	}
}

func TestNewMetricsReader(t *testing.T) {
	prev := Stdout
	Stdout = io.Discard
	t.Cleanup(func() { Stdout = prev })

	for _, name := range []string{"stdout", "none", ""} {
		t.Run(name, func(t *testing.T) {
			reader, err := NewMetricsReader(context.Background(), name)
			if err != nil {
				t.Fatalf("NewMetricsReader(%q) failed: %v", name, err)
			}
			if reader == nil {
				t.Fatal("expected non-nil reader")
			}
		})
	}
}

func TestNewMetricsReader_Errors(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	if _, err := NewMetricsReader(context.Background(), "otlp"); !errors.Is(err, ErrEndpointNotConfigured) {
		t.Errorf("otlp without endpoint = %v, want ErrEndpointNotConfigured", err)
	}
	if _, err := NewMetricsReader(context.Background(), "statsd"); err == nil {
		t.Error("expected error for unknown metrics exporter")
	}
}
