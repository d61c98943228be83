package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newTraceExporter creates the span exporter cfg.TraceExporter names.
func newTraceExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.TraceExporter {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout))

	case "otlp", "jaeger":
		// Jaeger ingests OTLP natively.
		opts, err := cfg.otlpTraceOptions()
		if err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx, opts...)

	case "none":
		// A real exporter that discards everything
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))

	default:
		return nil, fmt.Errorf("unknown trace exporter: %q", cfg.TraceExporter)
	}
}

// newMetricReader creates the metrics reader cfg.MetricExporter names.
func newMetricReader(ctx context.Context, cfg Config) (sdkmetric.Reader, error) {
	switch cfg.MetricExporter {
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "otlp":
		opts, err := cfg.otlpMetricOptions()
		if err != nil {
			return nil, err
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "prometheus":
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		return exp, nil

	case "none":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(io.Discard))
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	default:
		return nil, fmt.Errorf("unknown metrics exporter: %q", cfg.MetricExporter)
	}
}

// otlpEndpoint resolves the collector endpoint from the config or the
// standard environment variable.
func (c Config) otlpEndpoint() (string, error) {
	if c.Endpoint != "" {
		return c.Endpoint, nil
	}
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
		return ep, nil
	}
	return "", fmt.Errorf("OTLP endpoint not configured: set Endpoint or OTEL_EXPORTER_OTLP_ENDPOINT")
}

func (c Config) otlpTraceOptions() ([]otlptracegrpc.Option, error) {
	ep, err := c.otlpEndpoint()
	if err != nil {
		return nil, err
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(ep)}
	if c.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return opts, nil
}

func (c Config) otlpMetricOptions() ([]otlpmetricgrpc.Option, error) {
	ep, err := c.otlpEndpoint()
	if err != nil {
		return nil, err
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(ep)}
	if c.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return opts, nil
}
