package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Config holds telemetry configuration for a qrand process.
type Config struct {
	// ServiceName identifies the process in exported telemetry.
	ServiceName string

	// ServiceVersion is stamped on the resource when set.
	ServiceVersion string

	// Environment is recorded as deployment.environment when set.
	Environment string

	// TraceExporter selects the span exporter: stdout|otlp|jaeger|none.
	// Empty disables tracing entirely; "none" runs the full pipeline
	// against a discarding exporter.
	TraceExporter string

	// MetricExporter selects the metrics exporter:
	// stdout|otlp|prometheus|none. Empty disables metrics.
	MetricExporter string

	// Endpoint overrides the OTLP collector endpoint. Falls back to
	// OTEL_EXPORTER_OTLP_ENDPOINT when empty.
	Endpoint string

	// Insecure disables transport security for OTLP connections.
	Insecure bool

	// SampleRatio is the fraction of traces sampled, 0.0-1.0.
	SampleRatio float64
}

// DefaultConfig returns a Config that samples every trace and exports
// nothing until an exporter is chosen.
func DefaultConfig() Config {
	return Config{
		ServiceName: "qrand",
		SampleRatio: 1.0,
	}
}

// Valid trace exporters.
var validTraceExporters = map[string]bool{
	"stdout": true,
	"otlp":   true,
	"jaeger": true,
	"none":   true,
	"":       true, // Empty is valid (disabled)
}

// Valid metric exporters.
var validMetricExporters = map[string]bool{
	"stdout":     true,
	"otlp":       true,
	"prometheus": true,
	"none":       true,
	"":           true, // Empty is valid (disabled)
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service name is required")
	}
	if !validTraceExporters[c.TraceExporter] {
		return fmt.Errorf("unknown trace exporter: %q", c.TraceExporter)
	}
	if !validMetricExporters[c.MetricExporter] {
		return fmt.Errorf("unknown metric exporter: %q", c.MetricExporter)
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1.0 {
		return fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %g", c.SampleRatio)
	}
	return nil
}

// Provider bundles the SDK providers Setup builds.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: Shutdown honors cancellation/deadlines.
// - Errors: Shutdown is idempotent and joins all shutdown failures.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// Setup builds tracing and metrics providers from cfg and registers
// them as the otel globals, along with the W3C trace-context
// propagator. Callers should defer Shutdown on the returned Provider.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &Provider{}

	if cfg.TraceExporter != "" {
		exporter, err := newTraceExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		p.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sampler(cfg.SampleRatio)),
			sdktrace.WithBatcher(exporter),
		)
	}

	if cfg.MetricExporter != "" {
		reader, err := newMetricReader(ctx, cfg)
		if err != nil {
			// stop the tracer provider started above
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("failed to create metrics reader: %w", err)
		}
		p.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
	}

	p.register()
	return p, nil
}

// register installs the providers as process globals. Globals are only
// replaced for enabled subsystems.
func (p *Provider) register() {
	if p.tracerProvider != nil {
		otel.SetTracerProvider(p.tracerProvider)
	}
	if p.meterProvider != nil {
		otel.SetMeterProvider(p.meterProvider)
	}
	otel.SetTextMapPropagator(propagation.TraceContext{})
}

// TracerProvider returns the configured tracer provider, or a no-op
// provider when tracing is disabled.
func (p *Provider) TracerProvider() trace.TracerProvider {
	if p.tracerProvider == nil {
		return tracenoop.NewTracerProvider()
	}
	return p.tracerProvider
}

// MeterProvider returns the configured meter provider, or a no-op
// provider when metrics are disabled.
func (p *Provider) MeterProvider() metric.MeterProvider {
	if p.meterProvider == nil {
		return noop.NewMeterProvider()
	}
	return p.meterProvider
}

// Shutdown gracefully shuts down all telemetry providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error

	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func buildResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", cfg.Environment))
	}
	return resource.New(ctx, resource.WithAttributes(attrs...))
}

// sampler maps a ratio to a concrete sampler. Values at or past the
// ends collapse to the always/never samplers.
func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1.0:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}
