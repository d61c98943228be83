package qrand

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// metrics holds the client's instruments. A nil *metrics records
// nothing, covering instrument-creation failure without guards at
// every call site.
type metrics struct {
	bits        metric.Int64Counter
	resolutions metric.Int64Counter
	runDuration metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	bits, err := meter.Int64Counter(
		"qrand.bits.total",
		metric.WithDescription("Total number of random bits served"),
		metric.WithUnit("{bit}"),
	)
	if err != nil {
		return nil, err
	}

	resolutions, err := meter.Int64Counter(
		"qrand.resolutions.total",
		metric.WithDescription("Total number of backend resolutions by outcome"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"qrand.run.duration_ms",
		metric.WithDescription("Executor run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{
		bits:        bits,
		resolutions: resolutions,
		runDuration: runDuration,
	}, nil
}

func (m *metrics) recordBits(ctx context.Context, backendName string, n int) {
	if m == nil {
		return
	}
	m.bits.Add(ctx, int64(n),
		metric.WithAttributes(attribute.String("backend", backendName)))
}

func (m *metrics) recordResolution(ctx context.Context, outcome Outcome) {
	if m == nil {
		return
	}
	m.resolutions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome.String())))
}

func (m *metrics) recordRun(ctx context.Context, backendName string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.runDuration.Record(ctx, float64(duration.Milliseconds()),
		metric.WithAttributes(
			attribute.String("backend", backendName),
			attribute.Bool("error", err != nil),
		))
}

// endSpan closes span with err recorded, the way every client span
// ends.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
