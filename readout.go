package qrand

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/qrand/backend"
	"github.com/jonwraymond/qrand/circuit"
)

// DefaultReadoutShots is the per-probe shot count ReadoutError uses
// when the caller passes 0.
const DefaultReadoutShots = 4096

// ReadoutEstimate holds measured readout flip probabilities.
type ReadoutEstimate struct {
	// P01 is the probability that a prepared 0 reads out as 1.
	P01 float64

	// P10 is the probability that a prepared 1 reads out as 0.
	P10 float64

	// Shots is the requested shot count behind each probe.
	Shots int
}

// Average returns the mean of the two flip probabilities.
func (e ReadoutEstimate) Average() float64 {
	return (e.P01 + e.P10) / 2
}

// ReadoutError measures the executor's readout flip rates by running
// the two single-qubit preparation probes and counting flipped
// outcomes. shots 0 means DefaultReadoutShots; negative shot counts
// are ErrInvalidArgument. On the ideal simulator both estimates are 0.
func (c *Client) ReadoutError(ctx context.Context, shots int) (_ ReadoutEstimate, err error) {
	if shots < 0 {
		return ReadoutEstimate{}, fmt.Errorf("%w: shots %d", ErrInvalidArgument, shots)
	}
	if shots == 0 {
		shots = DefaultReadoutShots
	}

	b, name, err := c.executor(ctx)
	if err != nil {
		return ReadoutEstimate{}, err
	}

	ctx, span := c.tracer.Start(ctx, "qrand.readout",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("backend", name),
			attribute.Int("shots", shots),
		))
	defer func() { endSpan(span, err) }()

	p01, err := c.flipRate(ctx, b, name, circuit.Prepare0(), "1", shots)
	if err != nil {
		return ReadoutEstimate{}, err
	}
	p10, err := c.flipRate(ctx, b, name, circuit.Prepare1(), "0", shots)
	if err != nil {
		return ReadoutEstimate{}, err
	}

	c.log.Debug().
		Float64("p01", p01).
		Float64("p10", p10).
		Int("shots", shots).
		Str("backend", name).
		Msg("readout probe complete")

	return ReadoutEstimate{P01: p01, P10: p10, Shots: shots}, nil
}

// flipRate runs one preparation probe and returns the fraction of
// shots that read out as the flipped label.
func (c *Client) flipRate(ctx context.Context, b backend.Backend, name string, probe *circuit.Circuit, flipped string, shots int) (float64, error) {
	start := time.Now()
	counts, err := b.Run(ctx, probe, shots)
	c.mx.recordRun(ctx, name, time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	total := counts.Total()
	if total == 0 {
		return 0, fmt.Errorf("%w: executor returned no outcomes", ErrGeneration)
	}
	return float64(counts[flipped]) / float64(total), nil
}
