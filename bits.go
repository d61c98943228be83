package qrand

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/qrand/circuit"
)

// Bit is one random bit.
type Bit bool

// String renders the bit as "0" or "1".
func (b Bit) String() string {
	if b {
		return "1"
	}
	return "0"
}

// Bits returns n random bits, each sourced from measuring one qubit in
// superposition. Remainder bits cached by earlier wide requests are
// served first; the rest comes from fresh one-shot sampling circuits
// of at most the configured width.
//
// Executor failures surface as ErrGeneration and leave the resolved
// backend selected; only resolution has fallback. n < 1 is
// ErrInvalidArgument.
func (c *Client) Bits(ctx context.Context, n int) ([]Bit, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: bit count %d", ErrInvalidArgument, n)
	}

	var (
		bits []Bit
		err  error
	)
	if c.debias {
		bits, err = c.debiasedBits(ctx, n)
	} else {
		bits, err = c.rawBits(ctx, n)
	}
	if err != nil {
		return nil, err
	}

	c.mx.recordBits(ctx, c.BackendName(), n)
	return bits, nil
}

// rawBits drains the bit cache, then runs sampling circuits for the
// rest. Requests above the width cap run fixed cap-width circuits and
// cache the surplus; narrower requests run one exact-width circuit.
func (c *Client) rawBits(ctx context.Context, n int) ([]Bit, error) {
	out := make([]Bit, 0, n)

	c.mu.Lock()
	if take := len(c.cache); take > 0 {
		if take > n {
			take = n
		}
		out = append(out, c.cache[:take]...)
		c.cache = c.cache[take:]
	}
	c.mu.Unlock()

	for len(out) < n {
		remaining := n - len(out)
		width := remaining
		if n > c.maxWidth {
			width = c.maxWidth
		}

		bits, err := c.sample(ctx, width)
		if err != nil {
			return nil, err
		}
		if len(bits) > remaining {
			c.mu.Lock()
			c.cache = append(c.cache, bits[remaining:]...)
			c.mu.Unlock()
			bits = bits[:remaining]
		}
		out = append(out, bits...)
	}
	return out, nil
}

// sample runs one width-qubit sampling circuit for one shot and turns
// the realized outcome into bits. Backends with a higher shot minimum
// return multi-shot counts; the dominant label is the realized sample.
func (c *Client) sample(ctx context.Context, width int) (_ []Bit, err error) {
	b, name, err := c.executor(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "qrand.sample",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("backend", name),
			attribute.Int("width", width),
		))
	defer func() { endSpan(span, err) }()

	start := time.Now()
	counts, err := b.Run(ctx, circuit.Sampling(width), 1)
	c.mx.recordRun(ctx, name, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	label := counts.Dominant()
	if label == "" {
		return nil, fmt.Errorf("%w: executor returned no outcomes", ErrGeneration)
	}
	return labelBits(label, width)
}

// labelBits converts an outcome label to bits at the given width,
// left-padding with zeros and truncating from the right.
func labelBits(label string, width int) ([]Bit, error) {
	if d := width - len(label); d > 0 {
		label = strings.Repeat("0", d) + label
	} else if d < 0 {
		label = label[:width]
	}

	bits := make([]Bit, width)
	for i := 0; i < width; i++ {
		switch label[i] {
		case '0':
			bits[i] = false
		case '1':
			bits[i] = true
		default:
			return nil, fmt.Errorf("%w: malformed outcome label %q", ErrGeneration, label)
		}
	}
	return bits, nil
}
