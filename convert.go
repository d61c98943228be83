package qrand

import (
	"context"
	"fmt"
	"math/bits"
)

// BitString returns n random bits rendered as a '0'/'1' string in
// generation order.
func (c *Client) BitString(ctx context.Context, n int) (string, error) {
	seq, err := c.Bits(ctx, n)
	if err != nil {
		return "", err
	}

	buf := make([]byte, len(seq))
	for i, b := range seq {
		if b {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf), nil
}

// Int returns a random integer in [low, high], drawing just enough
// bits to cover the span and reducing modulo the span size. The modulo
// reduction carries a small bias toward low values when the span is
// not a power of two; not suitable for cryptographic use. low > high
// is ErrInvalidArgument; low == high returns low without touching the
// executor.
func (c *Client) Int(ctx context.Context, low, high int64) (int64, error) {
	if low > high {
		return 0, fmt.Errorf("%w: empty range [%d, %d]", ErrInvalidArgument, low, high)
	}
	if low == high {
		return low, nil
	}

	// span 0 means the range covers all of int64
	span := uint64(high) - uint64(low) + 1
	nbits := 64
	if span != 0 {
		nbits = bits.Len64(span - 1)
	}

	v, err := c.uintN(ctx, nbits)
	if err != nil {
		return 0, err
	}
	if span != 0 {
		v %= span
	}
	return int64(uint64(low) + v), nil
}

// Uint32 returns 32 random bits as an unsigned integer.
func (c *Client) Uint32(ctx context.Context) (uint32, error) {
	v, err := c.uintN(ctx, 32)
	return uint32(v), err
}

// Uint64 returns 64 random bits as an unsigned integer.
func (c *Client) Uint64(ctx context.Context) (uint64, error) {
	return c.uintN(ctx, 64)
}

// Float64 returns a random float in [0, 1], both ends inclusive, with
// 53 bits of resolution.
func (c *Client) Float64(ctx context.Context) (float64, error) {
	v, err := c.uintN(ctx, 53)
	if err != nil {
		return 0, err
	}
	return float64(v) / float64(1<<53-1), nil
}

// Float32 returns a random float in [0, 1], both ends inclusive, with
// 24 bits of resolution.
func (c *Client) Float32(ctx context.Context) (float32, error) {
	v, err := c.uintN(ctx, 24)
	if err != nil {
		return 0, err
	}
	return float32(v) / float32(1<<24-1), nil
}

// Bytes returns k random bytes, 8 bits each, most significant bit
// first.
func (c *Client) Bytes(ctx context.Context, k int) ([]byte, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: byte count %d", ErrInvalidArgument, k)
	}

	seq, err := c.Bits(ctx, 8*k)
	if err != nil {
		return nil, err
	}

	out := make([]byte, k)
	for i, b := range seq {
		if b {
			out[i/8] |= 1 << (7 - i%8)
		}
	}
	return out, nil
}

// Complex128 returns a random complex number with the real and
// imaginary parts drawn independently from [lo, hi]. lo > hi is
// ErrInvalidArgument.
func (c *Client) Complex128(ctx context.Context, lo, hi float64) (complex128, error) {
	if lo > hi {
		return 0, fmt.Errorf("%w: empty interval [%g, %g]", ErrInvalidArgument, lo, hi)
	}

	re, err := c.Float64(ctx)
	if err != nil {
		return 0, err
	}
	im, err := c.Float64(ctx)
	if err != nil {
		return 0, err
	}

	span := hi - lo
	return complex(lo+re*span, lo+im*span), nil
}

// uintN packs n random bits into an unsigned integer, first bit most
// significant. n must be in [1, 64].
func (c *Client) uintN(ctx context.Context, n int) (uint64, error) {
	seq, err := c.Bits(ctx, n)
	if err != nil {
		return 0, err
	}

	var v uint64
	for _, b := range seq {
		v <<= 1
		if b {
			v |= 1
		}
	}
	return v, nil
}
