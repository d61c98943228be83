package qrand

import (
	"context"
	"fmt"
)

// Von Neumann collection tuning. The efficiency estimate starts low
// and tracks the observed per-round yield. The bounded draw size and
// the stall limit keep a stream the extractor cannot debias from
// looping forever.
const (
	debiasStartEfficiency = 0.30
	debiasMinEfficiency   = 0.01
	debiasMaxDraw         = 4096
	debiasMaxStalled      = 8
)

// vonNeumann maps raw bit pairs to unbiased output: 01 yields 0, 10
// yields 1, equal pairs are discarded. A trailing unpaired bit is
// dropped. Removes constant per-bit bias; correlated input stays
// correlated.
func vonNeumann(raw []Bit) []Bit {
	out := make([]Bit, 0, len(raw)/4)
	for i := 0; i+1 < len(raw); i += 2 {
		if raw[i] != raw[i+1] {
			out = append(out, raw[i])
		}
	}
	return out
}

// debiasedBits draws raw bits and extracts until n debiased bits
// accumulate. The raw request size adapts to the observed extraction
// efficiency. Surplus debiased bits are discarded rather than cached,
// keeping the bit cache raw-only.
func (c *Client) debiasedBits(ctx context.Context, n int) ([]Bit, error) {
	out := make([]Bit, 0, n)
	eff := debiasStartEfficiency
	stalled := 0

	for len(out) < n {
		remaining := n - len(out)
		need := float64(remaining)/eff + float64(c.maxWidth*4)
		if need > debiasMaxDraw {
			need = debiasMaxDraw
		}

		raw, err := c.rawBits(ctx, int(need))
		if err != nil {
			return nil, err
		}

		extracted := vonNeumann(raw)
		if len(extracted) == 0 {
			stalled++
			if stalled >= debiasMaxStalled {
				return nil, fmt.Errorf("%w: debiasing made no progress over %d raw draws", ErrGeneration, stalled)
			}
		} else {
			stalled = 0
			out = append(out, extracted...)
		}

		observed := float64(len(extracted)) / float64(len(raw))
		if observed < debiasMinEfficiency {
			observed = debiasMinEfficiency
		}
		eff = 0.7*eff + 0.3*observed
	}

	return out[:n], nil
}
