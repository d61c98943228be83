package backend

import (
	"context"
	"sort"

	"github.com/jonwraymond/qrand/circuit"
)

// Backend executes measurement circuits.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Run must honor cancellation/deadlines.
// - Errors: errors that mean the executor cannot be reached at all wrap
//   ErrUnavailable; any other error means the run itself failed.
// - Shots: implementations with a higher minimum than the requested
//   shot count may run more shots; the returned counts then total more
//   than requested. They never run fewer.
type Backend interface {
	// Run executes the circuit, measures every qubit each shot, and
	// returns the aggregated outcome counts.
	Run(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error)
}

// Func adapts an ordinary function to the Backend interface.
type Func func(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error)

// Run calls f.
func (f Func) Run(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error) {
	return f(ctx, c, shots)
}

// Counts aggregates measurement outcomes by bitstring label.
// The leftmost character of a label is qubit 0.
type Counts map[string]int

// Total returns the number of shots accounted for across all labels.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Dominant returns the label observed most often. Ties break to the
// lexicographically smallest label, so collapsing a multi-shot result
// to a single outcome is deterministic. Returns "" for empty counts.
func (c Counts) Dominant() string {
	best := ""
	bestN := -1
	for label, n := range c {
		if n > bestN || (n == bestN && label < best) {
			best = label
			bestN = n
		}
	}
	return best
}

// Labels returns all labels in lexicographic order.
func (c Counts) Labels() []string {
	labels := make([]string, 0, len(c))
	for label := range c {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
