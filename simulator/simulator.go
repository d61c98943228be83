package simulator

import (
	"context"
	"fmt"
	"maps"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jonwraymond/qrand/backend"
	"github.com/jonwraymond/qrand/circuit"
)

// BackendName identifies the simulator in diagnostics and resolutions.
const BackendName = "local_simulator"

var invSqrt2 = complex(1/math.Sqrt2, 0)

// Simulator is the classical executor. It implements backend.Backend
// and is safe for concurrent use; draws from the shared random source
// are serialized internally.
type Simulator struct {
	log    zerolog.Logger
	forced backend.Counts

	mu  sync.Mutex
	src rand.Source
}

var _ backend.Backend = (*Simulator)(nil)

// Option configures a Simulator.
type Option func(*Simulator)

// WithSeed fixes the random source so runs are reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) { s.src = rand.NewPCG(seed, seed) }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Simulator) {
		s.log = log.With().Str("component", "simulator").Logger()
	}
}

// WithForcedCounts makes every Run return the given counts instead of
// sampling. Test hook for exercising exact outcome scenarios.
func WithForcedCounts(counts backend.Counts) Option {
	return func(s *Simulator) { s.forced = maps.Clone(counts) }
}

// New returns a ready Simulator. Without WithSeed the source is
// time-seeded.
func New(opts ...Option) *Simulator {
	s := &Simulator{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.src == nil {
		now := uint64(time.Now().UnixNano())
		s.src = rand.NewPCG(now, now>>32)
	}
	return s
}

// Name returns BackendName.
func (s *Simulator) Name() string { return BackendName }

// Run simulates the circuit for the given number of shots and returns
// the aggregated outcome counts, qubit 0 leftmost in each label.
func (s *Simulator) Run(ctx context.Context, c *circuit.Circuit, shots int) (backend.Counts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.forced != nil {
		return maps.Clone(s.forced), nil
	}
	if shots < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShots, shots)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	qubits := stateFor(c)
	sample := make([]distuv.Bernoulli, len(qubits))
	for i, q := range qubits {
		p := cmplx.Abs(q.b)
		sample[i] = distuv.Bernoulli{P: p * p, Src: s.src}
	}

	counts := make(backend.Counts)
	label := make([]byte, len(qubits))
	s.mu.Lock()
	for shot := 0; shot < shots; shot++ {
		if err := ctx.Err(); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		for i := range sample {
			if sample[i].Rand() == 1 {
				label[i] = '1'
			} else {
				label[i] = '0'
			}
		}
		counts[string(label)]++
	}
	s.mu.Unlock()

	s.log.Debug().
		Str("job_id", uuid.NewString()).
		Int("qubits", c.Qubits).
		Int("shots", shots).
		Int("outcomes", len(counts)).
		Msg("simulated run")
	return counts, nil
}

// amp is the amplitude pair of one independent qubit.
type amp struct {
	a complex128 // amplitude of |0>
	b complex128 // amplitude of |1>
}

// stateFor applies the circuit's gates to a |0...0> register and
// returns the per-qubit amplitudes.
func stateFor(c *circuit.Circuit) []amp {
	qubits := make([]amp, c.Qubits)
	for i := range qubits {
		qubits[i] = amp{a: 1}
	}
	for _, g := range c.Gates {
		q := &qubits[g.Qubit]
		switch g.Name {
		case circuit.GateH:
			q.a, q.b = (q.a+q.b)*invSqrt2, (q.a-q.b)*invSqrt2
		case circuit.GateX:
			q.a, q.b = q.b, q.a
		}
	}
	return qubits
}
