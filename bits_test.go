package qrand

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonwraymond/qrand/backend"
	"github.com/jonwraymond/qrand/circuit"
	"github.com/jonwraymond/qrand/simulator"
)

func bitsOf(s string) []Bit {
	out := make([]Bit, len(s))
	for i := range s {
		out[i] = s[i] == '1'
	}
	return out
}

func bitString(bits []Bit) string {
	var sb strings.Builder
	for _, b := range bits {
		sb.WriteString(b.String())
	}
	return sb.String()
}

func TestBitsFromForcedCounts(t *testing.T) {
	sim := simulator.New(simulator.WithForcedCounts(backend.Counts{"10101110": 1}))
	c := New(WithBackend(simulator.BackendName, sim))

	got, err := c.Bits(context.Background(), 8)
	if err != nil {
		t.Fatalf("Bits() error = %v", err)
	}
	if bitString(got) != "10101110" {
		t.Errorf("Bits() = %s, want 10101110", bitString(got))
	}
}

func TestBitsInvalidCount(t *testing.T) {
	c := New(WithBackend("test", staticBits("0")))

	for _, n := range []int{0, -1} {
		if _, err := c.Bits(context.Background(), n); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Bits(%d) error = %v, want ErrInvalidArgument", n, err)
		}
	}
}

func TestBitsUsesDominantLabel(t *testing.T) {
	// a backend with a shot minimum returns multi-shot counts
	multi := backend.Func(func(context.Context, *circuit.Circuit, int) (backend.Counts, error) {
		return backend.Counts{"110": 60, "001": 3, "010": 1}, nil
	})
	c := New(WithBackend("multi", multi))

	got, err := c.Bits(context.Background(), 3)
	if err != nil {
		t.Fatalf("Bits() error = %v", err)
	}
	if bitString(got) != "110" {
		t.Errorf("Bits() = %s, want the dominant label 110", bitString(got))
	}
}

func TestBitsChunksWideRequests(t *testing.T) {
	var widths []int
	exec := backend.Func(func(_ context.Context, cc *circuit.Circuit, shots int) (backend.Counts, error) {
		widths = append(widths, cc.Qubits)
		return backend.Counts{strings.Repeat("01", cc.Qubits/2): shots}, nil
	})
	c := New(WithBackend("chunky", exec), WithMaxCircuitWidth(8))

	got, err := c.Bits(context.Background(), 20)
	if err != nil {
		t.Fatalf("Bits(20) error = %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("len = %d, want 20", len(got))
	}
	if want := strings.Repeat("01", 10); bitString(got) != want {
		t.Errorf("Bits(20) = %s, want %s", bitString(got), want)
	}
	if len(widths) != 3 || widths[0] != 8 || widths[1] != 8 || widths[2] != 8 {
		t.Errorf("circuit widths = %v, want three cap-width runs", widths)
	}

	// the 4 surplus bits serve the next call without a run
	widths = widths[:0]
	rest, err := c.Bits(context.Background(), 4)
	if err != nil {
		t.Fatalf("Bits(4) error = %v", err)
	}
	if bitString(rest) != "0101" {
		t.Errorf("Bits(4) = %s, want the cached remainder 0101", bitString(rest))
	}
	if len(widths) != 0 {
		t.Errorf("circuit widths = %v, want the cache to serve without runs", widths)
	}
}

func TestBitsNarrowRequestRunsExactWidth(t *testing.T) {
	var widths []int
	exec := backend.Func(func(_ context.Context, cc *circuit.Circuit, shots int) (backend.Counts, error) {
		widths = append(widths, cc.Qubits)
		return backend.Counts{strings.Repeat("1", cc.Qubits): shots}, nil
	})
	c := New(WithBackend("exact", exec))

	if _, err := c.Bits(context.Background(), 13); err != nil {
		t.Fatalf("Bits(13) error = %v", err)
	}
	if len(widths) != 1 || widths[0] != 13 {
		t.Errorf("circuit widths = %v, want one exact-width run", widths)
	}
}

func TestBitsGenerationFailure(t *testing.T) {
	cause := errors.New("device on fire")
	failing := backend.Func(func(context.Context, *circuit.Circuit, int) (backend.Counts, error) {
		return nil, cause
	})
	c := New(WithBackend("failing", failing))

	_, err := c.Bits(context.Background(), 8)
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("Bits() error = %v, want ErrGeneration", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Bits() error = %v, want the executor cause preserved", err)
	}

	// the failure must not deselect the backend
	if c.BackendName() != "failing" {
		t.Errorf("BackendName() = %q, want the selection untouched", c.BackendName())
	}
}

func TestBitsEmptyCounts(t *testing.T) {
	empty := backend.Func(func(context.Context, *circuit.Circuit, int) (backend.Counts, error) {
		return backend.Counts{}, nil
	})
	c := New(WithBackend("empty", empty))

	if _, err := c.Bits(context.Background(), 4); !errors.Is(err, ErrGeneration) {
		t.Errorf("Bits() error = %v, want ErrGeneration for empty counts", err)
	}
}

func TestLabelBits(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		width   int
		want    string
		wantErr bool
	}{
		{"exact width", "101", 3, "101", false},
		{"short label left-padded", "11", 4, "0011", false},
		{"long label truncated", "10110", 3, "101", false},
		{"non-binary rune rejected", "1x1", 3, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := labelBits(tt.label, tt.width)
			if tt.wantErr {
				if !errors.Is(err, ErrGeneration) {
					t.Fatalf("labelBits() error = %v, want ErrGeneration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("labelBits() error = %v", err)
			}
			if bitString(got) != tt.want {
				t.Errorf("labelBits(%q, %d) = %s, want %s", tt.label, tt.width, bitString(got), tt.want)
			}
		})
	}
}

func TestBitString(t *testing.T) {
	sim := simulator.New(simulator.WithForcedCounts(backend.Counts{"0011": 1}))
	c := New(WithBackend(simulator.BackendName, sim))

	got, err := c.BitString(context.Background(), 4)
	if err != nil {
		t.Fatalf("BitString() error = %v", err)
	}
	if got != "0011" {
		t.Errorf("BitString() = %q, want 0011", got)
	}
}

func TestBitStringRendering(t *testing.T) {
	if got := Bit(true).String(); got != "1" {
		t.Errorf("Bit(true).String() = %q, want 1", got)
	}
	if got := Bit(false).String(); got != "0" {
		t.Errorf("Bit(false).String() = %q, want 0", got)
	}
}
