package circuit

import "fmt"

// Gate names. Lowercase is the canonical form, matching OpenQASM.
const (
	GateH = "h"
	GateX = "x"
)

// Gate is a single-qubit gate application.
type Gate struct {
	Name  string
	Qubit int
}

// Circuit is an ordered list of gates over a fixed-width qubit
// register. Every qubit is measured at the end of execution.
type Circuit struct {
	Qubits int
	Gates  []Gate
}

// Sampling returns the width-n sampling circuit: a Hadamard on every
// qubit, so each position measures 0 or 1 with equal probability. The
// qubits stay independent; one shot yields n random bits.
func Sampling(n int) *Circuit {
	gates := make([]Gate, n)
	for i := range gates {
		gates[i] = Gate{Name: GateH, Qubit: i}
	}
	return &Circuit{Qubits: n, Gates: gates}
}

// Prepare0 returns the single-qubit readout probe that leaves the
// qubit in |0>. Any measured 1 is a readout flip.
func Prepare0() *Circuit {
	return &Circuit{Qubits: 1}
}

// Prepare1 returns the single-qubit readout probe that applies X to
// reach |1>. Any measured 0 is a readout flip.
func Prepare1() *Circuit {
	return &Circuit{
		Qubits: 1,
		Gates:  []Gate{{Name: GateX, Qubit: 0}},
	}
}

// Validate reports whether the circuit is well formed: positive width,
// known gate names, qubit indexes inside the register.
func (c *Circuit) Validate() error {
	if c.Qubits < 1 {
		return fmt.Errorf("%w: width %d", ErrInvalid, c.Qubits)
	}
	for i, g := range c.Gates {
		if g.Name != GateH && g.Name != GateX {
			return fmt.Errorf("%w: gate %d: unknown name %q", ErrInvalid, i, g.Name)
		}
		if g.Qubit < 0 || g.Qubit >= c.Qubits {
			return fmt.Errorf("%w: gate %d: qubit %d outside register of %d", ErrInvalid, i, g.Qubit, c.Qubits)
		}
	}
	return nil
}
