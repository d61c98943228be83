package circuit

import (
	"fmt"
	"strings"
)

// QASM renders the circuit as OpenQASM 3.0 with an explicit
// full-register measurement, the wire format the remote sampler
// accepts.
func (c *Circuit) QASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 3.0;\n")
	sb.WriteString("include \"stdgates.inc\";\n")
	fmt.Fprintf(&sb, "qubit[%d] q;\n", c.Qubits)
	fmt.Fprintf(&sb, "bit[%d] c;\n", c.Qubits)
	for _, g := range c.Gates {
		fmt.Fprintf(&sb, "%s q[%d];\n", g.Name, g.Qubit)
	}
	sb.WriteString("c = measure q;\n")
	return sb.String()
}
