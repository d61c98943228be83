// Package circuit models the small measurement circuits the library
// executes.
//
// Only two gates exist, Hadamard and X, because random-bit sampling
// needs nothing else: a Hadamard puts a qubit into an equal
// superposition of 0 and 1, and X flips it for readout probes.
// Measurement of the full register is implicit in execution; every
// backend measures all qubits at the end of each shot.
//
// Builders cover the three circuits the library runs:
//   - Sampling(n): a Hadamard on each of n independent qubits
//   - Prepare0(): a single idle qubit, for readout-error probes
//   - Prepare1(): a single qubit flipped to 1, for readout-error probes
//
// QASM renders a circuit as OpenQASM 3.0 for the remote wire.
package circuit
