// Package backend defines the execution capability every random-bit
// executor implements.
//
// A Backend runs a measurement circuit for a number of shots and
// reports the observed outcome counts. The library ships two
// implementations behind this interface: the local classical simulator
// (package simulator) and the remote quantum device session (package
// ibmq). Once a backend is selected, callers use it through this
// interface only and never branch on the concrete type.
//
// Outcome labels follow one convention across the repository: the
// leftmost character of a label is qubit 0.
package backend
