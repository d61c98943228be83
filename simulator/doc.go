// Package simulator implements the classical fallback executor.
//
// The circuits the library runs keep every qubit independent (package
// circuit), so the simulator tracks one amplitude pair per qubit
// instead of a full 2^n state vector and stays exact at any register
// width. Measurement outcomes are independent Bernoulli draws over a
// seedable PCG source, so runs are reproducible in tests.
//
// The simulator is always constructible and never unavailable; the
// resolver substitutes it when no remote backend can be reached.
package simulator
