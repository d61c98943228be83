// Package qrand provides application-level random values sourced from
// quantum measurement outcomes.
//
// A Client resolves an executor once: the remote quantum service when
// credentials allow, the local classical simulator otherwise. Every
// generation call (Bits, Int, Float64, Bytes, ...) draws measurement
// outcomes through that executor and converts them. Selection failures
// fall back; execution failures surface.
//
// Subpackages hold the collaborators: circuit (gate model and OpenQASM
// rendering), backend (the executor capability), simulator (classical
// executor), ibmq (remote service client), credentials (session
// providers and account storage), telemetry (provider setup for
// embedding applications).
//
// The outcomes are measurement-grade randomness, not certified
// entropy: no cryptographic guarantee is made, with or without the
// Von Neumann debiasing option.
package qrand
