// Package ibmq talks to the remote quantum execution service.
//
// Service is a thin REST client over the runtime-shaped API: listing
// devices and their status, submitting sampler jobs carrying OpenQASM
// payloads, and polling them to completion. RemoteBackend wraps one
// device as a backend.Backend executor, clamping shot counts into the
// device's supported range and converting wire labels (qubit 0
// rightmost, the Qiskit convention) to the repository convention
// (qubit 0 leftmost).
//
// The service is a collaborator behind the backend capability; nothing
// in the core depends on this package's wire shapes.
//
// VerifyToken checks an API key against both service channels in order
// and can persist the accepted account for later sessions.
package ibmq
