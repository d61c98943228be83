package qrand

import "errors"

// Sentinel errors of the generation surface. backend.ErrUnavailable
// belongs to the executor capability and never reaches generation
// callers; it survives only as a fallback reason inside a Resolution.
var (
	// ErrUnknownBackend means an explicitly named backend is not
	// visible in the current session. Selection recovers by falling
	// back to the simulator; the error survives as the recorded
	// fallback reason.
	ErrUnknownBackend = errors.New("qrand: unknown backend")

	// ErrGeneration wraps executor failures during a run. The resolved
	// backend stays selected; there is no mid-run fallback.
	ErrGeneration = errors.New("qrand: generation failed")

	// ErrInvalidArgument rejects malformed caller input before any
	// executor work happens.
	ErrInvalidArgument = errors.New("qrand: invalid argument")
)
