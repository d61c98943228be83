package backend

import "errors"

// Sentinel errors for backend execution.
var (
	// ErrUnavailable is wrapped by errors that mean the executor cannot
	// be reached at all: no session, no devices, failed connection. The
	// resolver treats any of these as a fallback trigger during
	// selection.
	ErrUnavailable = errors.New("backend: executor unavailable")
)
