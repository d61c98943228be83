package simulator

import "errors"

// Sentinel errors for simulated execution.
var (
	// ErrInvalidShots is wrapped when the requested shot count is not
	// positive.
	ErrInvalidShots = errors.New("simulator: shots must be positive")
)
