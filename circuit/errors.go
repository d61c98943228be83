package circuit

import "errors"

// Sentinel errors for circuit construction.
var (
	// ErrInvalid is wrapped by validation failures: zero width, unknown
	// gates, out-of-range qubit indexes.
	ErrInvalid = errors.New("circuit: invalid circuit")
)
