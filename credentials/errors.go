package credentials

import "errors"

// Sentinel errors for credential handling.
var (
	// ErrNoCredentials means no API key or session is configured.
	ErrNoCredentials = errors.New("credentials: no credentials configured")

	// ErrDenied means the service rejected the presented credentials.
	ErrDenied = errors.New("credentials: credentials rejected")

	// ErrAccountNotFound is returned when a named account is not in the
	// store.
	ErrAccountNotFound = errors.New("credentials: account not found")
)
