package ibmq

import "errors"

// Sentinel errors for the remote service client.
var (
	// ErrNoSession means the service was constructed without a usable
	// session.
	ErrNoSession = errors.New("ibmq: no session")

	// ErrDeviceNotFound is returned when a named device is not visible
	// in the current session.
	ErrDeviceNotFound = errors.New("ibmq: device not found")

	// ErrNoDevices is returned when no operational device is available.
	ErrNoDevices = errors.New("ibmq: no operational devices")

	// ErrJobFailed is wrapped when a submitted job ends in a failed or
	// cancelled state.
	ErrJobFailed = errors.New("ibmq: job failed")

	// ErrVerifyFailed is wrapped when an API key is not accepted by any
	// service channel.
	ErrVerifyFailed = errors.New("ibmq: token not accepted by any channel")
)
