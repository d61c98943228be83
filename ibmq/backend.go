package ibmq

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jonwraymond/qrand/backend"
	"github.com/jonwraymond/qrand/circuit"
)

// RemoteBackend is one remote device behind the backend capability.
type RemoteBackend struct {
	svc    *Service
	device DeviceInfo
	log    zerolog.Logger
}

var _ backend.Backend = (*RemoteBackend)(nil)

// NewRemoteBackend wraps a device reachable through svc as an executor.
func NewRemoteBackend(svc *Service, device DeviceInfo, log zerolog.Logger) *RemoteBackend {
	return &RemoteBackend{
		svc:    svc,
		device: device,
		log: log.With().
			Str("component", "ibmq").
			Str("device", device.Name).
			Logger(),
	}
}

// Name returns the device name.
func (b *RemoteBackend) Name() string { return b.device.Name }

// Device returns the device metadata the backend was built with.
func (b *RemoteBackend) Device() DeviceInfo { return b.device }

// Run renders the circuit to QASM, executes it remotely, and returns
// counts in the repository label convention. The requested shot count
// is clamped into the device's supported range; the returned counts
// total the clamped value, never less than requested.
func (b *RemoteBackend) Run(ctx context.Context, c *circuit.Circuit, shots int) (backend.Counts, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if b.device.Qubits > 0 && c.Qubits > b.device.Qubits {
		return nil, fmt.Errorf("ibmq: circuit width %d exceeds device %s (%d qubits)",
			c.Qubits, b.device.Name, b.device.Qubits)
	}

	clamped := clampShots(shots, b.device)
	if clamped != shots {
		b.log.Debug().
			Int("requested", shots).
			Int("adjusted", clamped).
			Msg("adjusted shots to device bounds")
	}

	raw, err := b.svc.Run(ctx, b.device.Name, c.QASM(), clamped)
	if err != nil {
		return nil, err
	}

	counts := normalizeCounts(raw, c.Qubits)
	if counts.Total() < shots {
		return nil, fmt.Errorf("ibmq: device %s returned %d shots, want at least %d",
			b.device.Name, counts.Total(), shots)
	}
	return counts, nil
}

func clampShots(shots int, d DeviceInfo) int {
	if d.MinShots > 0 && shots < d.MinShots {
		shots = d.MinShots
	}
	if d.MaxShots > 0 && shots > d.MaxShots {
		shots = d.MaxShots
	}
	return shots
}

// normalizeCounts converts wire labels to the repository convention.
// The service reports labels with qubit 0 rightmost and leading zeros
// dropped; each label is reversed, then padded or trimmed to the
// register width.
func normalizeCounts(raw backend.Counts, width int) backend.Counts {
	counts := make(backend.Counts, len(raw))
	for label, n := range raw {
		counts[normalizeLabel(label, width)] += n
	}
	return counts
}

func normalizeLabel(label string, width int) string {
	label = strings.TrimPrefix(label, "0b")
	b := []byte(label)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	// reversed, qubit 0 is leftmost; absent high qubits read 0
	for len(b) < width {
		b = append(b, '0')
	}
	return string(b[:width])
}
