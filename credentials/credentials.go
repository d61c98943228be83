package credentials

import (
	"context"
	"time"
)

// Service channels. The channel picks the API surface a session talks
// to and is stamped into every session a provider issues.
const (
	// ChannelCloud is the IBM Cloud channel.
	ChannelCloud = "ibm_cloud"

	// ChannelPlatform is the IBM Quantum Platform channel.
	ChannelPlatform = "ibm_quantum_platform"
)

// Session is an authenticated session with the quantum service: a
// bearer token plus the channel and instance it was issued for.
// Sessions are immutable snapshots; providers issue fresh ones rather
// than mutating old ones.
type Session struct {
	// Token is the bearer access token.
	Token string

	// Expiry is when the token stops working. Zero means unknown, and
	// the session is treated as non-expiring.
	Expiry time.Time

	// Channel is the service channel the token was issued for.
	Channel string

	// Instance identifies the service instance, when the channel needs
	// one.
	Instance string
}

// Valid reports whether the session carries an unexpired token.
func (s *Session) Valid() bool { return s.ValidFor(0) }

// ValidFor reports whether the session stays valid for at least the
// given headroom.
func (s *Session) ValidFor(headroom time.Duration) bool {
	if s == nil || s.Token == "" {
		return false
	}
	if s.Expiry.IsZero() {
		return true
	}
	return time.Until(s.Expiry) > headroom
}

// Provider yields authenticated sessions with the quantum service.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: OpenSession must honor cancellation/deadlines.
// - Errors: OpenSession wraps ErrNoCredentials when nothing is
//   configured and ErrDenied when the service rejects the credentials;
//   other errors are transport failures. A missing session is a normal
//   fallback condition for the resolver, not a fault.
type Provider interface {
	// HasSession reports whether opening a session is worth attempting.
	// It performs no I/O.
	HasSession(ctx context.Context) bool

	// OpenSession authenticates and returns a usable session.
	OpenSession(ctx context.Context) (*Session, error)
}

// StaticProvider serves one fixed, pre-issued session. Useful in tests
// and in setups where the token is minted elsewhere.
type StaticProvider struct {
	Session Session
}

var _ Provider = (*StaticProvider)(nil)

// HasSession reports whether the fixed session is still valid.
func (p *StaticProvider) HasSession(context.Context) bool {
	return p.Session.Valid()
}

// OpenSession returns a copy of the fixed session.
func (p *StaticProvider) OpenSession(context.Context) (*Session, error) {
	if !p.Session.Valid() {
		return nil, ErrNoCredentials
	}
	s := p.Session
	return &s, nil
}
