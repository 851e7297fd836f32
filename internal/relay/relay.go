// Package relay forwards signaling payloads (offer, answer, ICE candidate)
// to a named recipient's current live transport. It holds no state of its
// own: every delivery resolves the recipient through the connection registry
// at send time, because the recipient may have reconnected — or vanished —
// since the sender last heard from it.
package relay

import (
	"errors"
	"fmt"

	"github.com/pulse/video-app/internal/protocol"
	"github.com/pulse/video-app/internal/registry"
)

// ErrUnreachable is returned when the recipient identifier has no live
// binding. The caller must surface this to the sender (relay-failed) instead
// of dropping the handshake step silently — the sender's belief that the
// peer is still connected can be stale.
var ErrUnreachable = errors.New("relay: recipient unreachable")

// Relay resolves recipients through the registry and writes tagged payloads
// to their transports.
type Relay struct {
	reg *registry.Registry
}

// New creates a relay over the given registry.
func New(reg *registry.Registry) *Relay {
	return &Relay{reg: reg}
}

// Forward delivers payload, tagged with the outbound message kind, to the
// identifier's current transport. It mutates nothing: on an unresolvable
// recipient it returns ErrUnreachable, and a transport write failure is
// wrapped and returned for the caller to log.
func (r *Relay) Forward(kind, to string, payload interface{}) error {
	handle, ok := r.reg.Resolve(to)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnreachable, to)
	}

	data, err := protocol.NewServerMessage(kind, payload)
	if err != nil {
		return fmt.Errorf("relay: encode %s: %w", kind, err)
	}

	if err := handle.WriteMessage(data); err != nil {
		return fmt.Errorf("relay: write %s to %s: %w", kind, to, err)
	}
	return nil
}
