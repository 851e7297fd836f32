// Package registry maps stable participant identifiers to their current live
// transport handle. Identifiers outlive connections: a participant that
// reconnects rebinds the same identifier to a new handle, and signaling is
// always addressed by identifier, never by transport.
package registry

// Handle is the minimal transport surface the registry needs to hold on to.
// *ws.Connection satisfies it; tests substitute fakes.
type Handle interface {
	// WriteMessage sends one outbound frame to the client.
	WriteMessage(data []byte) error
}

// Registry is the identifier -> live handle map. It is owned by the gateway
// and mutated only under the gateway's serialization, so it carries no lock
// of its own.
type Registry struct {
	bindings map[string]Handle
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{bindings: make(map[string]Handle)}
}

// Bind associates the identifier with the handle. It is an unconditional
// upsert: any prior handle for that identifier is discarded, which is what
// supports reconnect-with-same-identifier.
func (r *Registry) Bind(identifier string, h Handle) {
	r.bindings[identifier] = h
}

// Resolve returns the current handle for the identifier, or false if the
// identifier has no live binding.
func (r *Registry) Resolve(identifier string) (Handle, bool) {
	h, ok := r.bindings[identifier]
	return h, ok
}

// UnbindIfCurrent removes the binding only if it currently equals h. A
// disconnect event from a superseded connection must not evict the binding
// a newer reconnect just installed. Returns whether a removal occurred.
func (r *Registry) UnbindIfCurrent(identifier string, h Handle) bool {
	cur, ok := r.bindings[identifier]
	if !ok || cur != h {
		return false
	}
	delete(r.bindings, identifier)
	return true
}

// Len returns the number of live bindings.
func (r *Registry) Len() int {
	return len(r.bindings)
}
