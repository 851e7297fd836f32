// Package room tracks the two-party call rooms formed after a match. Each
// room walks the lifecycle absent -> forming -> ready -> absent: it is
// created on the first join of a never-seen name, flips to ready exactly once
// when membership reaches two, and is destroyed the moment membership returns
// to zero, so the same name can start a fresh lifecycle later.
//
// The manager has no idea how the two identifiers came to know each other —
// the match result is opaque to it, which leaves the door open for direct
// invite flows that skip matchmaking. Like the queue, it carries no lock:
// the gateway serializes all access.
package room

// Room is a single two-party signaling session keyed by a caller-chosen name.
// Membership size is bounded at 2 by protocol convention, not enforced here.
type Room struct {
	Name    string
	members []string // insertion order
	ready   bool
}

// Members returns the current member identifiers in join order.
func (r *Room) Members() []string {
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

// Ready reports whether the room has reached readiness.
func (r *Room) Ready() bool {
	return r.ready
}

func (r *Room) contains(identifier string) bool {
	for _, m := range r.members {
		if m == identifier {
			return true
		}
	}
	return false
}

func (r *Room) remove(identifier string) bool {
	for i, m := range r.members {
		if m == identifier {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

// JoinResult describes what a Join call did.
type JoinResult struct {
	AlreadyMember bool     // duplicate join, idempotent no-op
	BecameReady   bool     // membership reached two for the first time
	Members       []string // membership after the join
}

// LeaveResult describes what a Leave call did.
type LeaveResult struct {
	Removed   bool     // identifier was a member and is now gone
	Closed    bool     // membership hit zero and the room was destroyed
	Remaining []string // members left behind (empty when Closed)
}

// Departure is one room's outcome of a LeaveAll sweep.
type Departure struct {
	Room      string
	Remaining []string
	Closed    bool
}

// Manager owns the room table.
type Manager struct {
	rooms map[string]*Room
}

// NewManager creates an empty room table.
func NewManager() *Manager {
	return &Manager{rooms: make(map[string]*Room)}
}

// Join adds the identifier to the named room, creating the room in the
// forming state if absent. Joining a room the identifier is already in is an
// idempotent no-op. When membership reaches exactly two for the first time
// in this room's lifetime instance, the room transitions to ready and
// BecameReady is set so the caller can notify all members; the transition
// fires at most once per instance.
func (m *Manager) Join(name, identifier string) JoinResult {
	r, ok := m.rooms[name]
	if !ok {
		r = &Room{Name: name}
		m.rooms[name] = r
	}

	if r.contains(identifier) {
		return JoinResult{AlreadyMember: true, Members: r.Members()}
	}

	r.members = append(r.members, identifier)

	becameReady := !r.ready && len(r.members) == 2
	if becameReady {
		r.ready = true
	}

	return JoinResult{BecameReady: becameReady, Members: r.Members()}
}

// Leave removes the identifier from the named room. When membership becomes
// empty the room record is destroyed entirely. There is no ready -> forming
// regression: a remaining member stays in a ready room, and the caller is
// expected to pair the departure with a peer-disconnected notification so
// the orphaned client can react. Leaving a room the identifier is not in
// (or a room that does not exist) is a no-op.
func (m *Manager) Leave(name, identifier string) LeaveResult {
	r, ok := m.rooms[name]
	if !ok {
		return LeaveResult{}
	}

	if !r.remove(identifier) {
		return LeaveResult{Remaining: r.Members()}
	}

	if len(r.members) == 0 {
		delete(m.rooms, name)
		return LeaveResult{Removed: true, Closed: true}
	}
	return LeaveResult{Removed: true, Remaining: r.Members()}
}

// LeaveAll removes the identifier from every room containing it and reports,
// per room, who remains and whether the room closed. It is the disconnect
// path: the caller does not know in advance which rooms (if any) the
// identifier belongs to, and an identifier in no rooms yields an empty sweep.
func (m *Manager) LeaveAll(identifier string) []Departure {
	var departures []Departure
	for name, r := range m.rooms {
		if !r.contains(identifier) {
			continue
		}
		res := m.Leave(name, identifier)
		departures = append(departures, Departure{
			Room:      name,
			Remaining: res.Remaining,
			Closed:    res.Closed,
		})
	}
	return departures
}

// Get returns the named room, or nil if absent. Callers may only read the
// returned room transiently; ownership stays with the manager.
func (m *Manager) Get(name string) *Room {
	return m.rooms[name]
}

// Len returns the number of live rooms.
func (m *Manager) Len() int {
	return len(m.rooms)
}
