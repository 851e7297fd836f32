package room

import "testing"

func TestManager_FirstJoinCreatesFormingRoom(t *testing.T) {
	m := NewManager()

	res := m.Join("room-1", "alice")
	if res.AlreadyMember {
		t.Error("first join should not report AlreadyMember")
	}
	if res.BecameReady {
		t.Error("single-member room must not become ready")
	}
	if len(res.Members) != 1 || res.Members[0] != "alice" {
		t.Errorf("unexpected members: %v", res.Members)
	}

	r := m.Get("room-1")
	if r == nil {
		t.Fatal("room should exist after join")
	}
	if r.Ready() {
		t.Error("room should still be forming")
	}
}

func TestManager_SecondJoinFlipsReadyOnce(t *testing.T) {
	m := NewManager()
	m.Join("room-1", "alice")

	res := m.Join("room-1", "bob")
	if !res.BecameReady {
		t.Fatal("second member should flip the room to ready")
	}
	if len(res.Members) != 2 {
		t.Fatalf("expected 2 members, got %v", res.Members)
	}

	// A third distinct identifier must not re-fire readiness.
	res = m.Join("room-1", "mallory")
	if res.BecameReady {
		t.Error("third joiner must not re-fire peer-ready")
	}

	// Neither does a duplicate join by an existing member.
	res = m.Join("room-1", "alice")
	if !res.AlreadyMember {
		t.Error("duplicate join should report AlreadyMember")
	}
	if res.BecameReady {
		t.Error("duplicate join must not re-fire peer-ready")
	}
}

func TestManager_DuplicateJoinIsIdempotent(t *testing.T) {
	m := NewManager()
	m.Join("room-1", "alice")
	m.Join("room-1", "alice")

	r := m.Get("room-1")
	if got := len(r.Members()); got != 1 {
		t.Errorf("duplicate join must not add a second membership: %d", got)
	}
}

func TestManager_LeaveDestroysEmptyRoom(t *testing.T) {
	m := NewManager()
	m.Join("room-1", "alice")
	m.Join("room-1", "bob")

	res := m.Leave("room-1", "alice")
	if !res.Removed {
		t.Error("leave of a member should report Removed")
	}
	if res.Closed {
		t.Error("room with a remaining member must not close")
	}
	if len(res.Remaining) != 1 || res.Remaining[0] != "bob" {
		t.Errorf("unexpected remaining members: %v", res.Remaining)
	}

	// No ready -> forming regression: the room stays ready for bob.
	if r := m.Get("room-1"); r == nil || !r.Ready() {
		t.Error("room should remain ready after a member leaves")
	}

	res = m.Leave("room-1", "bob")
	if !res.Closed {
		t.Error("room should close at zero membership")
	}
	if m.Get("room-1") != nil {
		t.Error("closed room should be gone from the table")
	}

	// The name is free again: a fresh lifecycle starts in forming.
	fresh := m.Join("room-1", "carol")
	if fresh.BecameReady || fresh.AlreadyMember {
		t.Errorf("reused name should start a fresh forming room: %+v", fresh)
	}
	if r := m.Get("room-1"); r.Ready() {
		t.Error("fresh room instance must not inherit readiness")
	}
}

func TestManager_LeaveIsIdempotent(t *testing.T) {
	m := NewManager()

	// Leaving a room that does not exist is a no-op.
	res := m.Leave("ghost-room", "alice")
	if res.Removed || res.Closed {
		t.Errorf("leave of absent room should be a no-op: %+v", res)
	}

	// Leaving a room the identifier never joined is a no-op.
	m.Join("room-1", "bob")
	res = m.Leave("room-1", "alice")
	if res.Removed {
		t.Error("leave of a non-member should not report Removed")
	}
	if len(m.Get("room-1").Members()) != 1 {
		t.Error("non-member leave must not change membership")
	}
}

func TestManager_LeaveAll(t *testing.T) {
	m := NewManager()
	m.Join("room-1", "alice")
	m.Join("room-1", "bob")
	m.Join("room-2", "alice")

	departures := m.LeaveAll("alice")
	if len(departures) != 2 {
		t.Fatalf("expected 2 departures, got %d", len(departures))
	}

	byRoom := make(map[string]Departure)
	for _, d := range departures {
		byRoom[d.Room] = d
	}

	d1 := byRoom["room-1"]
	if d1.Closed {
		t.Error("room-1 still has bob, must not close")
	}
	if len(d1.Remaining) != 1 || d1.Remaining[0] != "bob" {
		t.Errorf("room-1 remaining = %v, want [bob]", d1.Remaining)
	}

	d2 := byRoom["room-2"]
	if !d2.Closed {
		t.Error("room-2 was alice alone, should close")
	}

	if m.Get("room-2") != nil {
		t.Error("room-2 should be destroyed")
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 room left, got %d", m.Len())
	}

	// An identifier in no rooms sweeps nothing.
	if got := m.LeaveAll("stranger"); len(got) != 0 {
		t.Errorf("expected empty sweep, got %v", got)
	}
}
