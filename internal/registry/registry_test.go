package registry

import "testing"

type fakeHandle struct {
	name string
}

func (f *fakeHandle) WriteMessage(data []byte) error { return nil }

func TestRegistry_BindAndResolve(t *testing.T) {
	r := New()
	h := &fakeHandle{name: "conn-1"}

	if _, ok := r.Resolve("u1"); ok {
		t.Fatal("unbound identifier should not resolve")
	}

	r.Bind("u1", h)
	got, ok := r.Resolve("u1")
	if !ok {
		t.Fatal("bound identifier should resolve")
	}
	if got != Handle(h) {
		t.Errorf("resolved wrong handle: %v", got)
	}
}

func TestRegistry_RebindLastWriteWins(t *testing.T) {
	r := New()
	old := &fakeHandle{name: "old"}
	newer := &fakeHandle{name: "new"}

	r.Bind("u1", old)
	r.Bind("u1", newer)

	got, ok := r.Resolve("u1")
	if !ok || got != Handle(newer) {
		t.Errorf("rebind should overwrite: got %v", got)
	}
	if r.Len() != 1 {
		t.Errorf("rebind must not create a second binding: len=%d", r.Len())
	}
}

func TestRegistry_UnbindIfCurrent(t *testing.T) {
	r := New()
	old := &fakeHandle{name: "old"}
	newer := &fakeHandle{name: "new"}

	r.Bind("u1", old)
	r.Bind("u1", newer) // reconnect superseded the old handle

	// A stale disconnect from the old connection must be a no-op.
	if r.UnbindIfCurrent("u1", old) {
		t.Error("stale handle must not evict the newer binding")
	}
	if _, ok := r.Resolve("u1"); !ok {
		t.Fatal("newer binding should survive the stale unbind")
	}

	// The current handle does remove the binding.
	if !r.UnbindIfCurrent("u1", newer) {
		t.Error("current handle should remove the binding")
	}
	if _, ok := r.Resolve("u1"); ok {
		t.Error("identifier should be unbound")
	}

	// Unbinding an absent identifier is a no-op.
	if r.UnbindIfCurrent("never-bound", old) {
		t.Error("unbind of absent identifier should report false")
	}
}
