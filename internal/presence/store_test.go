package presence

import (
	"context"
	"testing"
)

// newTestStore connects to a local Redis and cleans test keys. Tests using
// this helper require a running Redis on localhost:6379 and skip otherwise.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("localhost:6379", "test-server")
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}

	cleanup := func() {
		ctx := context.Background()
		iter := store.client.Scan(ctx, 0, KeyPrefix+"test_*", 100).Iterator()
		for iter.Next(ctx) {
			store.client.Del(ctx, iter.Val())
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		store.Close()
	})
	return store
}

func TestTrackAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Track(ctx, "test_u1", StatusQueued, "conn-1"); err != nil {
		t.Fatalf("Track() error: %v", err)
	}

	entry, err := store.Get(ctx, "test_u1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if entry == nil {
		t.Fatal("expected an entry, got nil")
	}
	if entry.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, entry.Status)
	}
	if entry.ConnID != "conn-1" {
		t.Errorf("expected conn-1, got %q", entry.ConnID)
	}
	if entry.Server != "test-server" {
		t.Errorf("expected test-server, got %q", entry.Server)
	}

	ttl, err := store.client.TTL(ctx, KeyPrefix+"test_u1").Result()
	if err != nil {
		t.Fatalf("TTL() error: %v", err)
	}
	if ttl <= 0 || ttl > TTL {
		t.Errorf("expected TTL in (0, %v], got %v", TTL, ttl)
	}
}

func TestGet_Missing(t *testing.T) {
	store := newTestStore(t)

	entry, err := store.Get(context.Background(), "test_missing")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if entry != nil {
		t.Errorf("expected nil for a missing record, got %+v", entry)
	}
}

func TestTrack_StatusTransition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Track(ctx, "test_u2", StatusQueued, "conn-1")
	store.Track(ctx, "test_u2", StatusInCall, "conn-1")

	entry, _ := store.Get(ctx, "test_u2")
	if entry == nil || entry.Status != StatusInCall {
		t.Fatalf("expected status %q after transition, got %+v", StatusInCall, entry)
	}
}

func TestClear_OnlyByOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Track(ctx, "test_u3", StatusInCall, "conn-new")

	// A stale connection's clear must leave the record alone.
	if err := store.Clear(ctx, "test_u3", "conn-old"); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if entry, _ := store.Get(ctx, "test_u3"); entry == nil {
		t.Fatal("record cleared by a non-owner connection")
	}

	// The owning connection clears it.
	if err := store.Clear(ctx, "test_u3", "conn-new"); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if entry, _ := store.Get(ctx, "test_u3"); entry != nil {
		t.Errorf("expected record removed, got %+v", entry)
	}
}

func TestClear_MissingIsNoop(t *testing.T) {
	store := newTestStore(t)

	if err := store.Clear(context.Background(), "test_never_tracked", "conn-1"); err != nil {
		t.Errorf("Clear() on a missing record should be a no-op, got %v", err)
	}
}
