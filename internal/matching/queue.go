package matching

// QueueEntry is one waiting participant's matchmaking record. Entries are
// compared by pointer identity in RemovePair so that a pairing decision made
// over a snapshot removes exactly the entries it saw, not whatever happens to
// match by value afterwards.
type QueueEntry struct {
	Participant Participant
	seq         uint64 // monotonically increasing insertion order
}

// Queue is an ordered collection of participants awaiting pairing. Insertion
// order is meaningful: it defines the pairing scan priority. A given
// identifier appears in at most one entry at any time.
type Queue struct {
	entries []*QueueEntry
	nextSeq uint64
}

// NewQueue creates an empty matchmaking queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue removes any existing entry with the same identifier and appends the
// participant at the tail, so re-joining resets queue position to the back.
// It returns the created entry.
func (q *Queue) Enqueue(p Participant) *QueueEntry {
	q.DequeueByIdentifier(p.Identifier)

	e := &QueueEntry{Participant: p, seq: q.nextSeq}
	q.nextSeq++
	q.entries = append(q.entries, e)
	return e
}

// DequeueByIdentifier removes the entry for the given identifier if present.
// It is idempotent: removing an absent identifier is a no-op. Returns whether
// an entry was removed.
func (q *Queue) DequeueByIdentifier(identifier string) bool {
	for i, e := range q.entries {
		if e.Participant.Identifier == identifier {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a read-only ordered view of the queue for the pairing
// scan. The returned slice is a copy; the entries it points to are shared.
func (q *Queue) Snapshot() []*QueueEntry {
	out := make([]*QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// RemovePair removes exactly the two given entries, compared by identity.
// It is used atomically with a pairing decision so queue positions never
// need to be re-derived after the scan.
func (q *Queue) RemovePair(a, b *QueueEntry) {
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e == a || e == b {
			continue
		}
		kept = append(kept, e)
	}
	// Clear the tail so removed entries don't linger in the backing array.
	for i := len(kept); i < len(q.entries); i++ {
		q.entries[i] = nil
	}
	q.entries = kept
}

// Len returns the number of waiting participants.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Contains reports whether the given identifier is currently queued.
func (q *Queue) Contains(identifier string) bool {
	for _, e := range q.entries {
		if e.Participant.Identifier == identifier {
			return true
		}
	}
	return false
}
