package matching

// Pair is the result of a successful pairing. Initiator is the earlier-queued
// participant: exactly one side of the handshake must start it, and picking
// the longer-waiting side deterministically avoids the double-initiator (or
// no-initiator) deadlock.
type Pair struct {
	Initiator Participant
	Responder Participant
}

// CanMatch is the compatibility predicate for two queued participants.
// Both must declare the same category; within a category:
//
//	straight — genders must differ
//	gay      — both male
//	lesbian  — both female
//
// A participant never matches itself, and any other combination is false.
func CanMatch(a, b Participant) bool {
	if a.Identifier == b.Identifier {
		return false
	}
	if a.Category != b.Category {
		return false
	}

	switch a.Category {
	case CategoryStraight:
		return a.Gender != b.Gender
	case CategoryGay:
		return a.Gender == GenderMale && b.Gender == GenderMale
	case CategoryLesbian:
		return a.Gender == GenderFemale && b.Gender == GenderFemale
	}
	return false
}

// TryMatch scans the queue for the first compatible pair and removes both
// entries on success. The scan is greedy first-fit over pairs (i, j) with
// i < j in insertion order: the earliest-waiting participant is matched with
// the first compatible later entrant, not necessarily the nearest one. This
// trades global optimality for minimal wait time at the queue head.
//
// TryMatch is invoked after every enqueue; there is no timer-driven re-entry
// and no server-side wait timeout.
func TryMatch(q *Queue) (Pair, bool) {
	snapshot := q.Snapshot()

	for i := 0; i < len(snapshot); i++ {
		for j := i + 1; j < len(snapshot); j++ {
			if !CanMatch(snapshot[i].Participant, snapshot[j].Participant) {
				continue
			}

			q.RemovePair(snapshot[i], snapshot[j])
			return Pair{
				Initiator: snapshot[i].Participant,
				Responder: snapshot[j].Participant,
			}, true
		}
	}
	return Pair{}, false
}
