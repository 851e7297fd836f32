// Package matching implements the in-memory matchmaking queue and the pairing
// engine that scans it for compatible participants. The queue is a plain
// ordered slice: sizes are small and the O(n) dedup scan keeps the
// one-entry-per-identifier invariant trivially correct. All state here is
// unsynchronized on purpose — the gateway serializes every mutation.
package matching

import "fmt"

// Gender is a participant's declared gender.
type Gender string

// Category is a participant's orientation-based matching category.
type Category string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"

	CategoryStraight Category = "straight"
	CategoryGay      Category = "gay"
	CategoryLesbian  Category = "lesbian"
)

// ParseGender validates and converts a wire-level gender string.
func ParseGender(s string) (Gender, error) {
	switch Gender(s) {
	case GenderMale, GenderFemale:
		return Gender(s), nil
	}
	return "", fmt.Errorf("matching: invalid gender %q", s)
}

// ParseCategory validates and converts a wire-level category string.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryStraight, CategoryGay, CategoryLesbian:
		return Category(s), nil
	}
	return "", fmt.Errorf("matching: invalid category %q", s)
}

// Participant is a user waiting in the matchmaking queue. It exists only
// transiently while queued and is never persisted.
type Participant struct {
	Identifier string
	Gender     Gender
	Category   Category
}
