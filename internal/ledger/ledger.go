// Package ledger maintains the item-participant assignment relation for
// one bill. An assignment is an unordered (item, participant) pair with
// set semantics: toggling a pair twice returns the ledger to its prior
// state. The ledger assumes single-writer-at-a-time access per bill;
// concurrent toggles of the same pair must be serialized by the caller.
package ledger

import "sort"

// ToggleResult reports the effect of a toggle.
type ToggleResult string

const (
	Added   ToggleResult = "added"
	Removed ToggleResult = "removed"
)

type pair struct {
	itemID        string
	participantID string
}

// Ledger is an in-memory assignment set.
type Ledger struct {
	pairs map[pair]struct{}
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{pairs: make(map[pair]struct{})}
}

// FromAssignments builds a ledger from a map of item id to assigned
// participant ids, as loaded from storage.
func FromAssignments(assignments map[string][]string) *Ledger {
	l := New()
	for itemID, participants := range assignments {
		for _, pid := range participants {
			l.pairs[pair{itemID, pid}] = struct{}{}
		}
	}
	return l
}

// Toggle adds the pair if absent and removes it if present.
func (l *Ledger) Toggle(itemID, participantID string) ToggleResult {
	p := pair{itemID, participantID}
	if _, ok := l.pairs[p]; ok {
		delete(l.pairs, p)
		return Removed
	}
	l.pairs[p] = struct{}{}
	return Added
}

// Has reports whether the pair is currently assigned.
func (l *Ledger) Has(itemID, participantID string) bool {
	_, ok := l.pairs[pair{itemID, participantID}]
	return ok
}

// AssignmentsFor returns the participant ids assigned to the item, sorted
// for deterministic iteration. Unassigned items yield an empty slice.
func (l *Ledger) AssignmentsFor(itemID string) []string {
	var out []string
	for p := range l.pairs {
		if p.itemID == itemID {
			out = append(out, p.participantID)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of live assignments.
func (l *Ledger) Len() int {
	return len(l.pairs)
}
