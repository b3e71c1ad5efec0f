package region

import (
	"context"
	"sort"
)

// Snapshot is an immutable in-memory view of an assignment set. It
// satisfies Lookup, so a batch of resolutions can run against one
// consistent view without touching the store again.
type Snapshot struct {
	byKey map[Key]Assignment
}

// NewSnapshot indexes assignments by key. Later duplicates win, matching
// the store's overwrite semantics.
func NewSnapshot(assignments []Assignment) *Snapshot {
	s := &Snapshot{byKey: make(map[Key]Assignment, len(assignments))}
	for _, a := range assignments {
		s.byKey[a.Key()] = a
	}
	return s
}

// Get implements Lookup. It never fails.
func (s *Snapshot) Get(_ context.Context, t Type, code string) (*Assignment, error) {
	a, ok := s.byKey[Key{Type: t, Code: code}]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// Len returns the number of assignments in the snapshot.
func (s *Snapshot) Len() int { return len(s.byKey) }

// All returns the assignments ordered by tier, then code.
func (s *Snapshot) All() []Assignment {
	out := make([]Assignment, 0, len(s.byKey))
	for _, a := range s.byKey {
		out = append(out, a)
	}
	Sort(out)
	return out
}

// Sort orders assignments by tier (most specific first), then code.
func Sort(assignments []Assignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		ri, rj := assignments[i].Type.Rank(), assignments[j].Type.Rank()
		if ri != rj {
			return ri < rj
		}
		return assignments[i].Code < assignments[j].Code
	})
}
