package state

import "github.com/npratt/vtree/internal/tree"

// IDSet is a set of node ids that remembers insertion order. The zero value
// is an empty set ready to use.
//
// Removal leaves a hole in order that is skipped on iteration; holes are
// compacted once they outnumber the live ids. A slot j is live exactly when
// pos[order[j]] == j.
type IDSet struct {
	order []tree.NodeID
	pos   map[tree.NodeID]int
	holes int
}

// Add inserts id and reports whether it was absent.
func (s *IDSet) Add(id tree.NodeID) bool {
	if s.pos == nil {
		s.pos = make(map[tree.NodeID]int)
	}
	if _, ok := s.pos[id]; ok {
		return false
	}
	s.pos[id] = len(s.order)
	s.order = append(s.order, id)
	return true
}

// Remove deletes id and reports whether it was present.
func (s *IDSet) Remove(id tree.NodeID) bool {
	if _, ok := s.pos[id]; !ok {
		return false
	}
	delete(s.pos, id)
	s.holes++
	if s.holes > len(s.pos) {
		s.compact()
	}
	return true
}

func (s *IDSet) compact() {
	live := make([]tree.NodeID, 0, len(s.pos))
	for j, id := range s.order {
		if p, ok := s.pos[id]; ok && p == j {
			s.pos[id] = len(live)
			live = append(live, id)
		}
	}
	s.order = live
	s.holes = 0
}

// Has reports membership.
func (s *IDSet) Has(id tree.NodeID) bool {
	_, ok := s.pos[id]
	return ok
}

// Len returns the number of ids.
func (s *IDSet) Len() int {
	return len(s.pos)
}

// Clear empties the set.
func (s *IDSet) Clear() {
	s.order = nil
	s.pos = nil
	s.holes = 0
}

// IDs returns a copy of the ids in insertion order.
func (s *IDSet) IDs() []tree.NodeID {
	out := make([]tree.NodeID, 0, len(s.pos))
	for j, id := range s.order {
		if p, ok := s.pos[id]; ok && p == j {
			out = append(out, id)
		}
	}
	return out
}

// Replace swaps the contents for ids.
func (s *IDSet) Replace(ids []tree.NodeID) {
	s.Clear()
	for _, id := range ids {
		s.Add(id)
	}
}

// Retain keeps only the ids for which keep returns true.
func (s *IDSet) Retain(keep func(tree.NodeID) bool) {
	ids := s.IDs()
	kept := ids[:0]
	for _, id := range ids {
		if keep(id) {
			kept = append(kept, id)
		}
	}
	s.Replace(kept)
}

// Map returns the set as id -> true.
func (s *IDSet) Map() map[tree.NodeID]bool {
	m := make(map[tree.NodeID]bool, len(s.pos))
	for id := range s.pos {
		m[id] = true
	}
	return m
}
