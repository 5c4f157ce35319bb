// Package state holds the per-session interaction state of a tree view:
// which nodes are expanded, selected, checked, and matched by search.
package state

import "github.com/npratt/vtree/internal/tree"

// Store is the interaction state of one tree view. It is not safe for
// concurrent use; the owner serializes access. No operation triggers a
// recomputation of visibility, the caller decides when to recompute.
type Store struct {
	expanded IDSet
	selected IDSet
	checked  IDSet
	matched  IDSet
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Snapshot is a copy of the store contents.
type Snapshot struct {
	Expanded []tree.NodeID `json:"expanded"`
	Selected []tree.NodeID `json:"selected"`
	Checked  []tree.NodeID `json:"checked"`
	Matched  []tree.NodeID `json:"matched"`
}

// ToggleSelect updates the selection for a click on id. With multiple it
// toggles id's membership; otherwise the selection becomes exactly {id}.
// It returns whether id is selected afterwards.
func (s *Store) ToggleSelect(id tree.NodeID, multiple bool) bool {
	if multiple {
		if s.selected.Has(id) {
			s.selected.Remove(id)
			return false
		}
		s.selected.Add(id)
		return true
	}
	s.selected.Clear()
	s.selected.Add(id)
	return true
}

// SetExpanded expands or collapses id alone. Collapsing does not touch the
// expansion state of descendants.
func (s *Store) SetExpanded(id tree.NodeID, expanded bool) {
	if expanded {
		s.expanded.Add(id)
	} else {
		s.expanded.Remove(id)
	}
}

// SetChecked checks or unchecks id alone.
func (s *Store) SetChecked(id tree.NodeID, checked bool) {
	if checked {
		s.checked.Add(id)
	} else {
		s.checked.Remove(id)
	}
}

// SetMatched replaces the matched set.
func (s *Store) SetMatched(ids []tree.NodeID) {
	s.matched.Replace(ids)
}

// ExpandAll marks every id as expanded.
func (s *Store) ExpandAll(ids []tree.NodeID) {
	for _, id := range ids {
		s.expanded.Add(id)
	}
}

// CollapseAll clears the expanded set.
func (s *Store) CollapseAll() {
	s.expanded.Clear()
}

// Reset clears all four sets.
func (s *Store) Reset() {
	s.expanded.Clear()
	s.selected.Clear()
	s.checked.Clear()
	s.matched.Clear()
}

// Prune drops ids that are not nodes of idx.
func (s *Store) Prune(idx *tree.Index) {
	for _, set := range []*IDSet{&s.expanded, &s.selected, &s.checked, &s.matched} {
		set.Retain(idx.Has)
	}
}

func (s *Store) IsExpanded(id tree.NodeID) bool { return s.expanded.Has(id) }
func (s *Store) IsSelected(id tree.NodeID) bool { return s.selected.Has(id) }
func (s *Store) IsChecked(id tree.NodeID) bool  { return s.checked.Has(id) }
func (s *Store) IsMatched(id tree.NodeID) bool  { return s.matched.Has(id) }

// ExpandedMap is the expansion state in the form the resolver and the worker
// protocol take.
func (s *Store) ExpandedMap() map[tree.NodeID]bool {
	return s.expanded.Map()
}

// Selected returns the selected ids in selection order.
func (s *Store) Selected() []tree.NodeID { return s.selected.IDs() }

// Checked returns the checked ids in check order.
func (s *Store) Checked() []tree.NodeID { return s.checked.IDs() }

// Matched returns the matched ids.
func (s *Store) Matched() []tree.NodeID { return s.matched.IDs() }

// Snapshot copies the store contents.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Expanded: s.expanded.IDs(),
		Selected: s.selected.IDs(),
		Checked:  s.checked.IDs(),
		Matched:  s.matched.IDs(),
	}
}
