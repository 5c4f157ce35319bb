package state

import "github.com/npratt/vtree/internal/tree"

// CheckState is the tri-state display of a checkbox under cascading.
type CheckState int

const (
	Unchecked CheckState = iota
	Checked
	Indeterminate
)

func (c CheckState) String() string {
	switch c {
	case Checked:
		return "checked"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unchecked"
	}
}

// CascadeCheck sets id and all of its descendants to checked, then walks up
// the ancestors: each becomes checked exactly when all of its children are.
// It returns every id whose membership changed.
func CascadeCheck(s *Store, idx *tree.Index, id tree.NodeID, checked bool) []tree.NodeID {
	var changed []tree.NodeID
	set := func(n tree.NodeID, v bool) {
		if s.checked.Has(n) != v {
			s.SetChecked(n, v)
			changed = append(changed, n)
		}
	}

	set(id, checked)
	for _, d := range idx.Descendants(id) {
		set(d, checked)
	}

	for _, a := range idx.Ancestors(id) {
		all := true
		for _, c := range idx.Children(a) {
			if !s.checked.Has(c) {
				all = false
				break
			}
		}
		set(a, all)
	}
	return changed
}

// CheckStateOf reports id's tri-state: checked, unchecked, or indeterminate
// when only some of its descendants are checked.
func CheckStateOf(s *Store, idx *tree.Index, id tree.NodeID) CheckState {
	if s.checked.Has(id) {
		return Checked
	}
	for _, d := range idx.Descendants(id) {
		if s.checked.Has(d) {
			return Indeterminate
		}
	}
	return Unchecked
}
