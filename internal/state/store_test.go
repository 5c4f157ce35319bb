package state

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/npratt/vtree/internal/testutil"
	"github.com/npratt/vtree/internal/tree"
)

func TestIDSet(t *testing.T) {
	var s IDSet
	for _, id := range []tree.NodeID{"b", "a", "b", "c"} {
		s.Add(id)
	}
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []tree.NodeID{"b", "a", "c"}, s.IDs())

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, []tree.NodeID{"b", "c"}, s.IDs())
	assert.True(t, s.Has("c"))

	assert.True(t, s.Add("a"))
	assert.Equal(t, []tree.NodeID{"b", "c", "a"}, s.IDs())

	s.Retain(func(id tree.NodeID) bool { return id != "c" })
	assert.Equal(t, []tree.NodeID{"b", "a"}, s.IDs())
	assert.Equal(t, map[tree.NodeID]bool{"a": true, "b": true}, s.Map())

	var zero IDSet
	assert.False(t, zero.Has("x"))
	assert.Empty(t, zero.IDs())
}

func TestIDSetCompaction(t *testing.T) {
	var s IDSet
	for i := range 100 {
		s.Add(tree.NodeID(fmt.Sprint(i)))
	}
	for i := 0; i < 100; i += 2 {
		s.Remove(tree.NodeID(fmt.Sprint(i)))
	}
	s.Add("0")

	ids := s.IDs()
	assert.Len(t, ids, 51)
	assert.Equal(t, tree.NodeID("1"), ids[0])
	assert.Equal(t, tree.NodeID("0"), ids[50], "re-added ids go last")
	assert.LessOrEqual(t, len(s.order), 2*s.Len()+1)
}

func TestToggleSelect(t *testing.T) {
	t.Run("single selection replaces", func(t *testing.T) {
		s := New()
		s.ToggleSelect("a", false)
		s.ToggleSelect("b", false)
		assert.Equal(t, []tree.NodeID{"b"}, s.Selected())

		assert.True(t, s.ToggleSelect("b", false), "single mode re-selects")
		assert.Equal(t, []tree.NodeID{"b"}, s.Selected())
	})

	t.Run("multiple selection toggles", func(t *testing.T) {
		s := New()
		assert.True(t, s.ToggleSelect("a", true))
		assert.True(t, s.ToggleSelect("b", true))
		assert.False(t, s.ToggleSelect("a", true))
		assert.Equal(t, []tree.NodeID{"b"}, s.Selected())
	})
}

func TestExpandedDoesNotCascade(t *testing.T) {
	s := New()
	s.SetExpanded("1", true)
	s.SetExpanded("3", true)

	s.SetExpanded("1", false)
	assert.False(t, s.IsExpanded("1"))
	assert.True(t, s.IsExpanded("3"), "descendant expansion survives collapse")

	s.SetExpanded("1", true)
	assert.Equal(t, map[tree.NodeID]bool{"1": true, "3": true}, s.ExpandedMap())
}

func TestCheckedAndMatched(t *testing.T) {
	s := New()
	s.SetChecked("2", true)
	s.SetChecked("4", true)
	s.SetChecked("2", false)
	assert.Equal(t, []tree.NodeID{"4"}, s.Checked())
	assert.False(t, s.IsChecked("3"), "no propagation")

	s.SetMatched([]tree.NodeID{"1", "2"})
	s.SetMatched([]tree.NodeID{"3"})
	assert.Equal(t, []tree.NodeID{"3"}, s.Matched())
	assert.True(t, s.IsMatched("3"))
}

func TestResetAndPrune(t *testing.T) {
	s := New()
	s.SetExpanded("1", true)
	s.ToggleSelect("2", false)
	s.SetChecked("gone", true)
	s.SetMatched([]tree.NodeID{"4", "gone"})

	idx := tree.NewIndex(tree.Flatten(testutil.SampleTree()))
	s.Prune(idx)
	snap := s.Snapshot()
	assert.Equal(t, []tree.NodeID{"1"}, snap.Expanded)
	assert.Equal(t, []tree.NodeID{"2"}, snap.Selected)
	assert.Empty(t, snap.Checked)
	assert.Equal(t, []tree.NodeID{"4"}, snap.Matched)

	s.Reset()
	snap = s.Snapshot()
	assert.Empty(t, snap.Expanded)
	assert.Empty(t, snap.Selected)
	assert.Empty(t, snap.Checked)
	assert.Empty(t, snap.Matched)
}

func TestIDSetProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var s IDSet
		model := map[tree.NodeID]bool{}
		var order []tree.NodeID

		ops := rapid.SliceOf(rapid.IntRange(0, 9)).Draw(t, "ops")
		for i, op := range ops {
			id := tree.NodeID(rune('a' + op))
			if rapid.Bool().Draw(t, "add"+string(rune('0'+i%10))) {
				if !model[id] {
					model[id] = true
					order = append(order, id)
				}
				s.Add(id)
			} else {
				if model[id] {
					delete(model, id)
					for j, o := range order {
						if o == id {
							order = append(order[:j], order[j+1:]...)
							break
						}
					}
				}
				s.Remove(id)
			}
		}

		got := s.IDs()
		if s.Len() != len(order) {
			t.Fatalf("Len() = %d, want %d", s.Len(), len(order))
		}
		if len(got) != len(order) {
			t.Fatalf("ids %v, want %v", got, order)
		}
		for i := range got {
			if got[i] != order[i] {
				t.Fatalf("ids %v, want %v", got, order)
			}
		}
	})
}
