package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/npratt/vtree/internal/testutil"
	"github.com/npratt/vtree/internal/tree"
)

func TestCascadeCheck(t *testing.T) {
	idx := tree.NewIndex(tree.Flatten(testutil.SampleTree()))

	t.Run("checking a parent checks descendants", func(t *testing.T) {
		s := New()
		changed := CascadeCheck(s, idx, "3", true)
		assert.ElementsMatch(t, []tree.NodeID{"3", "4"}, changed)
		assert.Equal(t, Unchecked, CheckStateOf(s, idx, "2"))
		assert.Equal(t, Indeterminate, CheckStateOf(s, idx, "1"))
	})

	t.Run("all children checked checks the parent", func(t *testing.T) {
		s := New()
		CascadeCheck(s, idx, "2", true)
		CascadeCheck(s, idx, "4", true)
		assert.True(t, s.IsChecked("3"))
		assert.True(t, s.IsChecked("1"))
		assert.Equal(t, Checked, CheckStateOf(s, idx, "1"))
	})

	t.Run("unchecking a leaf unchecks ancestors", func(t *testing.T) {
		s := New()
		CascadeCheck(s, idx, "1", true)
		assert.Len(t, s.Checked(), 4)

		changed := CascadeCheck(s, idx, "4", false)
		assert.ElementsMatch(t, []tree.NodeID{"4", "3", "1"}, changed)
		assert.True(t, s.IsChecked("2"))
		assert.Equal(t, Indeterminate, CheckStateOf(s, idx, "1"))
	})
}

func TestCheckStateString(t *testing.T) {
	assert.Equal(t, "checked", Checked.String())
	assert.Equal(t, "indeterminate", Indeterminate.String())
	assert.Equal(t, "unchecked", Unchecked.String())
}

func TestCascadeCheckLargeSubtree(t *testing.T) {
	roots := []tree.TreeNode{{ID: "root", Name: "Root", Children: testutil.Generate(8, 5)}}
	idx := tree.NewIndex(tree.Flatten(roots))
	s := New()

	start := time.Now()
	CascadeCheck(s, idx, "root", true)
	changed := CascadeCheck(s, idx, "root", false)
	elapsed := time.Since(start)

	assert.Len(t, changed, idx.Len())
	assert.Empty(t, s.Checked())
	assert.Less(t, elapsed, 2*time.Second, "check and uncheck of %d nodes", idx.Len())
}
