package view

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/npratt/vtree/internal/testutil"
	"github.com/npratt/vtree/internal/tree"
)

func TestResolve(t *testing.T) {
	idx := tree.NewIndex(tree.Flatten(testutil.SampleTree()))

	tests := []struct {
		name     string
		expanded map[tree.NodeID]bool
		want     []tree.NodeID
		height   float64
	}{
		{
			name:   "collapsed shows roots only",
			want:   []tree.NodeID{"1"},
			height: 30,
		},
		{
			name:     "expanding root reveals children",
			expanded: map[tree.NodeID]bool{"1": true},
			want:     []tree.NodeID{"1", "2", "3"},
			height:   90,
		},
		{
			name:     "expanding grandparent reveals grandchild",
			expanded: map[tree.NodeID]bool{"1": true, "3": true},
			want:     []tree.NodeID{"1", "2", "3", "4"},
			height:   120,
		},
		{
			name:     "collapsed ancestor hides expanded descendant",
			expanded: map[tree.NodeID]bool{"3": true},
			want:     []tree.NodeID{"1"},
			height:   30,
		},
		{
			name:     "false entries count as collapsed",
			expanded: map[tree.NodeID]bool{"1": false, "3": true},
			want:     []tree.NodeID{"1"},
			height:   30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vis := Resolve(idx, tt.expanded, 30)
			assert.Equal(t, tt.want, testutil.IDs(vis.Nodes))
			assert.Equal(t, tt.height, vis.TotalHeight)
			for _, n := range vis.Nodes {
				assert.True(t, n.Visible)
			}
		})
	}
}

func TestResolveOrphansAreRoots(t *testing.T) {
	flat := []tree.FlattenedNode{
		{ID: "a", Index: 0},
		{ID: "b", ParentID: "missing", Index: 1},
		{ID: "c", ParentID: "b", Index: 2},
	}

	vis := ResolveFlat(flat, nil, 10)
	assert.Equal(t, []tree.NodeID{"a", "b"}, testutil.IDs(vis.Nodes))

	vis = ResolveFlat(flat, map[tree.NodeID]bool{"b": true}, 10)
	assert.Equal(t, []tree.NodeID{"a", "b", "c"}, testutil.IDs(vis.Nodes))
}

func TestResolveCycleTerminates(t *testing.T) {
	flat := []tree.FlattenedNode{
		{ID: "a", ParentID: "c"},
		{ID: "b", ParentID: "a"},
		{ID: "c", ParentID: "b"},
		{ID: "d", ParentID: "c"},
	}
	expanded := map[tree.NodeID]bool{"a": true, "b": true, "c": true}

	vis := ResolveFlat(flat, expanded, 1)
	require.NotEmpty(t, vis.Nodes)
	assert.Contains(t, testutil.IDs(vis.Nodes), tree.NodeID("d"))
}

func TestResolveDeepChain(t *testing.T) {
	roots := testutil.Chain(20000)
	idx := tree.NewIndex(tree.Flatten(roots))

	vis := Resolve(idx, testutil.ExpandAll(roots), 1)
	assert.Len(t, vis.Nodes, 20000)

	vis = Resolve(idx, nil, 1)
	assert.Len(t, vis.Nodes, 1)
}

func TestResolveProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		breadth := rapid.IntRange(1, 4).Draw(t, "breadth")
		depth := rapid.IntRange(0, 4).Draw(t, "depth")
		roots := testutil.Generate(breadth, depth)
		flat := tree.Flatten(roots)
		idx := tree.NewIndex(flat)

		expanded := make(map[tree.NodeID]bool)
		for _, n := range flat {
			if rapid.Bool().Draw(t, "expand-"+string(n.ID)) {
				expanded[n.ID] = true
			}
		}

		vis := Resolve(idx, expanded, 7)
		if vis.TotalHeight != float64(len(vis.Nodes))*7 {
			t.Fatalf("total height %v for %d nodes", vis.TotalHeight, len(vis.Nodes))
		}

		visible := make(map[tree.NodeID]bool)
		last := -1
		for _, n := range vis.Nodes {
			if n.Index <= last {
				t.Fatalf("visible nodes out of flatten order at %s", n.ID)
			}
			last = n.Index
			visible[n.ID] = true
		}

		for _, n := range flat {
			want := true
			for _, a := range idx.Ancestors(n.ID) {
				if !expanded[a] {
					want = false
					break
				}
			}
			if visible[n.ID] != want {
				t.Fatalf("node %s visible=%v, want %v", n.ID, visible[n.ID], want)
			}
		}
	})
}

func TestResolveCollapseRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		breadth := rapid.IntRange(1, 4).Draw(t, "breadth")
		depth := rapid.IntRange(1, 4).Draw(t, "depth")
		roots := testutil.Generate(breadth, depth)
		flat := tree.Flatten(roots)
		idx := tree.NewIndex(flat)

		expanded := make(map[tree.NodeID]bool)
		for _, n := range flat {
			if rapid.Bool().Draw(t, "expand-"+string(n.ID)) {
				expanded[n.ID] = true
			}
		}
		target := rapid.SampledFrom(flat).Draw(t, "target").ID
		expanded[target] = true

		before := testutil.IDs(Resolve(idx, expanded, 1).Nodes)

		expanded[target] = false
		collapsed := testutil.IDs(Resolve(idx, expanded, 1).Nodes)
		was := make(map[tree.NodeID]bool, len(before))
		for _, id := range before {
			was[id] = true
		}
		for _, id := range collapsed {
			if !was[id] {
				t.Fatalf("collapsing %s revealed %s", target, id)
			}
		}
		for _, id := range idx.Descendants(target) {
			if slices.Contains(collapsed, id) {
				t.Fatalf("descendant %s of collapsed %s still visible", id, target)
			}
		}

		expanded[target] = true
		after := testutil.IDs(Resolve(idx, expanded, 1).Nodes)
		if !slices.Equal(before, after) {
			t.Fatalf("re-expanding %s gave %v, want %v", target, after, before)
		}
	})
}
