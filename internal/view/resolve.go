// Package view decides which flattened nodes are visible under an expansion
// state and which of those fall inside the scroll viewport.
package view

import "github.com/npratt/vtree/internal/tree"

// Visible is the ordered subsequence of nodes whose ancestors are all
// expanded, plus the total scroll height it occupies.
type Visible struct {
	Nodes       []tree.FlattenedNode `json:"visibleNodes"`
	TotalHeight float64              `json:"totalHeight"`
}

type visibility uint8

const (
	unresolved visibility = iota
	resolving
	shown
	hidden
)

// Resolve filters idx down to the visible nodes. A root is always visible;
// any other node is visible when its parent is visible and expanded.
//
// A node whose parentId is not in the index is treated as a root. A node on a
// cyclic parent chain is treated the same way where the cycle is detected.
// Each node's visibility is decided once, so the pass is linear in the
// number of nodes.
func Resolve(idx *tree.Index, expanded map[tree.NodeID]bool, rowHeight float64) Visible {
	flat := idx.Flat()
	memo := make([]visibility, len(flat))
	var chain []int

	nodes := make([]tree.FlattenedNode, 0, len(flat))
	for i := range flat {
		if memo[i] == unresolved {
			chain = resolveChain(idx, expanded, memo, chain[:0], i)
		}
		if memo[i] == shown {
			n := flat[i]
			n.Visible = true
			nodes = append(nodes, n)
		}
	}

	return Visible{
		Nodes:       nodes,
		TotalHeight: float64(len(nodes)) * rowHeight,
	}
}

// ResolveFlat indexes flat and resolves it in one call.
func ResolveFlat(flat []tree.FlattenedNode, expanded map[tree.NodeID]bool, rowHeight float64) Visible {
	return Resolve(tree.NewIndex(flat), expanded, rowHeight)
}

// resolveChain walks up from position start until it reaches a node whose
// visibility is known, then assigns every node on the way back down.
func resolveChain(idx *tree.Index, expanded map[tree.NodeID]bool, memo []visibility, chain []int, start int) []int {
	flat := idx.Flat()
	cur := start

walk:
	for {
		switch memo[cur] {
		case shown, hidden:
			break walk
		case resolving:
			memo[cur] = shown
			break walk
		}

		n := flat[cur]
		if n.ParentID == "" {
			memo[cur] = shown
			break
		}
		parent, ok := idx.Position(n.ParentID)
		if !ok {
			memo[cur] = shown
			break
		}
		memo[cur] = resolving
		chain = append(chain, cur)
		cur = parent
	}

	parentShown := memo[cur] == shown
	for j := len(chain) - 1; j >= 0; j-- {
		c := chain[j]
		if memo[c] == resolving {
			if parentShown && expanded[flat[c].ParentID] {
				memo[c] = shown
			} else {
				memo[c] = hidden
			}
		}
		parentShown = memo[c] == shown
	}
	return chain
}
