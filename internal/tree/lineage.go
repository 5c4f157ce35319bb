package tree

// Ancestors returns the parent chain of id, nearest first. The walk stops at
// a root, at a parent id missing from the index, or after Len() steps on a
// cyclic chain.
func (idx *Index) Ancestors(id NodeID) []NodeID {
	node, ok := idx.Node(id)
	if !ok {
		return nil
	}

	var chain []NodeID
	for steps := 0; node.ParentID != "" && steps < idx.Len(); steps++ {
		parent, ok := idx.Node(node.ParentID)
		if !ok {
			break
		}
		chain = append(chain, parent.ID)
		node = parent
	}
	return chain
}

// Descendants returns every descendant of id in pre-order.
func (idx *Index) Descendants(id NodeID) []NodeID {
	var out []NodeID
	visited := make(map[NodeID]struct{})
	stack := reversed(idx.Children(id))
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, dup := visited[cur]; dup {
			continue
		}
		visited[cur] = struct{}{}
		out = append(out, cur)
		stack = append(stack, reversed(idx.Children(cur))...)
	}
	return out
}

// AffectedByToggle returns the nodes whose visibility may change when id is
// expanded (its direct children) or collapsed (all of its descendants).
func (idx *Index) AffectedByToggle(id NodeID, expanding bool) []NodeID {
	if expanding {
		return append([]NodeID(nil), idx.Children(id)...)
	}
	return idx.Descendants(id)
}

// reversed returns a reversed copy of ids.
func reversed(ids []NodeID) []NodeID {
	out := make([]NodeID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}
