package tree

// frame is one level of the explicit traversal stack used by Flatten.
type frame struct {
	nodes  []TreeNode
	pos    int
	parent NodeID
	level  int
	path   string
}

// Flatten converts roots into a depth-first, pre-order sequence: every node
// immediately precedes its first child's subtree, which precedes its next
// sibling's subtree.
//
// Each record's Index is its position in the output. The input is not
// modified. Behavior is undefined for cyclic input; use FlattenChecked when
// the data has not been validated.
func Flatten(roots []TreeNode) []FlattenedNode {
	result := make([]FlattenedNode, 0, Size(roots, 1<<16))
	stack := []frame{{nodes: roots}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.pos >= len(top.nodes) {
			stack = stack[:len(stack)-1]
			continue
		}

		node := top.nodes[top.pos]
		top.pos++

		pathKey := string(node.ID)
		if top.path != "" {
			pathKey = top.path + "-" + string(node.ID)
		}

		isLeaf := len(node.Children) == 0
		if node.IsLeaf != nil {
			isLeaf = *node.IsLeaf
		}

		var childIDs []NodeID
		if len(node.Children) > 0 {
			childIDs = make([]NodeID, len(node.Children))
			for i, c := range node.Children {
				childIDs[i] = c.ID
			}
		}

		result = append(result, FlattenedNode{
			ID:       node.ID,
			Name:     node.Name,
			ParentID: top.parent,
			ChildIDs: childIDs,
			Type:     node.Type,
			Level:    top.level,
			Index:    len(result),
			PathKey:  pathKey,
			IsLeaf:   isLeaf,
			Visible:  true,
		})

		if len(node.Children) > 0 {
			// top may be invalidated by append; capture values first
			level := top.level + 1
			stack = append(stack, frame{
				nodes:  node.Children,
				parent: node.ID,
				level:  level,
				path:   pathKey,
			})
		}
	}

	return result
}

// FlattenChecked validates roots before flattening them.
func FlattenChecked(roots []TreeNode) ([]FlattenedNode, error) {
	if err := Validate(roots); err != nil {
		return nil, err
	}
	return Flatten(roots), nil
}

// Size counts the nodes of roots. With limit > 0 it stops once the count
// reaches limit, so callers asking "at least N?" never walk a huge tree.
func Size(roots []TreeNode, limit int) int {
	n := 0
	stack := [][]TreeNode{roots}
	for len(stack) > 0 && (limit <= 0 || n < limit) {
		nodes := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n += len(nodes)
		for _, c := range nodes {
			if len(c.Children) > 0 {
				stack = append(stack, c.Children)
			}
		}
	}
	return n
}
