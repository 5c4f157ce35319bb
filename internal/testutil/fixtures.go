package testutil

import (
	"fmt"

	"github.com/npratt/vtree/internal/tree"
)

// SampleTree returns root(1) -> [child(2), child(3) -> [grandchild(4)]].
// A fresh copy is returned on every call.
func SampleTree() []tree.TreeNode {
	return []tree.TreeNode{{
		ID:   "1",
		Name: "Root",
		Type: tree.TypeDepartment,
		Children: []tree.TreeNode{
			{ID: "2", Name: "Alice", Type: tree.TypeUser},
			{ID: "3", Name: "Platform", Type: tree.TypeDepartment, Children: []tree.TreeNode{
				{ID: "4", Name: "Bob", Type: tree.TypeUser},
			}},
		},
	}}
}

// SampleTreeJSON is SampleTree as an input file, with numeric ids.
var SampleTreeJSON = `[
  {"id": 1, "name": "Root", "type": "department", "children": [
    {"id": 2, "name": "Alice", "type": "user"},
    {"id": 3, "name": "Platform", "type": "department", "children": [
      {"id": 4, "name": "Bob", "type": "user"}
    ]}
  ]}
]`

// SampleTreeYAML is SampleTree as a wrapped YAML input file.
var SampleTreeYAML = `treeData:
  - id: 1
    name: Root
    type: department
    children:
      - id: 2
        name: Alice
        type: user
      - id: 3
        name: Platform
        type: department
        children:
          - id: 4
            name: Bob
            type: user
`

// OrgTree returns a small organisation chart with mixed-case names, used by
// search tests.
func OrgTree() []tree.TreeNode {
	return []tree.TreeNode{
		{ID: "eng", Name: "Engineering", Type: tree.TypeDepartment, Children: []tree.TreeNode{
			{ID: "eng-web", Name: "Web Platform", Type: tree.TypeDepartment, Children: []tree.TreeNode{
				{ID: "u1", Name: "Ada Lovelace", Type: tree.TypeUser},
				{ID: "u2", Name: "Grace Hopper", Type: tree.TypeUser},
			}},
			{ID: "eng-data", Name: "Data", Type: tree.TypeDepartment, Children: []tree.TreeNode{
				{ID: "u3", Name: "Édouard Lucas", Type: tree.TypeUser},
			}},
		}},
		{ID: "ops", Name: "Operations", Type: tree.TypeDepartment, Children: []tree.TreeNode{
			{ID: "u4", Name: "Margaret Hamilton", Type: tree.TypeUser},
		}},
	}
}

// Generate builds a complete tree where every non-leaf has breadth children,
// depth levels deep. Ids are dot-joined sibling positions ("0", "0.1", ...).
func Generate(breadth, depth int) []tree.TreeNode {
	var build func(prefix string, level int) []tree.TreeNode
	build = func(prefix string, level int) []tree.TreeNode {
		if level >= depth {
			return nil
		}
		nodes := make([]tree.TreeNode, breadth)
		for i := range nodes {
			id := fmt.Sprint(i)
			if prefix != "" {
				id = prefix + "." + id
			}
			nodes[i] = tree.TreeNode{
				ID:       tree.NodeID(id),
				Name:     "Node " + id,
				Children: build(id, level+1),
			}
		}
		return nodes
	}
	return build("", 0)
}

// CountNodes returns the number of nodes Generate(breadth, depth) produces.
func CountNodes(breadth, depth int) int {
	total, level := 0, 1
	for range depth {
		level *= breadth
		total += level
	}
	return total
}

// Chain builds a single path of n nodes, each the only child of the previous.
func Chain(n int) []tree.TreeNode {
	if n <= 0 {
		return nil
	}
	node := tree.TreeNode{ID: tree.NodeID(fmt.Sprint(n - 1)), Name: fmt.Sprintf("Level %d", n-1)}
	for i := n - 2; i >= 0; i-- {
		node = tree.TreeNode{
			ID:       tree.NodeID(fmt.Sprint(i)),
			Name:     fmt.Sprintf("Level %d", i),
			Children: []tree.TreeNode{node},
		}
	}
	return []tree.TreeNode{node}
}

// ExpandAll returns an expanded map containing every node of roots.
func ExpandAll(roots []tree.TreeNode) map[tree.NodeID]bool {
	expanded := make(map[tree.NodeID]bool)
	for _, n := range tree.Flatten(roots) {
		expanded[n.ID] = true
	}
	return expanded
}
