// Package tree converts nested tree data into a flat, index-addressable
// sequence and provides the lookup structures the rest of vtree works from.
package tree

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// NodeID identifies a node across the whole tree (not just among siblings).
// Input ids may be strings or numbers; numbers keep their decimal text.
type NodeID string

// UnmarshalJSON accepts both string and numeric ids.
func (id *NodeID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode node id: %w", err)
		}
		*id = NodeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode node id %s: %w", b, err)
	}
	*id = NodeID(n.String())
	return nil
}

// UnmarshalYAML accepts any scalar as an id.
func (id *NodeID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("decode node id: line %d: expected scalar", value.Line)
	}
	if value.Tag == "!!null" {
		*id = ""
		return nil
	}
	*id = NodeID(value.Value)
	return nil
}

// String returns the id text.
func (id NodeID) String() string {
	return string(id)
}

// NodeType is the optional domain type of a node.
type NodeType string

// Known node types. Other values are preserved as-is.
const (
	TypeDepartment NodeType = "department"
	TypeUser       NodeType = "user"
)

// TreeNode is a node of the nested input tree.
type TreeNode struct {
	ID       NodeID     `json:"id" yaml:"id"`
	Name     string     `json:"name" yaml:"name"`
	ParentID NodeID     `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	Children []TreeNode `json:"children,omitempty" yaml:"children,omitempty"`
	IsLeaf   *bool      `json:"isLeaf,omitempty" yaml:"isLeaf,omitempty"`
	Type     NodeType   `json:"type,omitempty" yaml:"type,omitempty"`
}

// FlattenedNode is one record of the flattened sequence. Parent/child
// relationships are id references resolved through an Index.
type FlattenedNode struct {
	ID       NodeID   `json:"id"`
	Name     string   `json:"name"`
	ParentID NodeID   `json:"parentId"` // empty for roots
	ChildIDs []NodeID `json:"childIds,omitempty"`
	Type     NodeType `json:"type,omitempty"`
	Level    int      `json:"level"`
	Index    int      `json:"index"`
	PathKey  string   `json:"pathKey"`
	IsLeaf   bool     `json:"isLeaf"`
	Visible  bool     `json:"visible"`
}

// IsRoot reports whether the node was emitted without a parent.
func (n FlattenedNode) IsRoot() bool {
	return n.ParentID == ""
}

// Bool returns a pointer to b, for setting TreeNode.IsLeaf in literals.
func Bool(b bool) *bool {
	return &b
}
