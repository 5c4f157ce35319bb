package tree

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTree is matched by every *ValidationError.
var ErrInvalidTree = errors.New("invalid tree")

// ValidationKind classifies a malformed-input failure.
type ValidationKind string

const (
	KindEmptyID        ValidationKind = "empty_id"
	KindDuplicateID    ValidationKind = "duplicate_id"
	KindCycle          ValidationKind = "cycle"
	KindParentMismatch ValidationKind = "parent_mismatch"
)

// ValidationError describes the first malformed node found in the input.
type ValidationError struct {
	Kind ValidationKind
	ID   NodeID
	// Path is the chain of ancestor ids leading to the offending node.
	Path []NodeID
}

func (e *ValidationError) Error() string {
	path := make([]string, len(e.Path))
	for i, id := range e.Path {
		path[i] = string(id)
	}
	loc := strings.Join(path, "-")
	if loc == "" {
		loc = "<root>"
	}
	return fmt.Sprintf("invalid tree: %s: node %q under %s", e.Kind, e.ID, loc)
}

// Is makes errors.Is(err, ErrInvalidTree) succeed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidTree
}

type validateFrame struct {
	nodes []TreeNode
	pos   int
	id    NodeID
}

// Validate checks that ids are non-empty and unique, that no node is nested
// under itself, and that explicit parentId values agree with the nesting.
// It returns the first problem found as a *ValidationError.
func Validate(roots []TreeNode) error {
	seen := make(map[NodeID]struct{})
	onPath := make(map[NodeID]struct{})
	stack := []validateFrame{{nodes: roots}}

	path := func() []NodeID {
		ids := make([]NodeID, 0, len(stack))
		for _, f := range stack[1:] {
			ids = append(ids, f.id)
		}
		return ids
	}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.pos >= len(top.nodes) {
			delete(onPath, top.id)
			stack = stack[:len(stack)-1]
			continue
		}

		node := top.nodes[top.pos]
		top.pos++
		parent := top.id

		switch {
		case node.ID == "":
			return &ValidationError{Kind: KindEmptyID, ID: node.ID, Path: path()}
		case isOnPath(onPath, node.ID):
			return &ValidationError{Kind: KindCycle, ID: node.ID, Path: path()}
		case isSeen(seen, node.ID):
			return &ValidationError{Kind: KindDuplicateID, ID: node.ID, Path: path()}
		case parent != "" && node.ParentID != "" && node.ParentID != parent:
			return &ValidationError{Kind: KindParentMismatch, ID: node.ID, Path: path()}
		}

		seen[node.ID] = struct{}{}
		if len(node.Children) > 0 {
			onPath[node.ID] = struct{}{}
			stack = append(stack, validateFrame{nodes: node.Children, id: node.ID})
		}
	}

	return nil
}

func isOnPath(onPath map[NodeID]struct{}, id NodeID) bool {
	_, ok := onPath[id]
	return ok
}

func isSeen(seen map[NodeID]struct{}, id NodeID) bool {
	_, ok := seen[id]
	return ok
}
