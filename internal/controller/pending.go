package controller

import (
	"fmt"

	"github.com/npratt/vtree/internal/tree"
)

// pendingTree is a tree whose flatten is still with the worker. Calls that
// need the index wait in ops until it is installed.
type pendingTree struct {
	roots []tree.TreeNode
	keep  bool
	ids   map[tree.NodeID]struct{}
	ops   []func(*effects) error
}

func newPendingTree(roots []tree.TreeNode, keep bool) *pendingTree {
	p := &pendingTree{
		roots: roots,
		keep:  keep,
		ids:   make(map[tree.NodeID]struct{}),
	}
	stack := [][]tree.TreeNode{roots}
	for len(stack) > 0 {
		nodes := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, n := range nodes {
			p.ids[n.ID] = struct{}{}
			if len(n.Children) > 0 {
				stack = append(stack, n.Children)
			}
		}
	}
	return p
}

func (p *pendingTree) replay(fx *effects) {
	for _, op := range p.ops {
		// Ids were checked when the call was queued.
		_ = op(fx)
	}
}

// do runs op under the lock, or queues it behind a pending tree.
func (c *Controller) do(id tree.NodeID, op func(*effects) error) error {
	var fx effects
	c.mu.Lock()
	err := c.doLocked(&fx, id, op)
	c.mu.Unlock()
	c.run(&fx)
	return err
}

// doLocked runs op now, or after the pending tree is installed. A non-empty
// id must name a node of the tree op will run against.
func (c *Controller) doLocked(fx *effects, id tree.NodeID, op func(*effects) error) error {
	p := c.pending
	if p == nil {
		return op(fx)
	}
	if id != "" {
		if _, ok := p.ids[id]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownNode, id)
		}
	}
	p.ops = append(p.ops, op)
	return nil
}
