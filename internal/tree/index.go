package tree

// Index is the authoritative flattened representation plus its lookup maps.
// It is built wholesale from a flattened sequence and never mutated after.
type Index struct {
	flat        []FlattenedNode
	nodeMap     map[NodeID]int
	childrenMap map[NodeID][]NodeID
}

// NewIndex builds the id and parent->children maps in a single pass over
// flat. Duplicate ids resolve to the last occurrence. Nodes without a parent
// are not keys of the children map.
func NewIndex(flat []FlattenedNode) *Index {
	idx := &Index{
		flat:        flat,
		nodeMap:     make(map[NodeID]int, len(flat)),
		childrenMap: make(map[NodeID][]NodeID),
	}
	for i, n := range flat {
		idx.nodeMap[n.ID] = i
		if n.ParentID != "" {
			idx.childrenMap[n.ParentID] = append(idx.childrenMap[n.ParentID], n.ID)
		}
	}
	return idx
}

// Build validates, flattens and indexes roots.
func Build(roots []TreeNode) (*Index, error) {
	flat, err := FlattenChecked(roots)
	if err != nil {
		return nil, err
	}
	return NewIndex(flat), nil
}

// Flat returns the flattened sequence in pre-order. Callers must not modify it.
func (idx *Index) Flat() []FlattenedNode {
	if idx == nil {
		return nil
	}
	return idx.flat
}

// Len returns the number of flattened records.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.flat)
}

// Node looks up a node by id.
func (idx *Index) Node(id NodeID) (FlattenedNode, bool) {
	if idx == nil {
		return FlattenedNode{}, false
	}
	i, ok := idx.nodeMap[id]
	if !ok {
		return FlattenedNode{}, false
	}
	return idx.flat[i], true
}

// Position returns the node's position in Flat.
func (idx *Index) Position(id NodeID) (int, bool) {
	if idx == nil {
		return 0, false
	}
	i, ok := idx.nodeMap[id]
	return i, ok
}

// Has reports whether id is a node of this index.
func (idx *Index) Has(id NodeID) bool {
	if idx == nil {
		return false
	}
	_, ok := idx.nodeMap[id]
	return ok
}

// Children returns the ordered child ids of id.
func (idx *Index) Children(id NodeID) []NodeID {
	if idx == nil {
		return nil
	}
	return idx.childrenMap[id]
}

// Roots returns the ids of nodes emitted without a parent, in order.
func (idx *Index) Roots() []NodeID {
	var roots []NodeID
	for _, n := range idx.Flat() {
		if n.IsRoot() {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// IndexWire is the cross-boundary form of an Index: maps are plain
// key->value objects rather than live structures.
type IndexWire struct {
	Flattened []FlattenedNode          `json:"flattened"`
	NodeMap   map[NodeID]FlattenedNode `json:"nodeMap"`
	IDMap     map[NodeID][]NodeID      `json:"idMap"`
}

// Wire converts the index into its transferable form.
func (idx *Index) Wire() IndexWire {
	w := IndexWire{
		Flattened: idx.Flat(),
		NodeMap:   make(map[NodeID]FlattenedNode, idx.Len()),
		IDMap:     make(map[NodeID][]NodeID, len(idx.childrenMap)),
	}
	if w.Flattened == nil {
		w.Flattened = []FlattenedNode{}
	}
	for id, i := range idx.nodeMapOrEmpty() {
		w.NodeMap[id] = idx.flat[i]
	}
	for id, children := range idx.childrenMapOrEmpty() {
		w.IDMap[id] = append([]NodeID(nil), children...)
	}
	return w
}

// FromWire rebuilds an Index from a transferred one. The flattened sequence
// is authoritative; the transferred maps are re-derived from it.
func FromWire(w IndexWire) *Index {
	return NewIndex(w.Flattened)
}

func (idx *Index) nodeMapOrEmpty() map[NodeID]int {
	if idx == nil {
		return nil
	}
	return idx.nodeMap
}

func (idx *Index) childrenMapOrEmpty() map[NodeID][]NodeID {
	if idx == nil {
		return nil
	}
	return idx.childrenMap
}
