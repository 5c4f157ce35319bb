package search

import "github.com/npratt/vtree/internal/tree"

// Reveal returns the ancestors that must be expanded for every id in ids to
// become visible, outermost first and without duplicates. Ids missing from
// the index are ignored.
func Reveal(idx *tree.Index, ids []tree.NodeID) []tree.NodeID {
	seen := make(map[tree.NodeID]struct{})
	var out []tree.NodeID
	for _, id := range ids {
		chain := idx.Ancestors(id)
		for i := len(chain) - 1; i >= 0; i-- {
			a := chain[i]
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}
