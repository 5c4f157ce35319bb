package search

import (
	"slices"

	"github.com/sahilm/fuzzy"

	"github.com/npratt/vtree/internal/tree"
)

// Ranked is a fuzzy match with its score and the byte offsets of the
// matched characters in the node name.
type Ranked struct {
	Node    tree.FlattenedNode `json:"node"`
	Score   int                `json:"score"`
	Matched []int              `json:"matched,omitempty"`
}

type nameSource []tree.FlattenedNode

func (s nameSource) String(i int) string { return s[i].Name }
func (s nameSource) Len() int            { return len(s) }

// Fuzzy ranks nodes whose names contain the characters of query in order,
// best score first. Ties keep flatten order.
func Fuzzy(flat []tree.FlattenedNode, query string) []Ranked {
	if query == "" {
		return nil
	}
	matches := fuzzy.FindFrom(query, nameSource(flat))
	out := make([]Ranked, len(matches))
	for i, m := range matches {
		out[i] = Ranked{
			Node:    flat[m.Index],
			Score:   m.Score,
			Matched: m.MatchedIndexes,
		}
	}
	return out
}

// FuzzyResult converts ranked matches into a Result in flatten order, so a
// fuzzy query can drive the same matched state as a substring query.
func FuzzyResult(ranked []Ranked) Result {
	res := Result{Nodes: []tree.FlattenedNode{}, IDs: []tree.NodeID{}}
	byIndex := make(map[int]tree.FlattenedNode, len(ranked))
	for _, r := range ranked {
		byIndex[r.Node.Index] = r.Node
	}
	order := make([]int, 0, len(byIndex))
	for i := range byIndex {
		order = append(order, i)
	}
	slices.Sort(order)
	for _, i := range order {
		res.Nodes = append(res.Nodes, byIndex[i])
		res.IDs = append(res.IDs, byIndex[i].ID)
	}
	return res
}
