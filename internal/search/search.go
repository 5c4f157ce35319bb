// Package search tags flattened nodes whose names contain a query.
package search

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/npratt/vtree/internal/tree"
)

// Result holds the matching nodes in flatten order and their ids.
type Result struct {
	Nodes []tree.FlattenedNode `json:"matchedNodes"`
	IDs   []tree.NodeID        `json:"matchedIds"`
}

// Len returns the number of matches.
func (r Result) Len() int {
	return len(r.IDs)
}

// Search returns every node whose name contains query, ignoring case. Names
// and query are NFC-normalized and case-folded before comparison, so "STRASSE"
// matches "Straße". An empty query matches nothing.
//
// Search only tags matches; it neither expands ancestors nor filters the
// tree.
func Search(flat []tree.FlattenedNode, query string) Result {
	res := Result{Nodes: []tree.FlattenedNode{}, IDs: []tree.NodeID{}}
	if query == "" {
		return res
	}

	f := newFolder()
	needle := f.fold(query)
	if needle == "" {
		return res
	}

	for _, n := range flat {
		if strings.Contains(f.fold(n.Name), needle) {
			res.Nodes = append(res.Nodes, n)
			res.IDs = append(res.IDs, n.ID)
		}
	}
	return res
}

// folder wraps a Caser, which carries state and is not safe to share.
type folder struct {
	caser cases.Caser
}

func newFolder() *folder {
	return &folder{caser: cases.Fold()}
}

func (f *folder) fold(s string) string {
	return f.caser.String(norm.NFC.String(s))
}
