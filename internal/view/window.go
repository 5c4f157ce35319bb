package view

import (
	"errors"
	"math"

	"github.com/npratt/vtree/internal/tree"
)

// ErrInvalidGeometry is returned for a non-positive row height or a negative
// viewport height.
var ErrInvalidGeometry = errors.New("invalid viewport geometry")

// Range is the slice of visible nodes to render for one scroll position.
// EndIndex is inclusive and is -1 when there is nothing to render.
type Range struct {
	Nodes      []tree.FlattenedNode `json:"visibleNodes"`
	StartIndex int                  `json:"startIndex"`
	EndIndex   int                  `json:"endIndex"`
	OffsetY    float64              `json:"offsetY"`
}

// DefaultBuffer is the overscan used when none is configured: half a
// viewport's worth of rows, rounded up.
func DefaultBuffer(viewportHeight, rowHeight float64) int {
	if rowHeight <= 0 || viewportHeight <= 0 {
		return 0
	}
	return int(math.Ceil(viewportHeight / rowHeight * 0.5))
}

// Window selects the rows of nodes intersecting the viewport, widened by
// buffer rows on each side. A negative buffer selects DefaultBuffer.
//
// Out-of-range scroll positions are clamped: the returned indices always lie
// in [0, len(nodes)-1], and scrolling past the end yields the last row.
func Window(scrollTop, viewportHeight, rowHeight float64, nodes []tree.FlattenedNode, buffer int) (Range, error) {
	if err := (Geometry{ViewportHeight: viewportHeight, RowHeight: rowHeight}).Validate(); err != nil {
		return Range{}, err
	}
	if len(nodes) == 0 {
		return Range{Nodes: []tree.FlattenedNode{}, StartIndex: 0, EndIndex: -1}, nil
	}
	if buffer < 0 {
		buffer = DefaultBuffer(viewportHeight, rowHeight)
	}
	// Negative or NaN scroll renders from the top rather than an empty range.
	if scrollTop < 0 || math.IsNaN(scrollTop) {
		scrollTop = 0
	}

	last := len(nodes) - 1
	start := clampRow(math.Floor(scrollTop/rowHeight)-float64(buffer), last)
	end := clampRow(math.Ceil((scrollTop+viewportHeight)/rowHeight)-1+float64(buffer), last)
	if end < start {
		end = start
	}

	return Range{
		Nodes:      nodes[start : end+1],
		StartIndex: start,
		EndIndex:   end,
		OffsetY:    float64(start) * rowHeight,
	}, nil
}

func clampRow(row float64, last int) int {
	switch {
	case row < 0:
		return 0
	case row > float64(last):
		return last
	default:
		return int(row)
	}
}

// EnsureVisible returns the scroll position closest to scrollTop at which row
// index is entirely inside the viewport.
func EnsureVisible(index int, scrollTop, viewportHeight, rowHeight float64) float64 {
	if index < 0 || rowHeight <= 0 {
		return scrollTop
	}
	top := float64(index) * rowHeight
	bottom := top + rowHeight
	switch {
	case top < scrollTop:
		return top
	case bottom > scrollTop+viewportHeight:
		return max(0, bottom-viewportHeight)
	default:
		return scrollTop
	}
}

// MaxScrollTop is the largest scroll position that still fills the viewport.
func MaxScrollTop(totalHeight, viewportHeight float64) float64 {
	return max(0, totalHeight-viewportHeight)
}
