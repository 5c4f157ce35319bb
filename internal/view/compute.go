package view

import (
	"fmt"
	"math"

	"github.com/npratt/vtree/internal/tree"
)

// Geometry is the scroll state of the viewport.
type Geometry struct {
	ScrollTop      float64 `json:"scrollTop" yaml:"scroll_top"`
	ViewportHeight float64 `json:"viewportHeight" yaml:"viewport_height"`
	RowHeight      float64 `json:"nodeHeight" yaml:"row_height"`
	// Buffer is the overscan row count; negative selects DefaultBuffer.
	Buffer int `json:"bufferSize" yaml:"buffer"`
}

// Validate reports geometry Window would reject.
func (g Geometry) Validate() error {
	if g.RowHeight <= 0 || math.IsNaN(g.RowHeight) {
		return fmt.Errorf("%w: row height %v", ErrInvalidGeometry, g.RowHeight)
	}
	if g.ViewportHeight < 0 || math.IsNaN(g.ViewportHeight) {
		return fmt.Errorf("%w: viewport height %v", ErrInvalidGeometry, g.ViewportHeight)
	}
	return nil
}

// Slice is everything a host needs to draw one frame.
type Slice struct {
	VisibleNodes []tree.FlattenedNode `json:"visibleNodes"`
	RenderNodes  []tree.FlattenedNode `json:"renderNodes"`
	TotalHeight  float64              `json:"totalHeight"`
	OffsetY      float64              `json:"offsetY"`
	StartIndex   int                  `json:"startIndex"`
	EndIndex     int                  `json:"endIndex"`
}
