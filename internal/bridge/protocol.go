// Package bridge runs flatten, visibility, scroll, and search computations
// off the caller's goroutine. Requests and responses cross the boundary as
// JSON lines, to a worker goroutine or a worker process, and each request
// type carries a generation so that only the newest answer is delivered.
package bridge

import (
	"github.com/goccy/go-json"

	"github.com/npratt/vtree/internal/tree"
)

// MessageType names a worker request and its response.
type MessageType string

const (
	TypeInit      MessageType = "init"
	TypeFlatten   MessageType = "flatten"
	TypeCalculate MessageType = "calculate"
	TypeScroll    MessageType = "scroll"
	TypeSearch    MessageType = "search"

	// TypeError marks a response whose data is an ErrorData envelope.
	TypeError MessageType = "error"
)

// Request is one message to the worker.
type Request struct {
	Type MessageType     `json:"type"`
	Gen  uint64          `json:"gen"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is one message from the worker. Gen echoes the request.
type Response struct {
	Type MessageType     `json:"type"`
	Gen  uint64          `json:"gen"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrorData is the payload of a TypeError response.
type ErrorData struct {
	Error        string      `json:"error"`
	OriginalType MessageType `json:"originalType"`
}

// InitPayload is both the init request and its acknowledgement.
type InitPayload struct {
	Initialized bool `json:"initialized"`
}

// FlattenPayload asks the worker to flatten and index a tree. The response
// data is a tree.IndexWire.
type FlattenPayload struct {
	TreeData []tree.TreeNode `json:"treeData"`
}

// CalculatePayload asks for the visible subsequence. The response data is a
// view.Visible.
type CalculatePayload struct {
	FlattenedNodes  []tree.FlattenedNode `json:"flattenedNodes"`
	ExpandedKeysMap map[tree.NodeID]bool `json:"expandedKeysMap"`
	NodeHeight      float64              `json:"nodeHeight"`
}

// ScrollPayload asks for the window at a scroll position. The response data
// is a view.Range. A nil BufferSize selects the default overscan.
type ScrollPayload struct {
	ScrollTop      float64              `json:"scrollTop"`
	ViewportHeight float64              `json:"viewportHeight"`
	NodeHeight     float64              `json:"nodeHeight"`
	VisibleNodes   []tree.FlattenedNode `json:"visibleNodes"`
	BufferSize     *int                 `json:"bufferSize,omitempty"`
}

// SearchPayload asks for the nodes whose names contain SearchText. The
// response data is a search.Result.
type SearchPayload struct {
	FlattenedNodes []tree.FlattenedNode `json:"flattenedNodes"`
	SearchText     string               `json:"searchText"`
}

// Buffer returns a pointer to n, for ScrollPayload.BufferSize literals.
func Buffer(n int) *int {
	return &n
}
