// Package events defines the notifications a tree view emits to its host and
// the channel router that carries them.
package events

import (
	"time"

	"github.com/npratt/vtree/internal/tree"
)

// EventType identifies the category and nature of an event.
type EventType string

const (
	// Interaction events
	EventNodeClick        EventType = "node.click"
	EventSelectionChanged EventType = "selection.changed"
	EventExpandChanged    EventType = "expand.changed"
	EventCheckChanged     EventType = "check.changed"

	// Data events
	EventTreeReplaced  EventType = "tree.replaced"
	EventSearchChanged EventType = "search.changed"
	EventViewChanged   EventType = "view.changed"

	// Compute bridge events
	EventBridgeStateChanged EventType = "bridge.state_changed"
	EventComputeError       EventType = "compute.error"

	// Host-side failures such as a tree file that no longer parses.
	EventError EventType = "error"
)

// LoggedTypes lists the event types written to the session event log. View
// changes fire on every scroll and are left out.
func LoggedTypes() []EventType {
	return []EventType{
		EventNodeClick,
		EventSelectionChanged,
		EventExpandChanged,
		EventCheckChanged,
		EventTreeReplaced,
		EventSearchChanged,
		EventBridgeStateChanged,
		EventComputeError,
		EventError,
	}
}

// Source constants identify the origin of events.
const (
	SourceController = "controller"
	SourceBridge     = "bridge"
	SourceWatcher    = "watcher"
)

// Event is the base interface for all events in the system.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Source() string
}

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	Time      time.Time `json:"timestamp"`
	Src       string    `json:"source"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// Source returns the origin of the event.
func (e BaseEvent) Source() string {
	return e.Src
}

// NodeClickEvent is emitted for every click, before any selection change.
type NodeClickEvent struct {
	BaseEvent
	Node tree.FlattenedNode `json:"node"`
}

// SelectionChangedEvent carries the full selection after a click.
type SelectionChangedEvent struct {
	BaseEvent
	Selected []tree.NodeID      `json:"selected"`
	Node     tree.FlattenedNode `json:"node"`
}

// ExpandChangedEvent is emitted when a node is expanded or collapsed.
// Affected counts the nodes whose visibility may change: the direct children
// on expand, every descendant on collapse.
type ExpandChangedEvent struct {
	BaseEvent
	Node     tree.FlattenedNode `json:"node"`
	Expanded bool               `json:"expanded"`
	Affected int                `json:"affected"`
}

// CheckChangedEvent carries the full checked set after a checkbox change.
type CheckChangedEvent struct {
	BaseEvent
	Checked []tree.NodeID      `json:"checked"`
	Node    tree.FlattenedNode `json:"node"`
	Value   bool               `json:"value"`
}

// TreeReplacedEvent is emitted after new tree data has been flattened and
// all interaction state reset.
type TreeReplacedEvent struct {
	BaseEvent
	Nodes int `json:"nodes"`
	Roots int `json:"roots"`
}

// SearchChangedEvent is emitted when the matched set changes.
type SearchChangedEvent struct {
	BaseEvent
	Query   string        `json:"query"`
	Matched []tree.NodeID `json:"matched"`
}

// ViewChangedEvent is emitted when a new window has been computed.
type ViewChangedEvent struct {
	BaseEvent
	Start       int     `json:"start"`
	End         int     `json:"end"`
	Visible     int     `json:"visible"`
	TotalHeight float64 `json:"total_height"`
}

// BridgeStateChangedEvent is emitted on every compute bridge transition.
type BridgeStateChangedEvent struct {
	BaseEvent
	From string `json:"from"`
	To   string `json:"to"`
}

// ComputeErrorEvent reports a request the worker could not handle.
type ComputeErrorEvent struct {
	BaseEvent
	OriginalType string `json:"original_type"`
	Message      string `json:"message"`
}

// Severity constants for error events.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// ErrorEvent is emitted for host-side failures.
type ErrorEvent struct {
	BaseEvent
	Message  string            `json:"message"`
	Severity string            `json:"severity"`
	Context  map[string]string `json:"context,omitempty"`
}

// NewEvent creates a BaseEvent with the given type and source.
func NewEvent(eventType EventType, source string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
		Src:       source,
	}
}

// NewControllerEvent creates a BaseEvent with the controller as the source.
func NewControllerEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceController)
}

// NewBridgeEvent creates a BaseEvent with the compute bridge as the source.
func NewBridgeEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceBridge)
}
