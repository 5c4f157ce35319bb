// Package controller is the host-facing core of a virtual tree. It owns the
// flattened index and the interaction state, recomputes the visible window
// after every change, and reports what changed on an event router.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/npratt/vtree/internal/bridge"
	"github.com/npratt/vtree/internal/config"
	"github.com/npratt/vtree/internal/events"
	"github.com/npratt/vtree/internal/search"
	"github.com/npratt/vtree/internal/state"
	"github.com/npratt/vtree/internal/tree"
	"github.com/npratt/vtree/internal/view"
)

// ErrUnknownNode is returned for ids not in the current tree.
var ErrUnknownNode = errors.New("unknown node")

// Controller coordinates one tree view. All methods are safe for concurrent
// use; results computed by the worker are applied on the bridge's goroutine.
//
// Every mutation recomputes what it affects before returning when the work
// runs synchronously. With a worker the new window arrives later and is
// announced with a view.changed event; Settle waits for it.
type Controller struct {
	cfg    *config.Config
	router *events.Router
	bridge *bridge.Bridge // nil when the worker is disabled
	logger *slog.Logger

	mu     sync.Mutex
	idx    *tree.Index
	store  *state.Store
	geom   view.Geometry
	query  string
	vis    view.Visible
	visPos map[tree.NodeID]int
	slice  view.Slice
	// target is scrolled into view as soon as it is visible.
	target tree.NodeID

	// pending is the tree the worker is flattening, if any.
	pending *pendingTree

	seq      uint64
	inflight map[bridge.MessageType]uint64
	idle     chan struct{}
}

// New creates a Controller. A nil cfg uses config.Default(). When the worker
// is enabled in cfg and spawner is non-nil, computations on trees of at least
// cfg.Worker.Threshold nodes go through a compute bridge started by Start.
func New(cfg *config.Config, spawner bridge.Spawner, router *events.Router, logger *slog.Logger) *Controller {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	idle := make(chan struct{})
	close(idle)

	c := &Controller{
		cfg:    cfg,
		router: router,
		logger: logger,
		idx:    tree.NewIndex(nil),
		store:  state.New(),
		geom: view.Geometry{
			ViewportHeight: cfg.View.ViewportHeight,
			RowHeight:      cfg.View.RowHeight,
			Buffer:         cfg.View.Buffer,
		},
		slice:    view.Slice{EndIndex: -1},
		inflight: make(map[bridge.MessageType]uint64),
		idle:     idle,
	}
	if cfg.Worker.Enabled && spawner != nil {
		c.bridge = bridge.New(bridge.Options{
			Spawner:       spawner,
			InitTimeout:   cfg.Worker.InitTimeout,
			OnStateChange: c.bridgeStateChanged,
			Logger:        logger.With("component", "bridge"),
		})
	}
	return c
}

// Start starts the compute worker, if any. Until it is ready, requests run
// synchronously.
func (c *Controller) Start(ctx context.Context) error {
	if c.bridge == nil {
		return nil
	}
	return c.bridge.Start(ctx)
}

// WaitReady blocks until the worker has started or fallen back to
// synchronous execution. Without a worker it returns immediately.
func (c *Controller) WaitReady(ctx context.Context) (bridge.State, error) {
	if c.bridge == nil {
		return bridge.StateUnavailable, nil
	}
	return c.bridge.WaitReady(ctx)
}

// Close stops the worker. Results still in flight are discarded; a tree
// still being flattened by the worker is flattened here instead.
func (c *Controller) Close() error {
	var err error
	if c.bridge != nil {
		err = c.bridge.Close()
	}
	var fx effects
	c.mu.Lock()
	c.clearInflightLocked()
	if c.pending != nil {
		c.flattenPendingLocked(&fx)
	}
	c.mu.Unlock()
	c.run(&fx)
	return err
}

// Settle blocks until every submitted computation has been applied.
func (c *Controller) Settle(ctx context.Context) error {
	for {
		c.mu.Lock()
		if len(c.inflight) == 0 {
			c.mu.Unlock()
			return nil
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// BridgeStats returns the worker traffic counters, zero without a worker.
func (c *Controller) BridgeStats() bridge.Stats {
	if c.bridge == nil {
		return bridge.Stats{}
	}
	return c.bridge.Stats()
}

// SetTree replaces the tree. Interaction state, the search query, and the
// scroll position are reset, and results computed for the previous tree are
// discarded. Invalid trees are rejected without touching the current one.
//
// A tree sent to the worker is installed when its flatten arrives. Calls made
// in the meantime are checked against the new tree's ids and applied, in
// order, once it is installed.
func (c *Controller) SetTree(roots []tree.TreeNode) error {
	return c.setTree(roots, false)
}

// Reload replaces the tree with a new version of the same data. Unlike
// SetTree it keeps the interaction state of ids that are still present,
// re-runs the search query, and keeps the scroll position. The previous tree
// stays visible until the new one is installed.
func (c *Controller) Reload(roots []tree.TreeNode) error {
	return c.setTree(roots, true)
}

func (c *Controller) setTree(roots []tree.TreeNode, keep bool) error {
	if err := tree.Validate(roots); err != nil {
		return fmt.Errorf("set tree: %w", err)
	}

	var fx effects
	c.mu.Lock()
	c.resetLocked(keep)
	if c.useBridgeLocked(tree.Size(roots, c.cfg.Worker.Threshold)) {
		c.pending = newPendingTree(roots, keep)
		c.enqueueFallbackLocked(&fx, bridge.TypeFlatten, bridge.FlattenPayload{TreeData: roots},
			func(r bridge.Result, fx *effects) {
				var wire tree.IndexWire
				if err := r.Decode(&wire); err != nil {
					c.decodeFailedLocked(fx, r, err)
					c.flattenPendingLocked(fx)
					return
				}
				c.installLocked(fx, tree.FromWire(wire), keep)
			},
			c.flattenPendingLocked)
	} else {
		c.installLocked(&fx, tree.NewIndex(tree.Flatten(roots)), keep)
	}
	c.mu.Unlock()

	c.run(&fx)
	return nil
}

// Scroll moves the viewport. Positions outside the content are clamped.
func (c *Controller) Scroll(scrollTop float64) {
	_ = c.do("", func(fx *effects) error {
		c.scrollLocked(fx, scrollTop)
		return nil
	})
}

// ScrollBy moves the viewport by delta.
func (c *Controller) ScrollBy(delta float64) {
	_ = c.do("", func(fx *effects) error {
		c.scrollLocked(fx, c.geom.ScrollTop+delta)
		return nil
	})
}

func (c *Controller) scrollLocked(fx *effects, top float64) {
	c.target = ""
	c.geom.ScrollTop = c.clampScrollLocked(top)
	c.windowLocked(fx)
}

// Resize changes the viewport height.
func (c *Controller) Resize(viewportHeight float64) error {
	c.mu.Lock()
	g := c.geom
	c.mu.Unlock()
	g.ViewportHeight = viewportHeight
	return c.SetGeometry(g)
}

// SetGeometry replaces the whole viewport geometry. A row height change
// recomputes visibility, since the total height depends on it.
func (c *Controller) SetGeometry(g view.Geometry) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return c.do("", func(fx *effects) error {
		rowChanged := g.RowHeight != c.geom.RowHeight
		c.geom = g
		if rowChanged {
			c.recomputeLocked(fx)
		} else {
			c.geom.ScrollTop = c.clampScrollLocked(g.ScrollTop)
			c.windowLocked(fx)
		}
		return nil
	})
}

// ScrollTo scrolls the least distance that shows id. A node hidden under a
// collapsed ancestor is scrolled to once it becomes visible.
func (c *Controller) ScrollTo(id tree.NodeID) error {
	return c.do(id, func(fx *effects) error {
		if _, ok := c.idx.Node(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownNode, id)
		}
		c.target = id
		if c.scrollToTargetLocked() {
			c.windowLocked(fx)
		}
		return nil
	})
}

// Click selects id, or toggles it in multiple-selection mode. It emits
// node.click followed by selection.changed.
func (c *Controller) Click(id tree.NodeID) error {
	return c.do(id, func(fx *effects) error {
		node, ok := c.idx.Node(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownNode, id)
		}
		c.store.ToggleSelect(id, c.cfg.Selection.Multiple)
		fx.emit(&events.NodeClickEvent{
			BaseEvent: events.NewControllerEvent(events.EventNodeClick),
			Node:      node,
		})
		fx.emit(&events.SelectionChangedEvent{
			BaseEvent: events.NewControllerEvent(events.EventSelectionChanged),
			Selected:  c.store.Selected(),
			Node:      node,
		})
		return nil
	})
}

// ToggleExpand flips the expansion of id and returns the new value. While a
// tree is pending the flip happens on install and the value returned is the
// one expected from the current state.
func (c *Controller) ToggleExpand(id tree.NodeID) (bool, error) {
	var fx effects
	c.mu.Lock()
	expanded := !c.store.IsExpanded(id)
	err := c.doLocked(&fx, id, func(fx *effects) error {
		return c.setExpandedLocked(fx, id, !c.store.IsExpanded(id))
	})
	c.mu.Unlock()
	c.run(&fx)
	if err != nil {
		return false, err
	}
	return expanded, nil
}

// SetExpanded expands or collapses id. Collapsing keeps the expansion state
// of descendants. Leaves cannot be expanded; asking is a no-op.
func (c *Controller) SetExpanded(id tree.NodeID, expanded bool) error {
	return c.do(id, func(fx *effects) error {
		return c.setExpandedLocked(fx, id, expanded)
	})
}

func (c *Controller) setExpandedLocked(fx *effects, id tree.NodeID, expanded bool) error {
	node, ok := c.idx.Node(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if (node.IsLeaf && expanded) || c.store.IsExpanded(id) == expanded {
		return nil
	}
	c.store.SetExpanded(id, expanded)
	fx.emit(&events.ExpandChangedEvent{
		BaseEvent: events.NewControllerEvent(events.EventExpandChanged),
		Node:      node,
		Expanded:  expanded,
		Affected:  len(c.idx.AffectedByToggle(id, expanded)),
	})
	c.recomputeLocked(fx)
	return nil
}

// ExpandAll expands every node that has children.
func (c *Controller) ExpandAll() {
	_ = c.do("", func(fx *effects) error {
		var ids []tree.NodeID
		for _, n := range c.idx.Flat() {
			if !n.IsLeaf {
				ids = append(ids, n.ID)
			}
		}
		c.store.ExpandAll(ids)
		c.recomputeLocked(fx)
		return nil
	})
}

// CollapseAll collapses every node.
func (c *Controller) CollapseAll() {
	_ = c.do("", func(fx *effects) error {
		c.store.CollapseAll()
		c.geom.ScrollTop = 0
		c.recomputeLocked(fx)
		return nil
	})
}

// SetChecked checks or unchecks id. With check.cascade the change spreads
// to descendants and ancestors are recomputed from their children.
func (c *Controller) SetChecked(id tree.NodeID, checked bool) error {
	return c.do(id, func(fx *effects) error {
		return c.setCheckedLocked(fx, id, checked)
	})
}

func (c *Controller) setCheckedLocked(fx *effects, id tree.NodeID, checked bool) error {
	node, ok := c.idx.Node(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if c.cfg.Check.Cascade {
		state.CascadeCheck(c.store, c.idx, id, checked)
	} else {
		c.store.SetChecked(id, checked)
	}
	fx.emit(&events.CheckChangedEvent{
		BaseEvent: events.NewControllerEvent(events.EventCheckChanged),
		Checked:   c.store.Checked(),
		Node:      node,
		Value:     checked,
	})
	return nil
}

// ToggleChecked flips the checkbox of id and returns the new value, with the
// same pending-tree behavior as ToggleExpand.
func (c *Controller) ToggleChecked(id tree.NodeID) (bool, error) {
	var fx effects
	c.mu.Lock()
	checked := !c.store.IsChecked(id)
	err := c.doLocked(&fx, id, func(fx *effects) error {
		return c.setCheckedLocked(fx, id, !c.store.IsChecked(id))
	})
	c.mu.Unlock()
	c.run(&fx)
	if err != nil {
		return false, err
	}
	return checked, nil
}

// Search replaces the matched set with the nodes whose names contain query.
// An empty query clears it. With search.reveal, ancestors of the matches are
// expanded and the first match is scrolled into view.
func (c *Controller) Search(query string) {
	var fx effects
	c.mu.Lock()
	c.query = query
	_ = c.doLocked(&fx, "", func(fx *effects) error {
		c.searchLocked(fx, query)
		return nil
	})
	c.mu.Unlock()
	c.run(&fx)
}

func (c *Controller) searchLocked(fx *effects, query string) {
	c.query = query
	switch {
	case query == "":
		c.applyMatchesLocked(fx, query, nil)
	case c.cfg.Search.Fuzzy:
		res := search.FuzzyResult(search.Fuzzy(c.idx.Flat(), query))
		c.applyMatchesLocked(fx, query, res.IDs)
	case c.useBridgeLocked(c.idx.Len()):
		payload := bridge.SearchPayload{FlattenedNodes: c.idx.Flat(), SearchText: query}
		c.enqueueLocked(fx, bridge.TypeSearch, payload, func(r bridge.Result, fx *effects) {
			var res search.Result
			if err := r.Decode(&res); err != nil {
				c.decodeFailedLocked(fx, r, err)
				return
			}
			c.applyMatchesLocked(fx, query, res.IDs)
		})
	default:
		c.applyMatchesLocked(fx, query, search.Search(c.idx.Flat(), query).IDs)
	}
}

// View returns the most recently computed window.
func (c *Controller) View() view.Slice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slice
}

// Geometry returns the current viewport geometry.
func (c *Controller) Geometry() view.Geometry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.geom
}

// Index returns the current index. It is never mutated, only replaced.
func (c *Controller) Index() *tree.Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idx
}

// Query returns the current search query.
func (c *Controller) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Snapshot returns a copy of the interaction state.
func (c *Controller) Snapshot() state.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Snapshot()
}

// Flags is the interaction state of one node, for rendering.
type Flags struct {
	Expanded bool
	Selected bool
	Checked  state.CheckState
	Matched  bool
}

// Flags returns the interaction state of id.
func (c *Controller) Flags(id tree.NodeID) Flags {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := Flags{
		Expanded: c.store.IsExpanded(id),
		Selected: c.store.IsSelected(id),
		Matched:  c.store.IsMatched(id),
	}
	if c.cfg.Check.Cascade {
		f.Checked = state.CheckStateOf(c.store, c.idx, id)
	} else if c.store.IsChecked(id) {
		f.Checked = state.Checked
	}
	return f
}

// Position returns the row of id among the visible nodes.
func (c *Controller) Position(id tree.NodeID) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.visPos[id]
	return pos, ok
}

// resetLocked forgets everything derived from the previous tree. With keep
// the interaction state, query, scroll position and current view survive.
func (c *Controller) resetLocked(keep bool) {
	if c.bridge != nil {
		c.bridge.Supersede(bridge.TypeFlatten, bridge.TypeCalculate, bridge.TypeScroll, bridge.TypeSearch)
	}
	c.clearInflightLocked()
	c.pending = nil
	c.target = ""
	if keep {
		return
	}
	c.idx = tree.NewIndex(nil)
	c.store.Reset()
	c.query = ""
	c.geom.ScrollTop = 0
	c.vis = view.Visible{}
	c.visPos = nil
	c.slice = view.Slice{EndIndex: -1}
}

// installLocked makes idx current and replays the calls that waited for it.
// With keep, state for ids missing from idx is dropped and the search query
// is matched against the new nodes.
func (c *Controller) installLocked(fx *effects, idx *tree.Index, keep bool) {
	p := c.pending
	c.pending = nil
	c.idx = idx
	if keep {
		c.store.Prune(idx)
	}
	fx.emit(&events.TreeReplacedEvent{
		BaseEvent: events.NewControllerEvent(events.EventTreeReplaced),
		Nodes:     idx.Len(),
		Roots:     len(idx.Roots()),
	})
	c.recomputeLocked(fx)
	if keep && c.query != "" {
		c.searchLocked(fx, c.query)
	}
	if p != nil {
		p.replay(fx)
	}
}

// flattenPendingLocked installs the pending tree without the worker.
func (c *Controller) flattenPendingLocked(fx *effects) {
	if c.pending == nil {
		return
	}
	c.logger.Warn("flattening tree in process", "roots", len(c.pending.roots))
	c.installLocked(fx, tree.NewIndex(tree.Flatten(c.pending.roots)), c.pending.keep)
}


// recomputeLocked resolves visibility and then windows the result.
func (c *Controller) recomputeLocked(fx *effects) {
	if c.useBridgeLocked(c.idx.Len()) {
		payload := bridge.CalculatePayload{
			FlattenedNodes:  c.idx.Flat(),
			ExpandedKeysMap: c.store.ExpandedMap(),
			NodeHeight:      c.geom.RowHeight,
		}
		c.enqueueLocked(fx, bridge.TypeCalculate, payload, func(r bridge.Result, fx *effects) {
			var vis view.Visible
			if err := r.Decode(&vis); err != nil {
				c.decodeFailedLocked(fx, r, err)
				return
			}
			c.setVisibleLocked(fx, vis)
		})
		return
	}
	c.setVisibleLocked(fx, view.Resolve(c.idx, c.store.ExpandedMap(), c.geom.RowHeight))
}

func (c *Controller) setVisibleLocked(fx *effects, vis view.Visible) {
	c.vis = vis
	c.visPos = make(map[tree.NodeID]int, len(vis.Nodes))
	for i, n := range vis.Nodes {
		c.visPos[n.ID] = i
	}
	if !c.scrollToTargetLocked() {
		c.geom.ScrollTop = c.clampScrollLocked(c.geom.ScrollTop)
	}
	c.windowLocked(fx)
}

// windowLocked cuts the render range out of the current visible list.
func (c *Controller) windowLocked(fx *effects) {
	if c.useBridgeLocked(c.idx.Len()) {
		payload := bridge.ScrollPayload{
			ScrollTop:      c.geom.ScrollTop,
			ViewportHeight: c.geom.ViewportHeight,
			NodeHeight:     c.geom.RowHeight,
			VisibleNodes:   c.vis.Nodes,
		}
		if c.geom.Buffer >= 0 {
			payload.BufferSize = bridge.Buffer(c.geom.Buffer)
		}
		c.enqueueLocked(fx, bridge.TypeScroll, payload, func(r bridge.Result, fx *effects) {
			var rng view.Range
			if err := r.Decode(&rng); err != nil {
				c.decodeFailedLocked(fx, r, err)
				return
			}
			c.setRangeLocked(fx, rng)
		})
		return
	}

	rng, err := view.Window(c.geom.ScrollTop, c.geom.ViewportHeight, c.geom.RowHeight, c.vis.Nodes, c.geom.Buffer)
	if err != nil {
		c.logger.Error("window failed", "error", err)
		fx.emit(&events.ErrorEvent{
			BaseEvent: events.NewControllerEvent(events.EventError),
			Message:   err.Error(),
			Severity:  events.SeverityError,
		})
		return
	}
	c.setRangeLocked(fx, rng)
}

func (c *Controller) setRangeLocked(fx *effects, rng view.Range) {
	c.slice = view.Slice{
		VisibleNodes: c.vis.Nodes,
		RenderNodes:  rng.Nodes,
		TotalHeight:  c.vis.TotalHeight,
		OffsetY:      rng.OffsetY,
		StartIndex:   rng.StartIndex,
		EndIndex:     rng.EndIndex,
	}
	fx.emit(&events.ViewChangedEvent{
		BaseEvent:   events.NewControllerEvent(events.EventViewChanged),
		Start:       rng.StartIndex,
		End:         rng.EndIndex,
		Visible:     len(c.vis.Nodes),
		TotalHeight: c.vis.TotalHeight,
	})
}

func (c *Controller) applyMatchesLocked(fx *effects, query string, ids []tree.NodeID) {
	c.store.SetMatched(ids)
	fx.emit(&events.SearchChangedEvent{
		BaseEvent: events.NewControllerEvent(events.EventSearchChanged),
		Query:     query,
		Matched:   c.store.Matched(),
	})
	if !c.cfg.Search.Reveal || len(ids) == 0 {
		return
	}
	for _, id := range search.Reveal(c.idx, ids) {
		c.store.SetExpanded(id, true)
	}
	c.target = ids[0]
	c.recomputeLocked(fx)
}

// scrollToTargetLocked moves the scroll position to show the pending target
// if it is visible, and reports whether it did.
func (c *Controller) scrollToTargetLocked() bool {
	if c.target == "" {
		return false
	}
	pos, ok := c.visPos[c.target]
	if !ok {
		return false
	}
	c.target = ""
	top := view.EnsureVisible(pos, c.geom.ScrollTop, c.geom.ViewportHeight, c.geom.RowHeight)
	c.geom.ScrollTop = c.clampScrollLocked(top)
	return true
}

func (c *Controller) clampScrollLocked(top float64) float64 {
	if math.IsNaN(top) || top < 0 {
		return 0
	}
	return min(top, view.MaxScrollTop(c.vis.TotalHeight, c.geom.ViewportHeight))
}

// useBridgeLocked reports whether work on a tree of the given size goes to
// the worker. After Close everything runs synchronously.
func (c *Controller) useBridgeLocked(nodes int) bool {
	return c.bridge != nil && nodes >= c.cfg.Worker.Threshold &&
		c.bridge.State() != bridge.StateTerminated
}

func (c *Controller) decodeFailedLocked(fx *effects, r bridge.Result, err error) {
	c.logger.Error("compute result undecodable", "type", r.Type, "error", err)
	fx.emit(&events.ErrorEvent{
		BaseEvent: events.NewControllerEvent(events.EventError),
		Message:   err.Error(),
		Severity:  events.SeverityError,
		Context:   map[string]string{"type": string(r.Type)},
	})
}

func (c *Controller) bridgeStateChanged(from, to bridge.State) {
	c.emit(&events.BridgeStateChangedEvent{
		BaseEvent: events.NewBridgeEvent(events.EventBridgeStateChanged),
		From:      string(from),
		To:        string(to),
	})
}

// emit sends an event to the router if available.
func (c *Controller) emit(event events.Event) {
	if c.router != nil {
		c.router.Emit(event)
	}
}
