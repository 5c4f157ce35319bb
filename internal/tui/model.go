package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/vtree/internal/controller"
	"github.com/npratt/vtree/internal/events"
	"github.com/npratt/vtree/internal/tree"
	"github.com/npratt/vtree/internal/view"
)

// chromeRows is the header, divider, status line and help line.
const chromeRows = 4

// model is the bubbletea model for the TUI.
type model struct {
	ctrl      *controller.Controller
	eventChan <-chan events.Event
	title     string

	// cursor is the highlighted node. It always names a visible node once
	// the tree is non-empty.
	cursor tree.NodeID

	width  int
	height int

	search    textinput.Model
	searching bool
	keys      keyMap
	help      help.Model

	status      string
	statusStyle lipgloss.Style

	onQuit   func()
	copyText func(string) error
}

// eventMsg wraps an event for the bubbletea message system.
type eventMsg struct{ events.Event }

func newModel(
	ctrl *controller.Controller,
	eventChan <-chan events.Event,
	title string,
	onQuit func(),
	copyText func(string) error,
) model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "search names"
	ti.CharLimit = 256

	m := model{
		ctrl:        ctrl,
		eventChan:   eventChan,
		title:       title,
		search:      ti,
		keys:        defaultKeyMap(),
		help:        help.New(),
		statusStyle: styles.Status,
		onQuit:      onQuit,
		copyText:    copyText,
	}
	m.ensureCursor()
	return m
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return waitForEvent(m.eventChan)
}

// Update, handleKey and handleEvent are implemented in update.go
// View is implemented in view.go

// listHeight is the number of tree rows that fit on screen.
func (m model) listHeight() int {
	return max(1, m.height-chromeRows)
}

// resize fits the controller viewport to the terminal, one row per line.
func (m *model) resize() {
	g := m.ctrl.Geometry()
	g.RowHeight = 1
	g.ViewportHeight = float64(m.listHeight())
	g.Buffer = 0
	if err := m.ctrl.SetGeometry(g); err != nil {
		m.setError(err)
	}
	m.help.Width = m.width
	m.search.Width = max(10, m.width-len(m.search.Prompt)-1)
}

// ensureCursor moves the cursor to a visible node. A cursor hidden by a
// collapse moves to its nearest visible ancestor.
func (m *model) ensureCursor() {
	if _, ok := m.ctrl.Position(m.cursor); ok {
		return
	}
	for _, a := range m.ctrl.Index().Ancestors(m.cursor) {
		if _, ok := m.ctrl.Position(a); ok {
			m.cursor = a
			return
		}
	}
	m.cursor = ""
	if nodes := m.ctrl.View().VisibleNodes; len(nodes) > 0 {
		m.cursor = nodes[0].ID
	}
}

// moveTo places the cursor on the visible row pos, clamped.
func (m *model) moveTo(pos int) {
	nodes := m.ctrl.View().VisibleNodes
	if len(nodes) == 0 {
		m.cursor = ""
		return
	}
	pos = max(0, min(pos, len(nodes)-1))
	m.cursor = nodes[pos].ID
	if err := m.ctrl.ScrollTo(m.cursor); err != nil {
		m.setError(err)
	}
}

func (m *model) move(delta int) {
	pos, _ := m.ctrl.Position(m.cursor)
	m.moveTo(pos + delta)
}

// current returns the node under the cursor.
func (m model) current() (tree.FlattenedNode, bool) {
	if m.cursor == "" {
		return tree.FlattenedNode{}, false
	}
	return m.ctrl.Index().Node(m.cursor)
}

// nextMatch moves to the first match after the cursor, wrapping around.
func (m *model) nextMatch() {
	matched := m.ctrl.Snapshot().Matched
	if len(matched) == 0 {
		m.setStatus("no matches")
		return
	}
	idx := m.ctrl.Index()
	from := -1
	if n, ok := idx.Node(m.cursor); ok {
		from = n.Index
	}
	next := matched[0]
	for _, id := range matched {
		if n, ok := idx.Node(id); ok && n.Index > from {
			next = id
			break
		}
	}
	m.jump(next)
}

// jump puts the cursor on id, revealing it first.
func (m *model) jump(id tree.NodeID) {
	idx := m.ctrl.Index()
	for _, a := range idx.Ancestors(id) {
		if err := m.ctrl.SetExpanded(a, true); err != nil {
			m.setError(err)
			return
		}
	}
	m.cursor = id
	if err := m.ctrl.ScrollTo(id); err != nil {
		m.setError(err)
	}
}

func (m *model) setStatus(text string) {
	m.status = text
	m.statusStyle = styles.Status
}

func (m *model) setError(err error) {
	m.status = err.Error()
	m.statusStyle = styles.Error
}

// geometry is the viewport as last applied, for rendering.
func (m model) geometry() view.Geometry {
	return m.ctrl.Geometry()
}
