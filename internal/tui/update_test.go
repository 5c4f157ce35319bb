package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npratt/vtree/internal/config"
	"github.com/npratt/vtree/internal/controller"
	"github.com/npratt/vtree/internal/events"
	"github.com/npratt/vtree/internal/testutil"
	"github.com/npratt/vtree/internal/tree"
)

func newTestController(t *testing.T, roots []tree.TreeNode, mutate ...func(*config.Config)) (*controller.Controller, <-chan events.Event) {
	t.Helper()
	cfg := config.Default()
	cfg.Worker.Enabled = false
	for _, fn := range mutate {
		fn(cfg)
	}
	router := events.NewRouter(64)
	t.Cleanup(router.Close)
	ch := router.Subscribe()
	ctrl := controller.New(cfg, nil, router, nil)
	require.NoError(t, ctrl.SetTree(roots))
	return ctrl, ch
}

// newTestModel returns a model over SampleTree in an 80x10 terminal, which
// leaves six tree rows.
func newTestModel(t *testing.T, mutate ...func(*config.Config)) (model, *controller.Controller) {
	t.Helper()
	ctrl, ch := newTestController(t, testutil.SampleTree(), mutate...)
	m := newModel(ctrl, ch, "test", nil, nil)
	return update(m, tea.WindowSizeMsg{Width: 80, Height: 10}), ctrl
}

func update(m model, msgs ...tea.Msg) model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m model, keys ...string) model {
	for _, k := range keys {
		m = update(m, runes(k))
	}
	return m
}

func visible(c *controller.Controller) []tree.NodeID {
	return testutil.IDs(c.View().VisibleNodes)
}

func TestResizeSetsOneRowPerLine(t *testing.T) {
	m, ctrl := newTestModel(t)

	g := ctrl.Geometry()
	assert.Equal(t, 1.0, g.RowHeight)
	assert.Equal(t, 6.0, g.ViewportHeight)
	assert.Equal(t, 0, g.Buffer)
	assert.Equal(t, tree.NodeID("1"), m.cursor)
}

func TestNavigation(t *testing.T) {
	m, ctrl := newTestModel(t)

	m = press(m, "l")
	assert.Equal(t, []tree.NodeID{"1", "2", "3"}, visible(ctrl))
	assert.Equal(t, tree.NodeID("1"), m.cursor, "expanding keeps the cursor")

	m = press(m, "j", "j")
	assert.Equal(t, tree.NodeID("3"), m.cursor)

	m = press(m, "l", "l")
	assert.Equal(t, tree.NodeID("4"), m.cursor, "second expand descends")

	m = press(m, "j")
	assert.Equal(t, tree.NodeID("4"), m.cursor, "down stops at the last row")

	m = press(m, "h")
	assert.Equal(t, tree.NodeID("3"), m.cursor, "left on a leaf goes to the parent")

	m = press(m, "h")
	assert.Equal(t, []tree.NodeID{"1", "2", "3"}, visible(ctrl))
	assert.Equal(t, tree.NodeID("3"), m.cursor)

	m = press(m, "h")
	assert.Equal(t, tree.NodeID("1"), m.cursor)

	m = press(m, "G")
	assert.Equal(t, tree.NodeID("3"), m.cursor)
	m = update(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, tree.NodeID("2"), m.cursor)
	m = press(m, "g")
	assert.Equal(t, tree.NodeID("1"), m.cursor)
}

func TestToggleExpand(t *testing.T) {
	m, ctrl := newTestModel(t)

	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, ctrl.Flags("1").Expanded)
	update(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, ctrl.Flags("1").Expanded)
}

func TestCollapseAllMovesCursorToVisibleAncestor(t *testing.T) {
	m, ctrl := newTestModel(t)

	m = press(m, "E", "G")
	assert.Equal(t, []tree.NodeID{"1", "2", "3", "4"}, visible(ctrl))
	assert.Equal(t, tree.NodeID("4"), m.cursor)

	m = press(m, "C")
	assert.Equal(t, []tree.NodeID{"1"}, visible(ctrl))
	assert.Equal(t, tree.NodeID("1"), m.cursor)
}

func TestScrollFollowsCursor(t *testing.T) {
	ctrl, ch := newTestController(t, testutil.Generate(2, 4))
	m := newModel(ctrl, ch, "test", nil, nil)
	m = update(m, tea.WindowSizeMsg{Width: 80, Height: 7}) // three rows
	m = press(m, "E")

	for range 5 {
		m = press(m, "j")
	}
	pos, ok := ctrl.Position(m.cursor)
	require.True(t, ok)
	assert.Equal(t, 5, pos)
	assert.Equal(t, 3.0, ctrl.Geometry().ScrollTop)

	m = update(m, tea.KeyMsg{Type: tea.KeyPgUp})
	pos, _ = ctrl.Position(m.cursor)
	assert.Equal(t, 2, pos)
	assert.Equal(t, 2.0, ctrl.Geometry().ScrollTop)
}

func TestSelectAndCheck(t *testing.T) {
	m, ctrl := newTestModel(t)

	m = update(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.Equal(t, []tree.NodeID{"1"}, ctrl.Snapshot().Selected)

	press(m, "x")
	assert.Equal(t, []tree.NodeID{"1"}, ctrl.Snapshot().Checked)
	n, _ := ctrl.Index().Node("1")
	assert.Equal(t, "▸ [x] *Root", formatRow(n, ctrl.Flags("1")))
}

func TestSearchTyping(t *testing.T) {
	m, ctrl := newTestModel(t)

	m = press(m, "/")
	require.True(t, m.searching)

	m = press(m, "b", "o", "b")
	assert.Equal(t, "bob", ctrl.Query())
	assert.Equal(t, []tree.NodeID{"4"}, ctrl.Snapshot().Matched)
	assert.Equal(t, tree.NodeID("4"), m.cursor, "cursor follows the first match")
	assert.Equal(t, []tree.NodeID{"1", "2", "3", "4"}, visible(ctrl))

	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searching)
	assert.Equal(t, "bob", ctrl.Query(), "enter keeps the query")

	m = press(m, "g", "n")
	assert.Equal(t, tree.NodeID("4"), m.cursor)
}

func TestSearchEscapeClears(t *testing.T) {
	m, ctrl := newTestModel(t)

	m = press(m, "/", "a")
	assert.NotEmpty(t, ctrl.Snapshot().Matched)

	m = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.searching)
	assert.Empty(t, ctrl.Query())
	assert.Empty(t, ctrl.Snapshot().Matched)
	assert.Equal(t, "search cleared", m.status)
}

func TestNextMatchWithoutQuery(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "n")
	assert.Equal(t, "no matches", m.status)
}

func TestCopyPath(t *testing.T) {
	ctrl, ch := newTestController(t, testutil.SampleTree())
	var copied []string
	m := newModel(ctrl, ch, "test", nil, func(s string) error {
		copied = append(copied, s)
		return nil
	})
	m = update(m, tea.WindowSizeMsg{Width: 80, Height: 10})

	m = press(m, "E", "G", "y")
	assert.Equal(t, []string{"1-3-4"}, copied)
	assert.Equal(t, "copied 1-3-4", m.status)

	m.copyText = func(string) error { return errors.New("no clipboard") }
	m = press(m, "y")
	assert.Equal(t, "no clipboard", m.status)
	assert.Equal(t, styles.Error, m.statusStyle)
}

func TestHandleEvent(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(m, eventMsg{&events.ErrorEvent{
		BaseEvent: events.NewEvent(events.EventError, events.SourceWatcher),
		Message:   "tree.json: unexpected EOF",
		Severity:  events.SeverityWarning,
	}})
	assert.Equal(t, "warning: tree.json: unexpected EOF", m.status)
	assert.Equal(t, styles.Error, m.statusStyle)

	m = update(m, eventMsg{&events.TreeReplacedEvent{
		BaseEvent: events.NewControllerEvent(events.EventTreeReplaced),
		Roots:     1,
		Nodes:     4,
	}})
	assert.Equal(t, "loaded 4 nodes in 1 roots", m.status)
	assert.Equal(t, styles.Status, m.statusStyle)

	m = update(m, eventMsg{&events.ViewChangedEvent{
		BaseEvent: events.NewControllerEvent(events.EventViewChanged),
	}})
	assert.Equal(t, "loaded 4 nodes in 1 roots", m.status, "view changes do not replace the status")
}

func TestChannelClosedQuits(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := m.Update(channelClosedMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestQuitCallsOnQuit(t *testing.T) {
	ctrl, ch := newTestController(t, testutil.SampleTree())
	var quit bool
	m := newModel(ctrl, ch, "test", func() { quit = true }, nil)

	_, cmd := m.Update(runes("q"))
	assert.True(t, quit)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTreeReplacementResetsCursor(t *testing.T) {
	m, ctrl := newTestModel(t)
	m = press(m, "E", "G")
	require.Equal(t, tree.NodeID("4"), m.cursor)

	require.NoError(t, ctrl.SetTree([]tree.TreeNode{{ID: "x", Name: "Other"}}))
	m = update(m, eventMsg{&events.TreeReplacedEvent{
		BaseEvent: events.NewControllerEvent(events.EventTreeReplaced),
		Roots:     1,
		Nodes:     1,
	}})
	assert.Equal(t, tree.NodeID("x"), m.cursor)
	assert.True(t, strings.HasPrefix(m.status, "loaded"))
}
