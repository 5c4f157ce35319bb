package tui

import (
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/vtree/internal/events"
	"github.com/npratt/vtree/internal/tree"
)

// channelClosedMsg signals that the event channel was closed.
type channelClosedMsg struct{}

// waitForEvent creates a command that waits for the next event from the channel.
// Returns channelClosedMsg if the channel is closed.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return channelClosedMsg{}
		}
		return eventMsg{event}
	}
}

// Update implements tea.Model. It handles all message types and updates the model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ensureCursor()
		return m, nil

	case eventMsg:
		m.handleEvent(msg.Event)
		return m, waitForEvent(m.eventChan)

	case channelClosedMsg:
		slog.Info("event channel closed, exiting TUI")
		return m, tea.Quit

	default:
		if m.searching {
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// handleKey processes keyboard input and returns the updated model and command.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.PageUp):
		m.move(-m.listHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.move(m.listHeight())
	case key.Matches(msg, m.keys.Home):
		m.moveTo(0)
	case key.Matches(msg, m.keys.End):
		m.moveTo(len(m.ctrl.View().VisibleNodes) - 1)

	case key.Matches(msg, m.keys.Expand):
		m.expandOrDescend()
	case key.Matches(msg, m.keys.Collapse):
		m.collapseOrAscend()
	case key.Matches(msg, m.keys.Toggle):
		if m.cursor != "" {
			if _, err := m.ctrl.ToggleExpand(m.cursor); err != nil {
				m.setError(err)
			}
		}
	case key.Matches(msg, m.keys.ExpandAll):
		m.ctrl.ExpandAll()
	case key.Matches(msg, m.keys.CollapseAll):
		m.ctrl.CollapseAll()
		m.ensureCursor()

	case key.Matches(msg, m.keys.Select):
		if m.cursor != "" {
			if err := m.ctrl.Click(m.cursor); err != nil {
				m.setError(err)
			}
		}
	case key.Matches(msg, m.keys.Check):
		if m.cursor != "" {
			if _, err := m.ctrl.ToggleChecked(m.cursor); err != nil {
				m.setError(err)
			}
		}
	case key.Matches(msg, m.keys.Copy):
		m.copyPath()

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(m.ctrl.Query())
		m.search.CursorEnd()
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.NextMatch):
		m.nextMatch()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	m.ensureCursor()
	return m, nil
}

// handleSearchKey edits the query. Matches update as the query changes.
func (m model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.Reset()
		m.ctrl.Search("")
		m.setStatus("search cleared")
		return m, nil

	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, nil

	case tea.KeyCtrlC:
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if query := m.search.Value(); query != before {
		m.ctrl.Search(query)
		m.followMatches(m.ctrl.Snapshot().Matched)
	}
	return m, cmd
}

// handleEvent updates the status line. The tree itself is read from the
// controller on every render.
func (m *model) handleEvent(e events.Event) {
	switch e := e.(type) {
	case *events.ViewChangedEvent:
		// Shown in the header.
	case *events.SearchChangedEvent:
		m.followMatches(e.Matched)
		m.setStatus(events.Format(e))
	case *events.ErrorEvent, *events.ComputeErrorEvent:
		m.status = events.Format(e)
		m.statusStyle = styles.Error
	default:
		if text := events.Format(e); text != "" {
			m.setStatus(text)
		}
	}
	m.ensureCursor()
}

// followMatches moves the cursor to the first match while typing a query.
func (m *model) followMatches(matched []tree.NodeID) {
	if !m.searching || len(matched) == 0 || m.cursor == matched[0] {
		return
	}
	m.jump(matched[0])
}

func (m *model) expandOrDescend() {
	n, ok := m.current()
	if !ok || n.IsLeaf {
		return
	}
	if !m.ctrl.Flags(n.ID).Expanded {
		if err := m.ctrl.SetExpanded(n.ID, true); err != nil {
			m.setError(err)
		}
		return
	}
	m.move(1)
}

func (m *model) collapseOrAscend() {
	n, ok := m.current()
	if !ok {
		return
	}
	if !n.IsLeaf && m.ctrl.Flags(n.ID).Expanded {
		if err := m.ctrl.SetExpanded(n.ID, false); err != nil {
			m.setError(err)
		}
		return
	}
	if _, ok := m.ctrl.Position(n.ParentID); ok {
		m.cursor = n.ParentID
		if err := m.ctrl.ScrollTo(n.ParentID); err != nil {
			m.setError(err)
		}
	}
}

func (m *model) copyPath() {
	n, ok := m.current()
	if !ok || m.copyText == nil {
		return
	}
	if err := m.copyText(n.PathKey); err != nil {
		m.setError(err)
		return
	}
	m.setStatus("copied " + n.PathKey)
}
