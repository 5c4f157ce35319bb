package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/vtree/internal/controller"
	"github.com/npratt/vtree/internal/events"
	"github.com/npratt/vtree/internal/state"
	"github.com/npratt/vtree/internal/tree"
)

// View implements tea.Model. This renders the full TUI display.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderRows(),
		m.renderDivider(),
		m.renderStatus(),
		m.renderFooter(),
	}
	return strings.Join(sections, "\n")
}

// renderHeader shows the title, row position and the active query.
func (m model) renderHeader() string {
	slice := m.ctrl.View()
	parts := []string{styles.Title.Render(m.title)}

	total := len(slice.VisibleNodes)
	if total > 0 {
		pos, _ := m.ctrl.Position(m.cursor)
		parts = append(parts, styles.Counts.Render(fmt.Sprintf("%d/%d", pos+1, total)))
	} else {
		parts = append(parts, styles.Counts.Render("0/0"))
	}
	if q := m.ctrl.Query(); q != "" {
		n := len(m.ctrl.Snapshot().Matched)
		parts = append(parts, styles.Query.Render(fmt.Sprintf("/%s (%d)", events.SafeString(q), n)))
	}
	return truncateLine(strings.Join(parts, "  "), m.width)
}

// renderRows draws exactly listHeight lines starting at the scroll position.
func (m model) renderRows() string {
	slice := m.ctrl.View()
	height := m.listHeight()
	lines := make([]string, 0, height)

	if len(slice.VisibleNodes) == 0 {
		lines = append(lines, styles.Empty.Render("(empty tree)"))
	} else {
		// RenderNodes starts at StartIndex, which may sit above the first
		// row on screen when a buffer is configured.
		skip := max(0, int(m.geometry().ScrollTop)-slice.StartIndex)
		for i := skip; i < len(slice.RenderNodes) && len(lines) < height; i++ {
			lines = append(lines, m.renderRow(slice.RenderNodes[i]))
		}
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m model) renderRow(n tree.FlattenedNode) string {
	f := m.ctrl.Flags(n.ID)
	line := truncateLine(formatRow(n, f), m.width)

	style := styles.Row
	switch {
	case n.ID == m.cursor:
		style = styles.Cursor
	case f.Matched:
		style = styles.Matched
	case f.Selected:
		style = styles.Selected
	case f.Checked == state.Checked:
		style = styles.Checked
	}
	return style.Render(line)
}

func (m model) renderDivider() string {
	return styles.Divider.Render(strings.Repeat("─", safeWidth(m.width)))
}

// renderStatus shows the search box while editing, otherwise the latest event.
func (m model) renderStatus() string {
	if m.searching {
		return m.search.View()
	}
	return m.statusStyle.Render(truncateLine(m.status, m.width))
}

// renderFooter renders keyboard shortcuts help text.
func (m model) renderFooter() string {
	return styles.Footer.Render(m.help.View(m.keys))
}

// formatRow renders one node as plain text: indentation, an expansion
// marker, a checkbox and the name.
func formatRow(n tree.FlattenedNode, f controller.Flags) string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("  ", n.Level))

	switch {
	case n.IsLeaf:
		sb.WriteString("  ")
	case f.Expanded:
		sb.WriteString("▾ ")
	default:
		sb.WriteString("▸ ")
	}

	switch f.Checked {
	case state.Checked:
		sb.WriteString("[x] ")
	case state.Indeterminate:
		sb.WriteString("[-] ")
	default:
		sb.WriteString("[ ] ")
	}

	if f.Selected {
		sb.WriteString("*")
	}
	sb.WriteString(events.SafeString(n.Name))
	return sb.String()
}

// truncateLine cuts s to the terminal width. Styled text is measured by
// its printed cells.
func truncateLine(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

// safeWidth returns a width that is at least 1 to prevent negative values.
func safeWidth(w int) int {
	if w < 1 {
		return 1
	}
	return w
}
