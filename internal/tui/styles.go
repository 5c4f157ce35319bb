package tui

import "github.com/charmbracelet/lipgloss"

// styles contains all lipgloss styles used by the TUI.
var styles = struct {
	// Header styles
	Title  lipgloss.Style
	Counts lipgloss.Style
	Query  lipgloss.Style

	Divider lipgloss.Style
	Footer  lipgloss.Style
	Empty   lipgloss.Style

	// Status line
	Status lipgloss.Style
	Error  lipgloss.Style

	// Row styles
	Row      lipgloss.Style
	Cursor   lipgloss.Style
	Selected lipgloss.Style
	Matched  lipgloss.Style
	Checked  lipgloss.Style
}{
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")),

	Counts: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	Query: lipgloss.NewStyle().
		Foreground(lipgloss.Color("220")),

	Divider: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	Footer: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	Empty: lipgloss.NewStyle().
		Italic(true).
		Foreground(lipgloss.Color("240")),

	Status: lipgloss.NewStyle().
		Foreground(lipgloss.Color("114")),

	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),

	Row: lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")),

	Cursor: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		Background(lipgloss.Color("236")),

	Selected: lipgloss.NewStyle().
		Foreground(lipgloss.Color("82")),

	Matched: lipgloss.NewStyle().
		Foreground(lipgloss.Color("220")),

	Checked: lipgloss.NewStyle().
		Foreground(lipgloss.Color("177")),
}
