// Package tui is an interactive terminal browser for a virtual tree.
package tui

import (
	"io"
	"os"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/vtree/internal/controller"
	"github.com/npratt/vtree/internal/events"
)

// TUI wraps the bubbletea program that browses a controller's tree.
type TUI struct {
	ctrl      *controller.Controller
	eventChan <-chan events.Event
	title     string
	onQuit    func()
	copyText  func(string) error
	out       io.Writer
}

// Option configures the TUI.
type Option func(*TUI)

// New creates a TUI over ctrl. eventChan should be a router subscription;
// the display refreshes as events arrive.
func New(ctrl *controller.Controller, eventChan <-chan events.Event, opts ...Option) *TUI {
	t := &TUI{
		ctrl:      ctrl,
		eventChan: eventChan,
		title:     "vtree",
		copyText:  clipboard.WriteAll,
		out:       os.Stdout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithTitle sets the header title.
func WithTitle(title string) Option {
	return func(t *TUI) {
		t.title = title
	}
}

// WithOnQuit sets the callback for quit.
func WithOnQuit(fn func()) Option {
	return func(t *TUI) {
		t.onQuit = fn
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(t *TUI) {
		t.copyText = fn
	}
}

// WithOutput sets where the non-interactive listing is written.
func WithOutput(w io.Writer) Option {
	return func(t *TUI) {
		t.out = w
	}
}

// Run starts the TUI and blocks until it exits. Without a terminal it
// prints the visible tree once instead.
func (t *TUI) Run() error {
	if !isTerminal() {
		return t.runSimple()
	}

	m := newModel(t.ctrl, t.eventChan, t.title, t.onQuit, t.copyText)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
