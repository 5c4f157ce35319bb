package tui

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// isTerminal returns true if both stdout and stdin are TTYs.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// runSimple prints every visible node as an indented line.
func (t *TUI) runSimple() error {
	for _, n := range t.ctrl.View().VisibleNodes {
		line := formatRow(n, t.ctrl.Flags(n.ID))
		if _, err := fmt.Fprintln(t.out, line); err != nil {
			return err
		}
	}
	return nil
}
