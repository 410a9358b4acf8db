// Package tui provides a terminal stepping debugger for block tree runs
// using bubbletea.
package tui

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/prfkit/internal/block"
	"github.com/npratt/prfkit/internal/controller"
	"github.com/npratt/prfkit/internal/events"
)

// Stepper is the part of the step controller the TUI drives.
type Stepper interface {
	TogglePause()
	SingleStep()
	Halt()
	SetIgnoreBreakpoints(bool)
	IgnoringBreakpoints() bool
	SetSpeed(controller.Speed)
	Speed() controller.Speed
}

var _ Stepper = (*controller.Controller)(nil)

// TUI is the terminal UI for a stepped run.
type TUI struct {
	eventChan <-chan events.Event
	rows      []treeRow
	stepper   Stepper
	onQuit    func()
	out       io.Writer
}

// Option configures the TUI.
type Option func(*TUI)

// New creates a new TUI with the given event channel and options.
func New(eventChan <-chan events.Event, opts ...Option) *TUI {
	t := &TUI{
		eventChan: eventChan,
		out:       os.Stdout,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithTree shows root in the tree pane. The tree is read once, here, so the
// run may start as soon as New returns.
func WithTree(root *block.Block) Option {
	return func(t *TUI) {
		t.rows = buildRows(root)
	}
}

// WithStepper binds the pause, step, halt, breakpoint and speed keys.
func WithStepper(s Stepper) Option {
	return func(t *TUI) {
		t.stepper = s
	}
}

// WithOnQuit sets the callback invoked when the user presses 'q'.
func WithOnQuit(fn func()) Option {
	return func(t *TUI) {
		t.onQuit = fn
	}
}

// WithOutput redirects the plain-text fallback output.
func WithOutput(w io.Writer) Option {
	return func(t *TUI) {
		t.out = w
	}
}

// Run starts the TUI and blocks until it exits. Without a usable terminal it
// prints one line per event instead.
func (t *TUI) Run() error {
	if !isTerminal() || terminalTooSmall() {
		return t.runSimple()
	}

	m := newModel(t.eventChan, t.rows, t.stepper, t.onQuit)

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
