package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/prfkit/internal/block"
	"github.com/npratt/prfkit/internal/events"
)

// treeRow is one block of the tree pane, captured before the run starts.
type treeRow struct {
	ID         string
	Depth      int
	Slot       string
	Label      string
	InputCount int
	Breakpoint bool
	Errors     []string
}

// eventLine represents a formatted event for display.
type eventLine struct {
	Time  time.Time
	Text  string
	Style lipgloss.Style
}

// model is the bubbletea model for the TUI.
type model struct {
	// Event source
	eventChan <-chan events.Event

	// Tree pane
	rows    []treeRow
	outputs map[string]string // latest output per block id
	current string            // block that completed last
	failed  string            // block an evaluation error points at

	// Run state
	status      string
	pauseReason string
	steps       int
	result      *int
	errMsg      string
	finished    bool

	// Event log
	eventLines []eventLine

	// UI state
	width      int
	height     int
	scrollPos  int
	autoScroll bool
	spinner    spinner.Model

	// Controls
	stepper Stepper
	onQuit  func()
}

// eventMsg wraps an event for the bubbletea message system.
type eventMsg events.Event

// newModel creates a new model with the given configuration.
func newModel(eventChan <-chan events.Event, rows []treeRow, stepper Stepper, onQuit func()) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.StatusRunning

	return model{
		eventChan:  eventChan,
		rows:       rows,
		outputs:    make(map[string]string),
		status:     "idle",
		autoScroll: true,
		spinner:    sp,
		stepper:    stepper,
		onQuit:     onQuit,
	}
}

// buildRows flattens the tree in display order. Validation messages are
// taken from the tree as it stands.
func buildRows(root *block.Block) []treeRow {
	if root == nil {
		return nil
	}
	var rows []treeRow
	var visit func(b *block.Block, slot string)
	visit = func(b *block.Block, slot string) {
		rows = append(rows, treeRow{
			ID:         b.ID,
			Depth:      b.Depth,
			Slot:       slot,
			Label:      events.SafeString(b.Label()),
			InputCount: b.InputCount,
			Breakpoint: b.HasBreakpoint,
			Errors:     append([]string(nil), b.Errors...),
		})
		if b.Collapsed {
			return
		}
		for _, s := range b.Slots {
			if s.Block == nil {
				rows = append(rows, treeRow{Depth: b.Depth + 1, Slot: s.Name, Label: "(empty)"})
				continue
			}
			visit(s.Block, s.Name)
		}
	}
	visit(root, "")
	return rows
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.eventChan),
		m.spinner.Tick,
	)
}

// Update, handleKey, handleEvent are implemented in update.go
// View is implemented in view.go

// treeHeight is the number of rows the tree pane may use.
func (m model) treeHeight() int {
	// Half of the space left after border (2), header (2), dividers (3), footer (1)
	return max(1, (m.height-8)/2)
}

// visibleLines returns the number of event lines that fit in the viewport.
func (m model) visibleLines() int {
	return max(1, m.height-8-m.treeHeight())
}

// text renders the static part of a tree row.
func (r treeRow) text() string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("  ", r.Depth))
	if r.Slot != "" {
		sb.WriteString(r.Slot)
		sb.WriteString(": ")
	}
	sb.WriteString(r.Label)
	if r.ID != "" {
		fmt.Fprintf(&sb, " [%d in]", r.InputCount)
	}
	return sb.String()
}
