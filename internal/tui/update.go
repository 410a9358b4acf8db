package tui

import (
	"log/slog"
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/prfkit/internal/events"
)

const (
	// maxEventLines is the maximum number of event lines to keep in the buffer.
	maxEventLines = 1000
	// trimEventLines is the number of lines to remove when buffer exceeds max.
	trimEventLines = 100
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
		return eventMsg(event)
	}
}

// Update implements tea.Model. It handles all message types and updates the model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		m.handleEvent(events.Event(msg))
		return m, waitForEvent(m.eventChan)

	case channelClosedMsg:
		// Event channel closed; keep showing the final state until quit.
		slog.Info("event channel closed")
		m.finished = true
		return m, nil

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

// handleKey processes keyboard input and returns the updated model and command.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.stepper != nil && !m.finished {
			m.stepper.Halt()
		}
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case " ":
		if m.stepper != nil && !m.finished {
			m.stepper.TogglePause()
		}
		return m, nil

	case "s":
		if m.stepper != nil && !m.finished {
			m.stepper.SingleStep()
		}
		return m, nil

	case "h":
		if m.stepper != nil && !m.finished {
			m.stepper.Halt()
			m.status = "halting..."
		}
		return m, nil

	case "b":
		if m.stepper != nil {
			m.stepper.SetIgnoreBreakpoints(!m.stepper.IgnoringBreakpoints())
		}
		return m, nil

	case "v":
		if m.stepper != nil {
			m.stepper.SetSpeed(m.stepper.Speed().Next())
		}
		return m, nil

	case "up", "k":
		m.autoScroll = false
		if m.scrollPos > 0 {
			m.scrollPos--
		}
		return m, nil

	case "down", "j":
		maxScroll := len(m.eventLines) - m.visibleLines()
		if m.scrollPos < maxScroll {
			m.scrollPos++
		}
		if m.scrollPos >= maxScroll {
			m.autoScroll = true
		}
		return m, nil

	case "home", "g":
		m.autoScroll = false
		m.scrollPos = 0
		return m, nil

	case "end", "G":
		m.autoScroll = true
		m.scrollPos = max(0, len(m.eventLines)-m.visibleLines())
		return m, nil

	default:
		return m, nil
	}
}

// handleEvent processes an event and updates model state.
func (m *model) handleEvent(event events.Event) {
	switch e := event.(type) {
	case *events.RunStartEvent:
		m.status = "running"
		m.steps = 0
		m.result = nil
		m.errMsg = ""
		m.failed = ""
		m.finished = false
		m.outputs = make(map[string]string)

	case *events.StateChangedEvent:
		m.status = e.To
		if e.To != "paused" {
			m.pauseReason = ""
		}

	case *events.StepEvent:
		m.steps = e.Seq
		m.current = e.BlockID
		m.outputs[e.BlockID] = strconv.Itoa(e.Output)

	case *events.RunPausedEvent:
		m.status = "paused"
		m.pauseReason = e.Reason

	case *events.RunCompletedEvent:
		result := e.Result
		m.result = &result
		m.steps = e.Steps
		m.status = "completed"

	case *events.RunHaltedEvent:
		m.steps = e.Steps
		m.status = "halted"

	case *events.ErrorEvent:
		m.errMsg = e.Message
		m.failed = e.BlockID
		m.status = "errored"
	}

	// Add to event log with formatting
	text := events.Format(event)
	if text == "" {
		return
	}
	if _, ok := event.(*events.StateChangedEvent); ok {
		return
	}
	m.eventLines = append(m.eventLines, eventLine{
		Time:  event.Timestamp(),
		Text:  text,
		Style: StyleForEvent(event),
	})

	// Trim buffer if over max lines
	if len(m.eventLines) > maxEventLines {
		m.eventLines = m.eventLines[trimEventLines:]
		// Adjust scroll position after trimming
		m.scrollPos = max(0, m.scrollPos-trimEventLines)
	}

	// Auto-scroll to bottom if enabled
	if m.autoScroll {
		maxScroll := len(m.eventLines) - m.visibleLines()
		if maxScroll > 0 {
			m.scrollPos = maxScroll
		}
	}
}
