package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/prfkit/internal/events"
)

const (
	minWidth  = 60
	minHeight = 15
)

// View implements tea.Model. This renders the full TUI display.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	// Handle too small terminal
	if m.width < minWidth || m.height < minHeight {
		return m.renderTooSmall()
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderDivider())
	sections = append(sections, m.renderTree())
	sections = append(sections, m.renderDivider())
	sections = append(sections, m.renderEvents())
	sections = append(sections, m.renderDivider())
	sections = append(sections, m.renderFooter())

	content := strings.Join(sections, "\n")

	// Render content in container without setting Height
	// Height() can cause clipping issues; let content determine size
	rendered := styles.Container.
		Width(safeWidth(m.width - 2)).
		Render(content)

	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, rendered)
}

// renderTooSmall renders a minimal message for terminals that are too small.
func (m model) renderTooSmall() string {
	return fmt.Sprintf("Terminal too small (%dx%d). Need %dx%d minimum.",
		m.width, m.height, minWidth, minHeight)
}

// renderHeader renders the status line and the run summary line.
func (m model) renderHeader() string {
	w := safeWidth(m.width - 4) // Account for container borders

	// Line 1: status and step count
	status := m.renderStatus()
	steps := styles.Steps.Render(fmt.Sprintf("steps: %d", m.steps))
	statusLine := lipgloss.JoinHorizontal(
		lipgloss.Top,
		status,
		strings.Repeat(" ", max(1, w-lipgloss.Width(status)-lipgloss.Width(steps))),
		steps,
	)

	// Line 2: result or error, then controller settings
	var outcome string
	switch {
	case m.errMsg != "":
		outcome = styles.Error.Render("error: " + events.Truncate(m.errMsg, w/2))
	case m.result != nil:
		outcome = styles.Result.Render(fmt.Sprintf("result: %d", *m.result))
	default:
		outcome = styles.Steps.Render("result: -")
	}
	settings := styles.Steps.Render(m.settingsText())
	outcomeLine := lipgloss.JoinHorizontal(
		lipgloss.Top,
		outcome,
		strings.Repeat(" ", max(1, w-lipgloss.Width(outcome)-lipgloss.Width(settings))),
		settings,
	)

	return strings.Join([]string{statusLine, outcomeLine}, "\n")
}

func (m model) settingsText() string {
	if m.stepper == nil {
		return ""
	}
	bp := "on"
	if m.stepper.IgnoringBreakpoints() {
		bp = "ignored"
	}
	return fmt.Sprintf("speed: %s  breakpoints: %s", m.stepper.Speed(), bp)
}

// renderStatus renders the status indicator with appropriate styling.
func (m model) renderStatus() string {
	status := strings.ToUpper(m.status)
	if m.pauseReason != "" && m.status == "paused" {
		status += " (" + strings.ReplaceAll(m.pauseReason, "_", " ") + ")"
	}

	var style lipgloss.Style
	switch m.status {
	case "running":
		return m.spinner.View() + " " + styles.StatusRunning.Render(status)
	case "paused":
		style = styles.StatusPaused
	case "completed":
		style = styles.StatusCompleted
	case "halted", "halting...", "errored":
		style = styles.StatusStopped
	default:
		style = styles.StatusIdle
	}
	return style.Render(status)
}

// renderDivider renders a horizontal divider line.
func (m model) renderDivider() string {
	w := safeWidth(m.width - 4) // Account for container borders
	return styles.Divider.Render(strings.Repeat("─", w))
}

// renderTree renders the block tree with the latest output of every block.
// The window follows the block that completed last.
func (m model) renderTree() string {
	visible := m.treeHeight()
	w := safeWidth(m.width - 4)

	if len(m.rows) == 0 {
		lines := []string{lipgloss.PlaceHorizontal(w, lipgloss.Center, "No tree loaded")}
		for len(lines) < visible {
			lines = append(lines, "")
		}
		return strings.Join(lines, "\n")
	}

	focus := 0
	for i, r := range m.rows {
		if r.ID != "" && (r.ID == m.current || r.ID == m.failed) {
			focus = i
		}
	}
	start := safeScroll(focus-visible/2, len(m.rows), visible)
	end := min(start+visible, len(m.rows))

	var lines []string
	for _, r := range m.rows[start:end] {
		lines = append(lines, m.renderRow(r, w))
	}
	for len(lines) < visible {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m model) renderRow(r treeRow, w int) string {
	marker := "  "
	if r.Breakpoint {
		marker = styles.Breakpoint.Render("● ")
	}

	text := r.text()
	if out, ok := m.outputs[r.ID]; ok {
		text += " = " + out
	}
	if len(r.Errors) > 0 {
		text += "  ! " + strings.Join(r.Errors, " ")
	}
	if limit := max(10, w-2); len(text) > limit {
		text = text[:limit-3] + "..."
	}

	style := styles.Node
	switch {
	case r.ID == "":
		style = styles.Empty
	case r.ID == m.failed:
		style = styles.Error
	case r.ID == m.current:
		style = styles.NodeCurrent
	case len(r.Errors) > 0:
		style = styles.NodeInvalid
	}
	return marker + style.Render(text)
}

// renderEvents renders the scrollable step feed.
func (m model) renderEvents() string {
	visible := m.visibleLines()
	w := safeWidth(m.width - 4) // Account for container borders

	if len(m.eventLines) == 0 {
		// Center a placeholder message
		placeholder := "Waiting for steps..."
		padding := strings.Repeat("\n", visible/2)
		return padding + lipgloss.PlaceHorizontal(w, lipgloss.Center, placeholder)
	}

	// Calculate scroll bounds
	scrollPos := safeScroll(m.scrollPos, len(m.eventLines), visible)

	// Get visible slice of events
	endPos := min(scrollPos+visible, len(m.eventLines))
	visibleEvents := m.eventLines[scrollPos:endPos]

	var lines []string
	for _, el := range visibleEvents {
		lines = append(lines, m.renderEventLine(el, w))
	}

	// Pad with empty lines if needed
	for len(lines) < visible {
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// renderEventLine renders a single event with timestamp and styling.
func (m model) renderEventLine(el eventLine, maxWidth int) string {
	timestamp := el.Time.Format("15:04:05")
	prefix := timestamp + " "

	textWidth := maxWidth - len(prefix)
	if textWidth < 10 {
		textWidth = 10
	}

	text := el.Text
	if len(text) > textWidth {
		text = text[:textWidth-3] + "..."
	}

	return styles.Steps.Render(prefix) + el.Style.Render(text)
}

// renderFooter renders keyboard shortcuts help text.
func (m model) renderFooter() string {
	var help string
	switch {
	case m.finished || m.status == "completed" || m.status == "halted" || m.status == "errored":
		help = "q: quit  ↑/↓: scroll  g/G: top/bottom"
	case m.status == "paused":
		help = "space: resume  s: step  h: halt  b: breakpoints  v: speed  q: quit"
	default:
		help = "space: pause  s: step  h: halt  b: breakpoints  v: speed  q: quit"
	}
	return styles.Footer.Render(help)
}

// safeWidth returns a width that is at least 1 to prevent negative values.
func safeWidth(w int) int {
	if w < 1 {
		return 1
	}
	return w
}

// safeScroll clamps scroll position to valid bounds.
func safeScroll(pos, totalLines, visibleLines int) int {
	if pos < 0 {
		return 0
	}
	maxScroll := totalLines - visibleLines
	if maxScroll < 0 {
		return 0
	}
	if pos > maxScroll {
		return maxScroll
	}
	return pos
}

// StyleForEvent returns the appropriate style for an event type.
func StyleForEvent(event events.Event) lipgloss.Style {
	if event == nil {
		return styles.Step
	}

	switch e := event.(type) {
	case *events.StepEvent:
		if e.Breakpoint {
			return styles.Breakpoint
		}
		return styles.Step
	case *events.RunPausedEvent, *events.RunResumedEvent:
		return styles.StatusPaused
	case *events.RunStartEvent, *events.RunCompletedEvent:
		return styles.Session
	case *events.RunHaltedEvent, *events.ErrorEvent:
		return styles.Error
	default:
		return styles.Step
	}
}
