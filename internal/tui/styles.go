package tui

import "github.com/charmbracelet/lipgloss"

// styles contains all lipgloss styles used by the TUI.
var styles = struct {
	// Layout styles
	Container lipgloss.Style
	Divider   lipgloss.Style

	// Header styles
	Steps  lipgloss.Style
	Result lipgloss.Style

	// Footer style
	Footer lipgloss.Style

	// Event styles
	Step       lipgloss.Style
	Session    lipgloss.Style
	Breakpoint lipgloss.Style
	Error      lipgloss.Style

	// Tree styles
	Node        lipgloss.Style
	NodeCurrent lipgloss.Style // block that completed last
	NodeInvalid lipgloss.Style
	Empty       lipgloss.Style

	// Status colors
	StatusIdle      lipgloss.Style
	StatusRunning   lipgloss.Style
	StatusPaused    lipgloss.Style
	StatusCompleted lipgloss.Style
	StatusStopped   lipgloss.Style
}{
	Container: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")),

	Divider: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	Steps: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	Result: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("220")),

	Footer: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	Step: lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")),

	Session: lipgloss.NewStyle().
		Foreground(lipgloss.Color("177")),

	Breakpoint: lipgloss.NewStyle().
		Foreground(lipgloss.Color("203")),

	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),

	Node: lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")),

	NodeCurrent: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("82")). // Bright green for the last completion
		Background(lipgloss.Color("22")),

	NodeInvalid: lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")),

	Empty: lipgloss.NewStyle().
		Faint(true).
		Foreground(lipgloss.Color("240")),

	StatusIdle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	StatusRunning: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("82")),

	StatusPaused: lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")),

	StatusCompleted: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")),

	StatusStopped: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),
}
