// Package events defines the run events produced while a block tree is being
// evaluated step by step, and the router that fans them out to consumers such
// as the terminal UI and the trace log.
package events

import "time"

// EventType identifies the category and nature of an event.
type EventType string

// Run event types.
const (
	EventRunStart     EventType = "run.start"
	EventStep         EventType = "run.step"
	EventRunPaused    EventType = "run.paused"
	EventRunResumed   EventType = "run.resumed"
	EventRunCompleted EventType = "run.completed"
	EventRunHalted    EventType = "run.halted"
	EventStateChanged EventType = "run.state_changed"

	// Error events
	EventError EventType = "error"
)

// Source constants identify the origin of events.
const (
	SourceEngine     = "engine"
	SourceController = "controller"
)

// Pause reasons reported by RunPausedEvent.
const (
	PauseManual     = "manual"
	PauseBreakpoint = "breakpoint"
	PauseSingleStep = "single_step"
)

// Event is the base interface for all events in the system.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Source() string
}

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	Time      time.Time `json:"timestamp"`
	Src       string    `json:"source"`
	RunID     string    `json:"run_id,omitempty"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// Source returns the origin of the event.
func (e BaseEvent) Source() string {
	return e.Src
}

// NewEngineEvent creates a BaseEvent for a block completion.
func NewEngineEvent(t EventType, runID string) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now(), Src: SourceEngine, RunID: runID}
}

// NewControllerEvent creates a BaseEvent for a run lifecycle change.
func NewControllerEvent(t EventType, runID string) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now(), Src: SourceController, RunID: runID}
}

// RunStartEvent is emitted when a stepped run begins.
type RunStartEvent struct {
	BaseEvent
	RootID string `json:"root_id"`
	Inputs []int  `json:"inputs"`
	Speed  string `json:"speed"`
}

// StepEvent is emitted after a block finishes evaluating. The same block may
// produce many step events in one run.
type StepEvent struct {
	BaseEvent
	Seq        int    `json:"seq"`
	BlockID    string `json:"block_id"`
	BlockType  string `json:"block_type"`
	Label      string `json:"label"`
	Depth      int    `json:"depth"`
	Inputs     []int  `json:"inputs"`
	Output     int    `json:"output"`
	Breakpoint bool   `json:"breakpoint,omitempty"`
}

// RunPausedEvent is emitted when the run suspends at a step boundary.
type RunPausedEvent struct {
	BaseEvent
	Reason  string `json:"reason"`
	BlockID string `json:"block_id,omitempty"`
	Seq     int    `json:"seq"`
}

// RunResumedEvent is emitted when a paused run continues.
type RunResumedEvent struct {
	BaseEvent
}

// RunCompletedEvent carries the final result of a run.
type RunCompletedEvent struct {
	BaseEvent
	Result     int   `json:"result"`
	Steps      int   `json:"steps"`
	DurationMs int64 `json:"duration_ms"`
}

// RunHaltedEvent is emitted when a run is stopped by the user.
type RunHaltedEvent struct {
	BaseEvent
	Steps int `json:"steps"`
}

// StateChangedEvent reports a controller state transition.
type StateChangedEvent struct {
	BaseEvent
	From string `json:"from"`
	To   string `json:"to"`
}

// Severity levels for error events.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// ErrorEvent reports a failed run.
type ErrorEvent struct {
	BaseEvent
	Message  string `json:"message"`
	BlockID  string `json:"block_id,omitempty"`
	Severity string `json:"severity"`
}
