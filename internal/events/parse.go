package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// eventEnvelope is used for initial JSON parsing to determine event type.
type eventEnvelope struct {
	Type EventType `json:"type"`
}

// ParseEvent parses a JSON line into a typed Event.
// Returns nil with no error for unknown event types (for forward compatibility).
func ParseEvent(line []byte) (Event, error) {
	// First pass: determine event type
	var envelope eventEnvelope
	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, err
	}

	// Second pass: unmarshal into the correct type
	var ev Event
	switch envelope.Type {
	case EventRunStart:
		ev = &RunStartEvent{}
	case EventStep:
		ev = &StepEvent{}
	case EventRunPaused:
		ev = &RunPausedEvent{}
	case EventRunResumed:
		ev = &RunResumedEvent{}
	case EventRunCompleted:
		ev = &RunCompletedEvent{}
	case EventRunHalted:
		ev = &RunHaltedEvent{}
	case EventStateChanged:
		ev = &StateChangedEvent{}
	case EventError:
		ev = &ErrorEvent{}
	default:
		// Unknown event type - skip it for forward compatibility
		slog.Debug("unknown event type", "type", envelope.Type)
		return nil, nil
	}

	if err := json.Unmarshal(line, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// ReadTrace parses a JSONL run trace. Malformed lines are logged and
// skipped; blank lines and unknown event types are ignored.
func ReadTrace(r io.Reader) ([]Event, error) {
	var out []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := ParseEvent(line)
		if err != nil {
			slog.Warn("skipping malformed trace line", "line", lineNum, "error", err)
			continue
		}
		if ev != nil {
			out = append(out, ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("reading trace: %w", err)
	}
	return out, nil
}

// ReadTraceFile is ReadTrace over the file at path.
func ReadTraceFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadTrace(f)
}

// GetBlockID extracts the block ID from an event, if present.
// Returns empty string for events without an associated block.
func GetBlockID(ev Event) string {
	switch e := ev.(type) {
	case *StepEvent:
		return e.BlockID
	case *RunPausedEvent:
		return e.BlockID
	case *RunStartEvent:
		return e.RootID
	case *ErrorEvent:
		return e.BlockID
	default:
		return ""
	}
}
