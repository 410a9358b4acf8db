package events

import (
	"encoding/json"
	"testing"
	"time"
)

// TestEventInterfaceCompliance verifies all concrete event types implement Event.
func TestEventInterfaceCompliance(t *testing.T) {
	var _ Event = (*RunStartEvent)(nil)
	var _ Event = (*StepEvent)(nil)
	var _ Event = (*RunPausedEvent)(nil)
	var _ Event = (*RunResumedEvent)(nil)
	var _ Event = (*RunCompletedEvent)(nil)
	var _ Event = (*RunHaltedEvent)(nil)
	var _ Event = (*StateChangedEvent)(nil)
	var _ Event = (*ErrorEvent)(nil)

	// Also test that BaseEvent itself implements Event
	var _ Event = (*BaseEvent)(nil)
}

func TestBaseEventMethods(t *testing.T) {
	now := time.Now()
	event := BaseEvent{
		EventType: EventStep,
		Time:      now,
		Src:       SourceEngine,
	}

	if event.Type() != EventStep {
		t.Errorf("Type() = %q, want %q", event.Type(), EventStep)
	}
	if !event.Timestamp().Equal(now) {
		t.Errorf("Timestamp() = %v, want %v", event.Timestamp(), now)
	}
	if event.Source() != SourceEngine {
		t.Errorf("Source() = %q, want %q", event.Source(), SourceEngine)
	}
}

func TestNewEventConstructors(t *testing.T) {
	before := time.Now()
	e := NewEngineEvent(EventStep, "run-1")
	c := NewControllerEvent(EventRunPaused, "run-1")
	after := time.Now()

	if e.Src != SourceEngine || c.Src != SourceController {
		t.Errorf("sources = %q, %q", e.Src, c.Src)
	}
	if e.RunID != "run-1" || c.RunID != "run-1" {
		t.Error("run id not carried")
	}
	if e.Time.Before(before) || e.Time.After(after) {
		t.Errorf("timestamp %v outside [%v, %v]", e.Time, before, after)
	}
}

func TestStepEventJSON(t *testing.T) {
	event := StepEvent{
		BaseEvent: BaseEvent{EventType: EventStep, Time: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Src: SourceEngine},
		Seq:       2,
		BlockID:   "abc",
		BlockType: "projection",
		Label:     "Projection",
		Depth:     1,
		Inputs:    []int{4, 5},
		Output:    5,
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for _, key := range []string{"type", "timestamp", "source", "seq", "block_id", "inputs", "output"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if _, ok := m["breakpoint"]; ok {
		t.Error("breakpoint should be omitted when false")
	}
	if _, ok := m["run_id"]; ok {
		t.Error("run_id should be omitted when empty")
	}
}
