package events

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseEvent_AllTypes(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)

	tests := []struct {
		name        string
		event       Event
		wantType    EventType
		wantBlockID string
	}{
		{
			name: "RunStartEvent",
			event: &RunStartEvent{
				BaseEvent: BaseEvent{EventType: EventRunStart, Time: now, Src: SourceController, RunID: "r1"},
				RootID:    "root",
				Inputs:    []int{1, 2},
				Speed:     "fast",
			},
			wantType:    EventRunStart,
			wantBlockID: "root",
		},
		{
			name: "StepEvent",
			event: &StepEvent{
				BaseEvent: BaseEvent{EventType: EventStep, Time: now, Src: SourceEngine},
				Seq:       4,
				BlockID:   "b-1",
				BlockType: "successor",
				Label:     "Successor",
				Inputs:    []int{3},
				Output:    4,
			},
			wantType:    EventStep,
			wantBlockID: "b-1",
		},
		{
			name: "RunPausedEvent",
			event: &RunPausedEvent{
				BaseEvent: BaseEvent{EventType: EventRunPaused, Time: now, Src: SourceController},
				Reason:    PauseBreakpoint,
				BlockID:   "b-2",
				Seq:       9,
			},
			wantType:    EventRunPaused,
			wantBlockID: "b-2",
		},
		{
			name:     "RunResumedEvent",
			event:    &RunResumedEvent{BaseEvent: BaseEvent{EventType: EventRunResumed, Time: now, Src: SourceController}},
			wantType: EventRunResumed,
		},
		{
			name: "RunCompletedEvent",
			event: &RunCompletedEvent{
				BaseEvent:  BaseEvent{EventType: EventRunCompleted, Time: now, Src: SourceController},
				Result:     12,
				Steps:      30,
				DurationMs: 5,
			},
			wantType: EventRunCompleted,
		},
		{
			name:     "RunHaltedEvent",
			event:    &RunHaltedEvent{BaseEvent: BaseEvent{EventType: EventRunHalted, Time: now, Src: SourceController}, Steps: 2},
			wantType: EventRunHalted,
		},
		{
			name: "StateChangedEvent",
			event: &StateChangedEvent{
				BaseEvent: BaseEvent{EventType: EventStateChanged, Time: now, Src: SourceController},
				From:      "running",
				To:        "paused",
			},
			wantType: EventStateChanged,
		},
		{
			name: "ErrorEvent",
			event: &ErrorEvent{
				BaseEvent: BaseEvent{EventType: EventError, Time: now, Src: SourceController},
				Message:   "missing g1",
				BlockID:   "b-3",
				Severity:  SeverityError,
			},
			wantType:    EventError,
			wantBlockID: "b-3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}

			parsed, err := ParseEvent(data)
			if err != nil {
				t.Fatalf("ParseEvent failed: %v", err)
			}
			if parsed == nil {
				t.Fatal("ParseEvent returned nil")
			}
			if parsed.Type() != tt.wantType {
				t.Errorf("type = %s, want %s", parsed.Type(), tt.wantType)
			}
			if !parsed.Timestamp().Equal(now) {
				t.Errorf("timestamp = %v, want %v", parsed.Timestamp(), now)
			}
			if got := GetBlockID(parsed); got != tt.wantBlockID {
				t.Errorf("GetBlockID = %q, want %q", got, tt.wantBlockID)
			}
		})
	}
}

func TestParseEvent_UnknownType(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"run.rewound"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev != nil {
		t.Errorf("expected nil for unknown type, got %T", ev)
	}
}

func TestParseEvent_InvalidJSON(t *testing.T) {
	if _, err := ParseEvent([]byte(`{not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestReadTrace(t *testing.T) {
	trace := strings.Join([]string{
		`{"type":"run.start","timestamp":"2024-01-02T03:04:05Z","source":"controller","inputs":[3],"speed":"none"}`,
		``,
		`{"type":"run.step","timestamp":"2024-01-02T03:04:05Z","source":"engine","seq":1,"block_id":"z","label":"Zero","inputs":[3],"output":0}`,
		`garbage`,
		`{"type":"run.future","timestamp":"2024-01-02T03:04:05Z"}`,
		`{"type":"run.completed","timestamp":"2024-01-02T03:04:05Z","source":"controller","result":0,"steps":1}`,
	}, "\n")

	evs, err := ReadTrace(strings.NewReader(trace))
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(evs) != 3 {
		t.Fatalf("got %d events, want 3", len(evs))
	}
	step, ok := evs[1].(*StepEvent)
	if !ok || step.BlockID != "z" || step.Inputs[0] != 3 {
		t.Errorf("step = %+v", evs[1])
	}
	if evs[2].Type() != EventRunCompleted {
		t.Errorf("last event = %s", evs[2].Type())
	}
}
