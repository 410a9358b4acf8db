package events

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewLogSink(t *testing.T) {
	sink := NewLogSink("/tmp/trace.jsonl")
	if sink.Path() != "/tmp/trace.jsonl" {
		t.Errorf("Path() = %q, want %q", sink.Path(), "/tmp/trace.jsonl")
	}
}

func TestLogSinkCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "nested", "trace.jsonl")

	sink := NewLogSink(path)
	events := make(chan Event, 10)
	ctx, cancel := context.WithCancel(context.Background())

	if err := sink.Start(ctx, events); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}

	cancel()
	_ = sink.Stop()
}

func TestLogSinkWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")

	sink := NewLogSink(path)
	events := make(chan Event, 10)
	ctx, cancel := context.WithCancel(context.Background())

	if err := sink.Start(ctx, events); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	events <- &RunStartEvent{
		BaseEvent: NewControllerEvent(EventRunStart, "run-1"),
		RootID:    "root",
		Inputs:    []int{2, 3},
		Speed:     "none",
	}
	events <- &StepEvent{
		BaseEvent: NewEngineEvent(EventStep, "run-1"),
		Seq:       1,
		BlockID:   "b-1",
		BlockType: "successor",
		Inputs:    []int{2},
		Output:    3,
	}
	events <- &RunCompletedEvent{
		BaseEvent: NewControllerEvent(EventRunCompleted, "run-1"),
		Result:    3,
		Steps:     1,
	}

	// Cancel straight away: buffered events must still be written.
	cancel()
	if err := sink.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read trace: %v", err)
	}
	content := string(data)

	for _, typ := range []string{"run.start", "run.step", "run.completed"} {
		if !strings.Contains(content, `"type":"`+typ+`"`) {
			t.Errorf("expected %s event in trace", typ)
		}
	}

	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	for i, line := range lines {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i, err)
		}
		if m["run_id"] != "run-1" {
			t.Errorf("line %d run_id = %v", i, m["run_id"])
		}
	}
	if sink.Written() != 3 {
		t.Errorf("Written() = %d, want 3", sink.Written())
	}
}

func TestLogSinkRotatesPreviousRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.jsonl")

	old := `{"type":"run.start","timestamp":"2024-01-01T00:00:00Z","source":"controller"}` + "\n"
	if err := os.WriteFile(path, []byte(old), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sink := NewLogSink(path)
	events := make(chan Event, 1)
	if err := sink.Start(context.Background(), events); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	events <- &RunHaltedEvent{BaseEvent: NewControllerEvent(EventRunHalted, "run-2")}
	close(events)
	_ = sink.Stop()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "2024-01-01") {
		t.Error("previous run left in the new trace")
	}
	if !strings.Contains(string(data), `"type":"run.halted"`) {
		t.Error("expected new event in trace")
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "trace.jsonl.*.bak"))
	if len(matches) != 1 {
		t.Errorf("expected one backup, got %v", matches)
	}
}

func TestLogSinkHandlesClosedChannel(t *testing.T) {
	sink := NewLogSink(filepath.Join(t.TempDir(), "trace.jsonl"))
	events := make(chan Event, 10)

	if err := sink.Start(context.Background(), events); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	close(events)

	done := make(chan struct{})
	go func() {
		_ = sink.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Stop timed out after channel close")
	}
}
