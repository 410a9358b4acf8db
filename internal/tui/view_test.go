package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/npratt/prfkit/internal/block"
	"github.com/npratt/prfkit/internal/events"
	"github.com/npratt/prfkit/internal/testutil"
)

func TestSafeWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"positive", 100, 100},
		{"zero", 0, 1},
		{"negative", -10, 1},
		{"one", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := safeWidth(tt.input)
			if result != tt.expected {
				t.Errorf("safeWidth(%d) = %d, want %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSafeScroll(t *testing.T) {
	tests := []struct {
		name         string
		pos          int
		totalLines   int
		visibleLines int
		expected     int
	}{
		{"normal position", 5, 20, 10, 5},
		{"negative position", -5, 20, 10, 0},
		{"at max", 10, 20, 10, 10},
		{"past max", 15, 20, 10, 10},
		{"more visible than total", 5, 5, 10, 0},
		{"zero total", 0, 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := safeScroll(tt.pos, tt.totalLines, tt.visibleLines)
			if result != tt.expected {
				t.Errorf("safeScroll(%d, %d, %d) = %d, want %d",
					tt.pos, tt.totalLines, tt.visibleLines, result, tt.expected)
			}
		})
	}
}

func TestView_Sizes(t *testing.T) {
	m := newTestModel(nil)
	m.width, m.height = 0, 0
	if got := m.View(); got != "Loading..." {
		t.Errorf("unsized view = %q", got)
	}

	m.width, m.height = 40, 10
	if got := m.View(); !strings.Contains(got, "Terminal too small") {
		t.Errorf("small view = %q", got)
	}
}

func TestView_ShowsTreeAndOutputs(t *testing.T) {
	root := testutil.Add()
	block.Propagate(root, 2)
	f := root.Child(block.SlotRecursive).Child(block.SlotF)

	stepper := &fakeStepper{speed: "fast"}
	m := newModel(make(chan events.Event), buildRows(root), stepper, nil)
	m.width, m.height = 100, 40

	m.handleEvent(&events.StepEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventStep, Time: time.Now()},
		Seq:       3,
		BlockID:   f.ID,
		Label:     "Successor",
		Inputs:    []int{4},
		Output:    5,
	})

	out := m.View()
	for _, want := range []string{
		"Primitive Recursion [2 in]",
		"Base Case: Projection [1 in]",
		"Successor [1 in] = 5",
		"steps: 3",
		"speed: fast",
		"breakpoints: on",
		"Successor(4) = 5",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_ResultAndError(t *testing.T) {
	m := newTestModel(nil)
	r := 12
	m.result = &r
	m.status = "completed"
	out := m.View()
	if !strings.Contains(out, "result: 12") || !strings.Contains(out, "COMPLETED") {
		t.Error("completed view missing result")
	}
	if !strings.Contains(out, "q: quit") {
		t.Error("footer missing quit hint")
	}

	m.errMsg = "missing f"
	m.status = "errored"
	if out := m.View(); !strings.Contains(out, "error: missing f") {
		t.Error("errored view missing message")
	}
}

func TestRenderStatus_PauseReason(t *testing.T) {
	m := newTestModel(nil)
	m.status = "paused"
	m.pauseReason = events.PauseSingleStep
	if got := m.renderStatus(); !strings.Contains(got, "PAUSED (single step)") {
		t.Errorf("renderStatus = %q", got)
	}
}

func TestStyleForEvent(t *testing.T) {
	bp := &events.StepEvent{Breakpoint: true}
	if StyleForEvent(bp).GetForeground() != styles.Breakpoint.GetForeground() {
		t.Error("breakpoint step should use breakpoint style")
	}
	if StyleForEvent(&events.ErrorEvent{}).GetForeground() != styles.Error.GetForeground() {
		t.Error("error event should use error style")
	}
	_ = StyleForEvent(nil)
}
