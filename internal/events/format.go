package events

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	maxLabelLength    = 40
	maxMessageLength  = 120
	maxInputsShown    = 8
	truncateIndicator = "..."
)

// Format converts an event to a human-readable line.
// Returns empty string for nil or unknown event types.
func Format(event Event) string {
	if event == nil {
		return ""
	}

	switch e := event.(type) {
	case *RunStartEvent:
		return fmt.Sprintf("START %s speed=%s", FormatInputs(e.Inputs), e.Speed)
	case *StepEvent:
		return formatStep(e)
	case *RunPausedEvent:
		return formatPaused(e)
	case *RunResumedEvent:
		return "RESUMED"
	case *RunCompletedEvent:
		return fmt.Sprintf("DONE result=%d steps=%d (%dms)", e.Result, e.Steps, e.DurationMs)
	case *RunHaltedEvent:
		return fmt.Sprintf("HALTED after %d steps", e.Steps)
	case *StateChangedEvent:
		return fmt.Sprintf("state %s -> %s", e.From, e.To)
	case *ErrorEvent:
		return formatError(e)
	default:
		return ""
	}
}

// FormatWithTimestamp formats an event with a timestamp prefix.
func FormatWithTimestamp(event Event) string {
	if event == nil {
		return ""
	}
	ts := event.Timestamp().Format("15:04:05.000")
	detail := Format(event)
	if detail == "" {
		return fmt.Sprintf("[%s] %s", ts, event.Type())
	}
	return fmt.Sprintf("[%s] %s", ts, detail)
}

func formatStep(e *StepEvent) string {
	marker := ""
	if e.Breakpoint {
		marker = " *"
	}
	return fmt.Sprintf("#%-4d %s%s%s = %d%s",
		e.Seq,
		strings.Repeat("  ", e.Depth),
		Truncate(e.Label, maxLabelLength),
		FormatInputs(e.Inputs),
		e.Output,
		marker,
	)
}

func formatPaused(e *RunPausedEvent) string {
	switch e.Reason {
	case PauseBreakpoint:
		return fmt.Sprintf("PAUSED at breakpoint after step %d", e.Seq)
	case PauseSingleStep:
		return fmt.Sprintf("PAUSED after step %d", e.Seq)
	default:
		return fmt.Sprintf("PAUSED after step %d", e.Seq)
	}
}

func formatError(e *ErrorEvent) string {
	severity := e.Severity
	if severity == "" {
		severity = SeverityError
	}
	return fmt.Sprintf("%s: %s", strings.ToUpper(severity), Truncate(e.Message, maxMessageLength))
}

// FormatInputs renders an input vector as "(a, b, c)", eliding the middle of
// long vectors.
func FormatInputs(inputs []int) string {
	parts := make([]string, 0, len(inputs))
	for i, v := range inputs {
		if len(inputs) > maxInputsShown && i == maxInputsShown/2 {
			parts = append(parts, truncateIndicator)
		}
		if len(inputs) > maxInputsShown && i >= maxInputsShown/2 && i < len(inputs)-maxInputsShown/2 {
			continue
		}
		parts = append(parts, strconv.Itoa(v))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Truncate shortens text to maxLen, adding indicator if truncated.
func Truncate(s string, maxLen int) string {
	s = SafeString(s)
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= len(truncateIndicator) {
		return truncateIndicator
	}
	return s[:maxLen-len(truncateIndicator)] + truncateIndicator
}

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// SafeString strips escape sequences and control characters from user
// supplied text such as custom block names.
func SafeString(s string) string {
	s = ansiRegex.ReplaceAllString(s, "")
	s = strings.NewReplacer("\n", " ", "\r", " ").Replace(s)

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r == ' ' || !unicode.IsControl(r) {
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
