package testutil

import (
	"bufio"
	"strings"
	"testing"
)

// SSEEvent is one parsed server-sent event.
type SSEEvent struct {
	Type string
	Data string
}

// ParseSSE parses a text/event-stream body into its events. Multiple
// data lines within one event are joined with newlines; comment lines
// are skipped; a missing terminator fails the test.
func ParseSSE(t *testing.T, body string) []SSEEvent {
	t.Helper()

	var (
		events  []SSEEvent
		current SSEEvent
		data    []string
	)

	flush := func() {
		if current.Type == "" && len(data) == 0 {
			return
		}
		if current.Type == "" {
			current.Type = "message"
		}
		current.Data = strings.Join(data, "\n")
		events = append(events, current)
		current = SSEEvent{}
		data = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "event: "):
			current.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		case strings.HasPrefix(line, ":"):
			// comment, skip
		default:
			t.Fatalf("unexpected SSE line: %q", line)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning SSE body: %v", err)
	}
	if current.Type != "" || len(data) > 0 {
		t.Fatalf("SSE stream ended mid-event (missing blank line)")
	}
	return events
}

// EventsOfType filters events by type.
func EventsOfType(events []SSEEvent, typ string) []SSEEvent {
	var out []SSEEvent
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
