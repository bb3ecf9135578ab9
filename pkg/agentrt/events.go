package agentrt

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// EventType discriminates the runtime's SSE event variants.
type EventType string

const (
	EventSessionMessage    EventType = "session.message"
	EventSessionCompleted  EventType = "session.completed"
	EventSessionError      EventType = "session.error"
	EventTaskStatusChanged EventType = "task.status_changed"
	EventUnknown           EventType = "unknown"
)

// Event is one parsed message from the runtime's /event SSE stream.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	Error     string    `json:"error,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Status    string    `json:"status,omitempty"`
}

// EventStream connects to the runtime's /event endpoint and decodes each
// SSE message into an Event, delivered on a channel.
type EventStream struct {
	client *Client
}

// NewEventStream wraps client for event streaming.
func NewEventStream(client *Client) *EventStream {
	return &EventStream{client: client}
}

// Connect opens the SSE stream and returns a channel of parsed events. The
// channel closes when ctx is cancelled or the connection drops; malformed
// individual events are skipped, not fatal.
func (e *EventStream) Connect(ctx context.Context) (<-chan Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.client.baseURL+"/event", nil)
	if err != nil {
		return nil, fmt.Errorf("build event stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := e.client.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to event stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream connect failed: status %d", resp.StatusCode)
	}

	out := make(chan Event, 100)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var dataLines []string
		flush := func() {
			if len(dataLines) == 0 {
				return
			}
			data := strings.Join(dataLines, "\n")
			dataLines = dataLines[:0]

			var ev Event
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		}

		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				flush()
			case strings.HasPrefix(line, "data:"):
				dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			default:
				// comment or unsupported field (event:, id:, retry:) — ignored
			}

			if ctx.Err() != nil {
				return
			}
		}
		flush()
	}()

	return out, nil
}
