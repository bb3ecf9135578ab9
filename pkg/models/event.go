package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every event variant distributed over the event
// bus. Type returns the wire tag used in the envelope's "type" field.
type Event interface {
	Type() string
	// TaskID returns the task this event pertains to, if any. Used by
	// SubscriptionFilter to decide whether an envelope should be forwarded.
	TaskID() *uuid.UUID
}

// EventEnvelope wraps any Event for distribution over the event bus and the
// WebSocket wire.
type EventEnvelope struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Event     Event     `json:"event"`
}

// NewEventEnvelope creates an envelope with a fresh id and current timestamp.
func NewEventEnvelope(event Event) EventEnvelope {
	return EventEnvelope{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Event:     event,
	}
}

// MarshalJSON flattens the envelope so "event" is merged into the top-level
// object with a "type" discriminator, matching the wire format in §6.
func (e EventEnvelope) MarshalJSON() ([]byte, error) {
	eventJSON, err := json.Marshal(e.Event)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(eventJSON, &fields); err != nil {
		return nil, fmt.Errorf("flatten event payload: %w", err)
	}
	fields["type"] = mustMarshal(e.Event.Type())
	idBytes, _ := json.Marshal(e.ID)
	tsBytes, _ := json.Marshal(e.Timestamp)
	fields["id"] = idBytes
	fields["timestamp"] = tsBytes
	return json.Marshal(fields)
}

func mustMarshal(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func taskIDPtr(id uuid.UUID) *uuid.UUID { return &id }

// --- Task events ---

type TaskCreated struct {
	TaskIDValue uuid.UUID `json:"task_id"`
	Title       string    `json:"title"`
}

func (TaskCreated) Type() string             { return "task.created" }
func (e TaskCreated) TaskID() *uuid.UUID      { return taskIDPtr(e.TaskIDValue) }

type TaskUpdated struct {
	TaskIDValue uuid.UUID `json:"task_id"`
}

func (TaskUpdated) Type() string        { return "task.updated" }
func (e TaskUpdated) TaskID() *uuid.UUID { return taskIDPtr(e.TaskIDValue) }

type TaskStatusChanged struct {
	TaskIDValue uuid.UUID `json:"task_id"`
	FromStatus  string    `json:"from_status"`
	ToStatus    string    `json:"to_status"`
}

func (TaskStatusChanged) Type() string        { return "task.status_changed" }
func (e TaskStatusChanged) TaskID() *uuid.UUID { return taskIDPtr(e.TaskIDValue) }

// --- Session events ---

type SessionStarted struct {
	SessionID        uuid.UUID `json:"session_id"`
	TaskIDValue      uuid.UUID `json:"task_id"`
	Phase            string    `json:"phase"`
	Status           string    `json:"status"`
	AgentSessionID   *string   `json:"agent_session_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func (SessionStarted) Type() string        { return "session.started" }
func (e SessionStarted) TaskID() *uuid.UUID { return taskIDPtr(e.TaskIDValue) }

type SessionEnded struct {
	SessionID   uuid.UUID `json:"session_id"`
	TaskIDValue uuid.UUID `json:"task_id"`
	Success     bool      `json:"success"`
}

func (SessionEnded) Type() string        { return "session.ended" }
func (e SessionEnded) TaskID() *uuid.UUID { return taskIDPtr(e.TaskIDValue) }

// AgentMessageData carries a streamed chunk of agent text.
type AgentMessageData struct {
	Content   string `json:"content"`
	Role      string `json:"role"`
	IsPartial bool   `json:"is_partial"`
}

type AgentMessage struct {
	SessionID   uuid.UUID         `json:"session_id"`
	TaskIDValue uuid.UUID         `json:"task_id"`
	Message     AgentMessageData  `json:"message"`
}

func (AgentMessage) Type() string        { return "agent.message" }
func (e AgentMessage) TaskID() *uuid.UUID { return taskIDPtr(e.TaskIDValue) }

// ToolExecutionData describes one tool invocation by the agent.
type ToolExecutionData struct {
	Name    string  `json:"name"`
	Input   *string `json:"input,omitempty"`
	Output  *string `json:"output,omitempty"`
	Success bool    `json:"success"`
}

type ToolExecution struct {
	SessionID   uuid.UUID         `json:"session_id"`
	TaskIDValue uuid.UUID         `json:"task_id"`
	Tool        ToolExecutionData `json:"tool"`
}

func (ToolExecution) Type() string        { return "tool.execution" }
func (e ToolExecution) TaskID() *uuid.UUID { return taskIDPtr(e.TaskIDValue) }

// --- Workspace events ---

type WorkspaceCreated struct {
	TaskIDValue uuid.UUID `json:"task_id"`
	Path        string    `json:"path"`
}

func (WorkspaceCreated) Type() string        { return "workspace.created" }
func (e WorkspaceCreated) TaskID() *uuid.UUID { return taskIDPtr(e.TaskIDValue) }

type WorkspaceMerged struct {
	TaskIDValue uuid.UUID `json:"task_id"`
	Success     bool      `json:"success"`
}

func (WorkspaceMerged) Type() string        { return "workspace.merged" }
func (e WorkspaceMerged) TaskID() *uuid.UUID { return taskIDPtr(e.TaskIDValue) }

type WorkspaceDeleted struct {
	TaskIDValue uuid.UUID `json:"task_id"`
}

func (WorkspaceDeleted) Type() string        { return "workspace.deleted" }
func (e WorkspaceDeleted) TaskID() *uuid.UUID { return taskIDPtr(e.TaskIDValue) }

// --- System events ---

type ErrorEvent struct {
	Message string  `json:"message"`
	Context *string `json:"context,omitempty"`
}

func (ErrorEvent) Type() string          { return "error" }
func (ErrorEvent) TaskID() *uuid.UUID    { return nil }
