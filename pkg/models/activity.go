package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Well-known activity types. Additional types may appear in data (the store
// does not enforce an enum), but these are the ones the phase engine emits.
const (
	ActivityTypeAgentMessage = "agent_message"
	ActivityTypeToolCall     = "tool_call"
	ActivityTypeToolResult   = "tool_result"
	ActivityTypeFinished     = "finished"
)

// SessionActivity is one append-only log entry bound to a Session.
type SessionActivity struct {
	ID           int64           `json:"id"`
	SessionID    uuid.UUID       `json:"session_id"`
	ActivityType string          `json:"activity_type"`
	ActivityID   *string         `json:"activity_id,omitempty"`
	Data         json.RawMessage `json:"data"`
	CreatedAt    time.Time       `json:"created_at"`
}

// FinishedData is the payload of a "finished" activity.
type FinishedData struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
