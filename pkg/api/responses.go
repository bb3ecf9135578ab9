package api

import (
	"github.com/google/uuid"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// ErrorResponse is the wire shape for every non-2xx response, per spec.md §6/§7.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ExecuteResponse is returned by POST /api/tasks/{id}/execute.
type ExecuteResponse struct {
	SessionID uuid.UUID          `json:"session_id"`
	Phase     models.SessionPhase `json:"phase"`
}

// ProjectResponse is returned by GET /api/project.
type ProjectResponse struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	VCS        string `json:"vcs"`
	TasksCount int    `json:"tasks_count"`
}

// DiffResponse is returned by GET /api/workspaces/{task_id}/diff.
type DiffResponse struct {
	TaskID string `json:"task_id"`
	Diff   string `json:"diff"`
}

// StatusResponse is returned by GET /api/workspaces/{task_id}.
type StatusResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// EventBusHealth reports the event bus's live subscriber count.
type EventBusHealth struct {
	SubscriberCount int `json:"subscriber_count"`
}

// VCSHealth reports whether the configured VCS backend binary is usable.
type VCSHealth struct {
	Backend   string `json:"backend"`
	Available bool   `json:"available"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status         string         `json:"status"`
	Version        string         `json:"version"`
	EventBus       EventBusHealth `json:"event_bus"`
	ActiveSessions int            `json:"active_sessions"`
	VCS            VCSHealth      `json:"vcs"`
}
