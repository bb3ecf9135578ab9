// Package models defines the core domain entities of the task orchestrator:
// tasks, sessions, activities, workspaces and the events that describe their
// lifecycle.
package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the task lifecycle state. Transitions between values are
// validated by pkg/statemachine, never by the model itself.
type TaskStatus string

const (
	TaskStatusTodo            TaskStatus = "todo"
	TaskStatusPlanning        TaskStatus = "planning"
	TaskStatusPlanningReview  TaskStatus = "planning_review"
	TaskStatusInProgress      TaskStatus = "in_progress"
	TaskStatusAiReview        TaskStatus = "ai_review"
	TaskStatusReview          TaskStatus = "review"
	TaskStatusFix             TaskStatus = "fix"
	TaskStatusDone            TaskStatus = "done"
)

// String returns the wire representation of the status.
func (s TaskStatus) String() string {
	return string(s)
}

// ParseTaskStatus parses a wire string into a TaskStatus, rejecting unknown
// values so malformed persisted rows or request bodies fail loudly.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case TaskStatusTodo, TaskStatusPlanning, TaskStatusPlanningReview,
		TaskStatusInProgress, TaskStatusAiReview, TaskStatusReview,
		TaskStatusFix, TaskStatusDone:
		return TaskStatus(s), true
	default:
		return "", false
	}
}

// Task is a unit of work tracked through the planning/implementation/review
// lifecycle.
type Task struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         TaskStatus `json:"status"`
	RoadmapItemID  *uuid.UUID `json:"roadmap_item_id,omitempty"`
	WorkspacePath  *string    `json:"workspace_path,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewTask creates a Task in its initial todo status.
func NewTask(title, description string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Status:      TaskStatusTodo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CreateTaskRequest is the POST /api/tasks request body.
type CreateTaskRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	RoadmapItemID *uuid.UUID `json:"roadmap_item_id,omitempty"`
}

// UpdateTaskRequest is the PATCH /api/tasks/{id} request body. Nil fields are
// left untouched.
type UpdateTaskRequest struct {
	Title         *string     `json:"title,omitempty"`
	Description   *string     `json:"description,omitempty"`
	Status        *TaskStatus `json:"status,omitempty"`
	WorkspacePath *string     `json:"workspace_path,omitempty"`
}

// TransitionRequest is the POST /api/tasks/{id}/transition request body.
type TransitionRequest struct {
	To TaskStatus `json:"to"`
}
