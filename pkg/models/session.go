package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionPhase is which orchestrator phase a Session belongs to.
type SessionPhase string

const (
	SessionPhasePlanning       SessionPhase = "planning"
	SessionPhaseImplementation SessionPhase = "implementation"
	SessionPhaseReview         SessionPhase = "review"
	SessionPhaseFix            SessionPhase = "fix"
)

func (p SessionPhase) String() string { return string(p) }

// ParseSessionPhase parses a wire string into a SessionPhase.
func ParseSessionPhase(s string) (SessionPhase, bool) {
	switch SessionPhase(s) {
	case SessionPhasePlanning, SessionPhaseImplementation, SessionPhaseReview, SessionPhaseFix:
		return SessionPhase(s), true
	default:
		return "", false
	}
}

// SessionStatus is the monotonic lifecycle of one agent-runtime conversation.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
	SessionStatusAborted   SessionStatus = "aborted"
)

func (s SessionStatus) String() string { return string(s) }

// ParseSessionStatus parses a wire string into a SessionStatus.
func ParseSessionStatus(s string) (SessionStatus, bool) {
	switch SessionStatus(s) {
	case SessionStatusPending, SessionStatusRunning, SessionStatusCompleted,
		SessionStatusFailed, SessionStatusAborted:
		return SessionStatus(s), true
	default:
		return "", false
	}
}

// Terminal reports whether the status ends the session's lifecycle.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusFailed, SessionStatusAborted:
		return true
	default:
		return false
	}
}

// Session is one agent-runtime conversation bound to a single phase of a
// single task. agent_session_id is set exactly when status has reached
// running; completed_at is set exactly when status is terminal.
type Session struct {
	ID             uuid.UUID     `json:"id"`
	TaskID         uuid.UUID     `json:"task_id"`
	AgentSessionID *string       `json:"agent_session_id,omitempty"`
	Phase          SessionPhase  `json:"phase"`
	Status         SessionStatus `json:"status"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// NewSession creates a Session in the pending status.
func NewSession(taskID uuid.UUID, phase SessionPhase) *Session {
	return &Session{
		ID:        uuid.New(),
		TaskID:    taskID,
		Phase:     phase,
		Status:    SessionStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Start transitions the session to running and records the runtime's opaque
// session identifier.
func (s *Session) Start(agentSessionID string) {
	s.AgentSessionID = &agentSessionID
	s.Status = SessionStatusRunning
	now := time.Now().UTC()
	s.StartedAt = &now
}

// Complete marks the session successfully finished.
func (s *Session) Complete() {
	s.Status = SessionStatusCompleted
	now := time.Now().UTC()
	s.CompletedAt = &now
}

// Fail marks the session as having failed.
func (s *Session) Fail() {
	s.Status = SessionStatusFailed
	now := time.Now().UTC()
	s.CompletedAt = &now
}

// Abort marks the session as aborted by the user.
func (s *Session) Abort() {
	s.Status = SessionStatusAborted
	now := time.Now().UTC()
	s.CompletedAt = &now
}
