// Package cleanup recovers state left behind by an unclean shutdown and
// reaps abandoned workspaces, mirroring the orphan-detection sweep the
// teacher's queue package runs for its own worker pool.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
	"github.com/codeready-toolchain/opencode-studio/pkg/vcs"
)

func taskIDFromWorkspace(ws vcs.Workspace) (uuid.UUID, error) {
	return uuid.Parse(ws.TaskID)
}

// DefaultReapInterval is how often Service.Run sweeps for abandoned
// workspaces once the process is up.
const DefaultReapInterval = 10 * time.Minute

// recoveryTarget maps the phase a session was running when the process
// died to the task status its owning task must be rolled back to. This is
// deliberately not statemachine.PreviousStatus: that table answers "what
// precedes this status on the happy path", which for ai_review is
// in_progress — wrong here, since ai_review also hosts the review phase,
// whose own failure must leave the task in ai_review, not bounce it back a
// full step.
var recoveryTarget = map[models.SessionPhase]models.TaskStatus{
	models.SessionPhasePlanning:       models.TaskStatusTodo,
	models.SessionPhaseImplementation: models.TaskStatusPlanningReview,
	models.SessionPhaseFix:            models.TaskStatusAiReview,
	models.SessionPhaseReview:         models.TaskStatusAiReview,
}

// Service owns the startup recovery sweep and the recurring
// abandoned-workspace reap.
type Service struct {
	ectx         *engine.ExecutorContext
	reapInterval time.Duration
	log          *slog.Logger
}

// NewService builds a Service. A zero reapInterval falls back to
// DefaultReapInterval.
func NewService(ectx *engine.ExecutorContext, reapInterval time.Duration) *Service {
	if reapInterval <= 0 {
		reapInterval = DefaultReapInterval
	}
	return &Service{ectx: ectx, reapInterval: reapInterval, log: ectx.Log}
}

// RecoverStartupSessions marks every session left running by an unclean
// shutdown as failed and rolls its task back to the status the failed
// phase recovers to. Called once, before the HTTP server starts accepting
// execute requests.
func (s *Service) RecoverStartupSessions(ctx context.Context) error {
	sessions, err := s.ectx.SessionRepo.RunningSessions(ctx)
	if err != nil {
		return fmt.Errorf("list running sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil
	}

	s.log.Warn("recovering sessions left running by an unclean shutdown", "count", len(sessions))
	for _, session := range sessions {
		if err := s.recoverSession(ctx, session); err != nil {
			s.log.Error("failed to recover orphaned session",
				"session_id", session.ID, "task_id", session.TaskID, "error", err)
		}
	}
	return nil
}

func (s *Service) recoverSession(ctx context.Context, session *models.Session) error {
	session.Fail()
	if err := s.ectx.SessionRepo.Update(ctx, session); err != nil {
		return fmt.Errorf("mark session failed: %w", err)
	}
	s.ectx.EmitSessionEnded(session.ID, session.TaskID, false)

	target, ok := recoveryTarget[session.Phase]
	if !ok {
		s.log.Warn("no recovery target for session phase", "phase", session.Phase, "session_id", session.ID)
		return nil
	}

	task, err := s.ectx.TaskRepo.Get(ctx, session.TaskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task.Status == target {
		// The phase that died already owns this status (ai_review hosting
		// a failed review session) — nothing to roll back.
		return nil
	}
	if err := s.ectx.Transition(ctx, task, target); err != nil {
		return fmt.Errorf("roll back task status: %w", err)
	}
	s.log.Info("recovered orphaned session",
		"session_id", session.ID, "task_id", task.ID, "phase", session.Phase, "status", target)
	return nil
}

// Run blocks, reaping abandoned workspaces on every tick until ctx is
// canceled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ReapAbandonedWorkspaces(ctx); err != nil {
				s.log.Error("abandoned workspace reap failed", "error", err)
			}
		}
	}
}

// ReapAbandonedWorkspaces deletes every workspace the backend reports as
// abandoned. A workspace with uncommitted changes is flagged in the log
// before deletion rather than skipped — an abandoned workspace's task has
// already left the tree, so there is no later phase left to recover them.
// The git and jujutsu backends' ListWorkspaces report every workspace as
// active, so with those backends nothing is reaped.
func (s *Service) ReapAbandonedWorkspaces(ctx context.Context) error {
	workspaces, err := s.ectx.WorkspaceManager.ListWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("list workspaces: %w", err)
	}

	var reaped int
	for _, ws := range workspaces {
		if ws.Status != vcs.WorkspaceStatusAbandoned {
			continue
		}
		if dirty, err := s.ectx.WorkspaceManager.HasUncommittedChanges(ctx, ws); err != nil {
			s.log.Warn("failed to check workspace for uncommitted changes before reap",
				"task_id", ws.TaskID, "error", err)
		} else if dirty {
			s.log.Warn("reaping abandoned workspace with uncommitted changes",
				"task_id", ws.TaskID, "path", ws.Path)
		}

		if err := s.ectx.WorkspaceManager.CleanupWorkspace(ctx, ws); err != nil {
			s.log.Error("failed to reap abandoned workspace", "task_id", ws.TaskID, "error", err)
			continue
		}
		if id, parseErr := taskIDFromWorkspace(ws); parseErr == nil {
			s.ectx.EmitEvent(models.WorkspaceDeleted{TaskIDValue: id})
		}
		reaped++
	}
	if reaped > 0 {
		s.log.Info("reaped abandoned workspaces", "count", reaped)
	}
	return nil
}
