package engine

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/opencode-studio/pkg/events"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// sessionGuard ensures a session is never left visibly running: unless
// markCompleted is called, release emits SessionEnded{success: false} so
// no client sees a session stuck "running" after an engine-side panic or
// early return. Mirrors pkg/mcp.Guard's defer-released shape.
type sessionGuard struct {
	sessionID uuid.UUID
	taskID    uuid.UUID
	bus       *events.Bus
	completed bool
	log       *slog.Logger
}

func newSessionGuard(sessionID, taskID uuid.UUID, bus *events.Bus, log *slog.Logger) *sessionGuard {
	if log == nil {
		log = slog.Default()
	}
	return &sessionGuard{sessionID: sessionID, taskID: taskID, bus: bus, log: log}
}

// markCompleted records that the session reached a terminal state through
// the normal finalization path, so release is a no-op.
func (g *sessionGuard) markCompleted() {
	g.completed = true
}

// markFailed immediately emits the failure event and marks the guard
// completed, preventing a duplicate emission on release.
func (g *sessionGuard) markFailed() {
	if g.completed {
		return
	}
	g.emitFailure()
	g.completed = true
}

// release is the deferred cleanup call. If the session was never marked
// completed or failed, it is treated as terminated unexpectedly.
func (g *sessionGuard) release() {
	if g == nil || g.completed {
		return
	}
	g.log.Warn("session guard released without completion, emitting failure",
		"session_id", g.sessionID, "task_id", g.taskID)
	g.emitFailure()
}

func (g *sessionGuard) emitFailure() {
	if g.bus == nil {
		return
	}
	g.bus.Publish(models.NewEventEnvelope(models.SessionEnded{
		SessionID:   g.sessionID,
		TaskIDValue: g.taskID,
		Success:     false,
	}))
}
