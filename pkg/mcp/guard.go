package mcp

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Guard connects the findings server for the lifetime of a phase and
// guarantees its release, the same role original_source's McpGuard plays
// via Drop — except Go has no destructors, so callers `defer guard.Release`
// instead of relying on scope exit.
type Guard struct {
	manager   *Manager
	sessionID uuid.UUID
	connected bool
	log       *slog.Logger
}

// Connect sets up the findings server and returns a Guard that releases it.
// On setup failure, no Guard is returned and there is nothing to release.
func Connect(ctx context.Context, manager *Manager, taskID, sessionID uuid.UUID, workspacePath, findingsPath string) (*Guard, error) {
	if err := manager.SetupFindingsServer(ctx, taskID, sessionID, workspacePath, findingsPath); err != nil {
		return nil, err
	}
	return &Guard{manager: manager, sessionID: sessionID, connected: true, log: manager.log}, nil
}

// IsConnected reports whether the guard still holds a live connection.
func (g *Guard) IsConnected() bool {
	return g != nil && g.connected
}

// Release disconnects the findings server. Idempotent: calling it more
// than once, or on a nil Guard, is a no-op.
func (g *Guard) Release(ctx context.Context) {
	if g == nil || !g.connected {
		return
	}
	g.manager.CleanupFindingsServer(ctx, g.sessionID)
	g.connected = false
}
