// Package mcp registers and tears down the MCP findings server scoped to a
// single review/fix session, via the agent runtime's MCP wiring endpoints.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/opencode-studio/pkg/agentrt"
)

// FindingsServerName is the server name registered with the agent runtime.
const FindingsServerName = "opencode-findings"

// Manager wires the findings server into an agent-runtime session for the
// duration of a review or fix phase.
type Manager struct {
	client *agentrt.Client
	log    *slog.Logger
}

// NewManager wraps client.
func NewManager(client *agentrt.Client, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{client: client, log: log}
}

// SetupFindingsServer resolves the findings-server binary, registers it
// with the runtime's sessionID, and connects it. The binary's flags carry
// the task/session/workspace/findings-file context it needs to scope its
// output.
func (m *Manager) SetupFindingsServer(ctx context.Context, taskID, sessionID uuid.UUID, workspacePath, findingsPath string) error {
	binary, err := ResolveFindingsBinary()
	if err != nil {
		return fmt.Errorf("resolve mcp findings binary: %w", err)
	}

	m.log.Debug("connecting mcp findings server", "task_id", taskID, "session_id", sessionID)

	args := []string{
		"--task-id", taskID.String(),
		"--session-id", sessionID.String(),
		"--workspace", workspacePath,
		"--findings-path", findingsPath,
	}
	if err := m.client.AddMCPServer(ctx, sessionID.String(), FindingsServerName, binary, args); err != nil {
		return fmt.Errorf("add mcp findings server: %w", err)
	}
	if err := m.client.ConnectMCPServer(ctx, sessionID.String(), FindingsServerName); err != nil {
		return fmt.Errorf("connect mcp findings server: %w", err)
	}

	m.log.Info("mcp findings server connected", "task_id", taskID, "session_id", sessionID)
	return nil
}

// CleanupFindingsServer disconnects the findings server. Disconnect
// failures are logged, not surfaced — the resource is already considered
// released by the time cleanup runs.
func (m *Manager) CleanupFindingsServer(ctx context.Context, sessionID uuid.UUID) {
	m.log.Debug("disconnecting mcp findings server", "session_id", sessionID)
	if err := m.client.DisconnectMCPServer(ctx, sessionID.String(), FindingsServerName); err != nil {
		m.log.Warn("failed to disconnect mcp findings server", "session_id", sessionID, "error", err)
	}
}
