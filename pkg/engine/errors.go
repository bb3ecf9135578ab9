package engine

import (
	"errors"
	"fmt"
)

// ErrSessionExists is returned when execution is requested for a task that
// already has a pending or running session.
var ErrSessionExists = errors.New("task already has an active session")

// AgentRuntimeError wraps a failure from the agent runtime (create
// session, send prompt, MCP wiring) with the operation that failed.
type AgentRuntimeError struct {
	Op  string
	Err error
}

func (e *AgentRuntimeError) Error() string {
	return fmt.Sprintf("agent runtime: %s: %v", e.Op, e.Err)
}

func (e *AgentRuntimeError) Unwrap() error { return e.Err }

// VcsCommandFailedError wraps a VCS backend failure so the caller sees
// which workspace operation failed, with the backend's own error folded
// in (the backend already carries stderr — see pkg/vcs.CommandError).
type VcsCommandFailedError struct {
	Op  string
	Err error
}

func (e *VcsCommandFailedError) Error() string {
	return fmt.Sprintf("vcs: %s: %v", e.Op, e.Err)
}

func (e *VcsCommandFailedError) Unwrap() error { return e.Err }
