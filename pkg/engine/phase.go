// Package engine drives one phase execution end-to-end: resource
// acquisition, agent-runtime session creation, prompt dispatch, activity
// streaming, result classification, and status transition, all wrapped in
// RAII-style guards so every exit path leaves the task and session in a
// consistent state.
package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// SessionOutput is what the engine hands to a phase's ProcessResult once
// the agent-runtime session reaches a terminal state.
type SessionOutput struct {
	SessionID      uuid.UUID
	AgentSessionID string
	ResponseText   string
	Success        bool
	Error          string
}

// McpServerType enumerates the kinds of MCP server a phase can request.
type McpServerType string

// McpServerTypeFindings is the only server type the engine currently wires.
const McpServerTypeFindings McpServerType = "findings"

// McpServerSpec names an MCP server a phase wants connected for its session.
type McpServerSpec struct {
	Name       string
	ServerType McpServerType
}

// FindingsServerSpec returns the spec for the shared findings server.
func FindingsServerSpec() McpServerSpec {
	return McpServerSpec{Name: "opencode-findings", ServerType: McpServerTypeFindings}
}

// PhaseMetadata carries phase-specific bookkeeping through build/process.
type PhaseMetadata struct {
	// Implementation
	PhaseNumber *int
	TotalPhases *int
	// Review
	Iteration int
}

// PhaseConfig is what a phase hands back to the engine before it opens a
// session.
type PhaseConfig struct {
	Prompt             string
	WorkingDir         string
	Model              string
	MCPServers         []McpServerSpec
	SkipStatusUpdate   bool
	Metadata           PhaseMetadata
}

// ResourceRequirements tells the engine what to acquire before running a
// phase.
type ResourceRequirements struct {
	NeedsWorkspace   bool
	NeedsMcpFindings bool
	NeedsDiff        bool
}

// PhaseOutcomeKind discriminates the PhaseOutcome variants.
type PhaseOutcomeKind int

const (
	OutcomeTransition PhaseOutcomeKind = iota
	OutcomeAwaitingApproval
	OutcomeIterate
	OutcomeContinue
	OutcomeComplete
)

// PhaseOutcome is the result of ProcessResult. Exactly the fields relevant
// to Kind are meaningful; the rest are zero.
type PhaseOutcome struct {
	Kind       PhaseOutcomeKind
	NextStatus models.TaskStatus // OutcomeTransition
	Phase      models.SessionPhase // OutcomeAwaitingApproval
	Feedback   string            // OutcomeIterate
	Iteration  int               // OutcomeIterate
}

// Phase is the interface every phase implementation (planning,
// implementation, review, fix) satisfies. The engine does not know which
// phase it is driving — it only calls through this interface.
type Phase interface {
	// PhaseType identifies which SessionPhase this implementation runs as.
	PhaseType() models.SessionPhase

	// RequiredResources tells the engine what to acquire before running.
	RequiredResources() ResourceRequirements

	// BuildConfig prepares the prompt and session configuration.
	BuildConfig(ctx context.Context, ectx *ExecutorContext, task *models.Task) (PhaseConfig, error)

	// ProcessResult handles the session's terminal output: persists
	// artifacts, applies a status transition, and reports what the engine
	// should do next.
	ProcessResult(ctx context.Context, ectx *ExecutorContext, task *models.Task, result SessionOutput) (PhaseOutcome, error)
}
