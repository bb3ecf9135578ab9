package phases

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// FixModeKind discriminates the three ways a FixPhase can be instructed.
type FixModeKind int

const (
	// FixModeMcpFindings drives the fix from the findings MCP server's
	// structured output.
	FixModeMcpFindings FixModeKind = iota
	// FixModeFeedback drives the fix from a review phase's free-text
	// CHANGES_REQUESTED feedback.
	FixModeFeedback
	// FixModeUserComments drives the fix from human-authored, file/line
	// anchored review comments.
	FixModeUserComments
)

// FixMode selects how a FixPhase builds its prompt. Exactly one of
// Feedback/Comments is meaningful, matching Kind.
type FixMode struct {
	Kind     FixModeKind
	Feedback string
	Comments []models.ReviewComment
}

// NewFixWithMcpFindings builds a FixMode driven by the findings MCP server.
func NewFixWithMcpFindings() FixMode {
	return FixMode{Kind: FixModeMcpFindings}
}

// NewFixWithFeedback builds a FixMode driven by a review's feedback text.
func NewFixWithFeedback(feedback string) FixMode {
	return FixMode{Kind: FixModeFeedback, Feedback: feedback}
}

// NewFixWithUserComments builds a FixMode driven by explicit review
// comments.
func NewFixWithUserComments(comments []models.ReviewComment) FixMode {
	return FixMode{Kind: FixModeUserComments, Comments: comments}
}

// RequiresMcp reports whether this mode needs the findings MCP server
// connected for its session.
func (m FixMode) RequiresMcp() bool {
	return m.Kind == FixModeMcpFindings
}

// FixPhase addresses review findings and implements corrections. After
// fixing, the task always transitions back to ai_review for
// re-verification — regardless of which mode drove it.
type FixPhase struct {
	mode FixMode
}

// NewFixPhase creates a FixPhase in mode.
func NewFixPhase(mode FixMode) *FixPhase {
	return &FixPhase{mode: mode}
}

// Mode returns the fix mode this phase was constructed with.
func (p *FixPhase) Mode() FixMode {
	return p.mode
}

func (p *FixPhase) PhaseType() models.SessionPhase {
	return models.SessionPhaseFix
}

func (p *FixPhase) RequiredResources() engine.ResourceRequirements {
	return engine.ResourceRequirements{NeedsWorkspace: true, NeedsMcpFindings: p.mode.RequiresMcp()}
}

func (p *FixPhase) BuildConfig(ctx context.Context, ectx *engine.ExecutorContext, task *models.Task) (engine.PhaseConfig, error) {
	var prompt string
	switch p.mode.Kind {
	case FixModeMcpFindings:
		prompt = fixWithMcpPrompt(task)
	case FixModeFeedback:
		prompt = fixIssuesPrompt(task, p.mode.Feedback)
	case FixModeUserComments:
		prompt = fixUserCommentsPrompt(task, p.mode.Comments)
	default:
		return engine.PhaseConfig{}, fmt.Errorf("fix phase: unknown mode %v", p.mode.Kind)
	}

	cfg := engine.PhaseConfig{
		Prompt:     prompt,
		WorkingDir: ectx.WorkingDirForTask(task),
	}
	if p.mode.RequiresMcp() {
		cfg.MCPServers = []engine.McpServerSpec{engine.FindingsServerSpec()}
	}
	return cfg, nil
}

func (p *FixPhase) ProcessResult(ctx context.Context, ectx *engine.ExecutorContext, task *models.Task, result engine.SessionOutput) (engine.PhaseOutcome, error) {
	if !result.Success {
		if err := ectx.Transition(ctx, task, models.TaskStatusAiReview); err != nil {
			return engine.PhaseOutcome{}, fmt.Errorf("revert failed fix: %w", err)
		}
		return engine.PhaseOutcome{Kind: engine.OutcomeTransition, NextStatus: models.TaskStatusAiReview}, nil
	}

	if err := ectx.Transition(ctx, task, models.TaskStatusAiReview); err != nil {
		return engine.PhaseOutcome{}, fmt.Errorf("transition to ai_review: %w", err)
	}
	return engine.PhaseOutcome{Kind: engine.OutcomeTransition, NextStatus: models.TaskStatusAiReview}, nil
}
