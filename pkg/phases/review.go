package phases

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
	"github.com/codeready-toolchain/opencode-studio/pkg/vcs"
)

// ReviewPhase asks the agent to review the task's workspace diff against
// the review criteria and classifies the verdict by substring match —
// deliberately fragile per the heuristic this orchestrator inherited, not a
// target for a stricter parser.
type ReviewPhase struct {
	// Iteration is how many review→fix round trips have already happened
	// for this task. Runner threads it through and compares it against
	// ExecutorConfig.MaxReviewIterations; the phase itself only reports
	// Iteration+1 in its Iterate outcome.
	Iteration int
	// UseMcpFindings additionally connects the findings server so the
	// agent can write structured per-issue findings alongside its
	// free-text review.
	UseMcpFindings bool
}

// NewReviewPhase creates a ReviewPhase at the given iteration count.
func NewReviewPhase(iteration int, useMcpFindings bool) *ReviewPhase {
	return &ReviewPhase{Iteration: iteration, UseMcpFindings: useMcpFindings}
}

func (p *ReviewPhase) PhaseType() models.SessionPhase {
	return models.SessionPhaseReview
}

func (p *ReviewPhase) RequiredResources() engine.ResourceRequirements {
	return engine.ResourceRequirements{NeedsWorkspace: true, NeedsDiff: true, NeedsMcpFindings: p.UseMcpFindings}
}

func (p *ReviewPhase) BuildConfig(ctx context.Context, ectx *engine.ExecutorContext, task *models.Task) (engine.PhaseConfig, error) {
	diff, err := ectx.WorkspaceManager.GetDiff(ctx, workspaceOf(task))
	if err != nil {
		return engine.PhaseConfig{}, &engine.VcsCommandFailedError{Op: "get_diff", Err: err}
	}

	cfg := engine.PhaseConfig{
		Prompt:     reviewPrompt(task, diff, ectx.ReviewPath(task.ID)),
		WorkingDir: ectx.WorkingDirForTask(task),
		Metadata:   engine.PhaseMetadata{Iteration: p.Iteration},
	}
	if p.UseMcpFindings {
		cfg.MCPServers = []engine.McpServerSpec{engine.FindingsServerSpec()}
	}
	return cfg, nil
}

func (p *ReviewPhase) ProcessResult(ctx context.Context, ectx *engine.ExecutorContext, task *models.Task, result engine.SessionOutput) (engine.PhaseOutcome, error) {
	if !result.Success {
		// A failed review leaves the task in ai_review, the status the
		// review phase runs under.
		if task.Status != models.TaskStatusAiReview {
			if err := ectx.Transition(ctx, task, models.TaskStatusAiReview); err != nil {
				return engine.PhaseOutcome{}, fmt.Errorf("revert failed review: %w", err)
			}
		}
		return engine.PhaseOutcome{Kind: engine.OutcomeTransition, NextStatus: models.TaskStatusAiReview}, nil
	}

	if err := writeReview(ectx.ReviewPath(task.ID), result.ResponseText); err != nil {
		return engine.PhaseOutcome{}, fmt.Errorf("save review: %w", err)
	}

	verdict := classify(result.ResponseText)

	switch verdict {
	case verdictApproved:
		if err := ectx.Transition(ctx, task, models.TaskStatusReview); err != nil {
			return engine.PhaseOutcome{}, fmt.Errorf("transition to review: %w", err)
		}
		return engine.PhaseOutcome{Kind: engine.OutcomeTransition, NextStatus: models.TaskStatusReview}, nil

	case verdictChangesRequested:
		// Whether this iteration is within max_review_iterations is not
		// this phase's concern — it always reports the feedback and lets
		// the caller decide whether to act on Iterate or override it with
		// Transition{review}.
		return engine.PhaseOutcome{
			Kind:      engine.OutcomeIterate,
			Feedback:  result.ResponseText,
			Iteration: p.Iteration + 1,
		}, nil

	default:
		// Conservative default: an unparseable verdict still needs a human.
		if err := ectx.Transition(ctx, task, models.TaskStatusReview); err != nil {
			return engine.PhaseOutcome{}, fmt.Errorf("transition to review: %w", err)
		}
		return engine.PhaseOutcome{Kind: engine.OutcomeTransition, NextStatus: models.TaskStatusReview}, nil
	}
}

type verdict int

const (
	verdictUnknown verdict = iota
	verdictApproved
	verdictChangesRequested
)

// classify matches the exact tokens the review prompt asks the agent to
// use. Deliberately a plain substring check, not a structured parser.
func classify(text string) verdict {
	if strings.Contains(text, "APPROVED") {
		return verdictApproved
	}
	if strings.Contains(text, "CHANGES_REQUESTED") {
		return verdictChangesRequested
	}
	return verdictUnknown
}

func writeReview(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create review dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write review file: %w", err)
	}
	return nil
}

// workspaceOf builds the minimal vcs.Workspace the VCS backends need —
// only Path is read by GetDiff/GetStatus/GetDiffSummary.
func workspaceOf(task *models.Task) vcs.Workspace {
	path := ""
	if task.WorkspacePath != nil {
		path = *task.WorkspacePath
	}
	return vcs.Workspace{TaskID: task.ID.String(), Path: path}
}
