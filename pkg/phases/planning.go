package phases

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// PlanningPhase generates an implementation plan for a task. It needs
// neither a workspace nor MCP — the agent only reads/reasons and writes
// the plan file.
type PlanningPhase struct{}

// NewPlanningPhase creates a PlanningPhase.
func NewPlanningPhase() *PlanningPhase {
	return &PlanningPhase{}
}

func (p *PlanningPhase) PhaseType() models.SessionPhase {
	return models.SessionPhasePlanning
}

func (p *PlanningPhase) RequiredResources() engine.ResourceRequirements {
	return engine.ResourceRequirements{}
}

func (p *PlanningPhase) BuildConfig(ctx context.Context, ectx *engine.ExecutorContext, task *models.Task) (engine.PhaseConfig, error) {
	planPath := ectx.PlanPath(task.ID)
	return engine.PhaseConfig{
		Prompt:     planningPrompt(task, planPath),
		WorkingDir: ectx.Config.RepoPath,
	}, nil
}

func (p *PlanningPhase) ProcessResult(ctx context.Context, ectx *engine.ExecutorContext, task *models.Task, result engine.SessionOutput) (engine.PhaseOutcome, error) {
	if !result.Success {
		if err := ectx.Transition(ctx, task, models.TaskStatusTodo); err != nil {
			return engine.PhaseOutcome{}, fmt.Errorf("revert failed planning: %w", err)
		}
		return engine.PhaseOutcome{Kind: engine.OutcomeTransition, NextStatus: models.TaskStatusTodo}, nil
	}

	if err := writePlan(ectx.PlanPath(task.ID), result.ResponseText); err != nil {
		return engine.PhaseOutcome{}, fmt.Errorf("save plan: %w", err)
	}

	if err := ectx.Transition(ctx, task, models.TaskStatusPlanningReview); err != nil {
		return engine.PhaseOutcome{}, fmt.Errorf("transition to planning_review: %w", err)
	}

	if !ectx.Config.RequirePlanApproval {
		if err := ectx.Transition(ctx, task, models.TaskStatusInProgress); err != nil {
			return engine.PhaseOutcome{}, fmt.Errorf("auto-approve plan: %w", err)
		}
		return engine.PhaseOutcome{Kind: engine.OutcomeTransition, NextStatus: models.TaskStatusInProgress}, nil
	}

	return engine.PhaseOutcome{Kind: engine.OutcomeAwaitingApproval, Phase: models.SessionPhasePlanning}, nil
}

func writePlan(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plan dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write plan file: %w", err)
	}
	return nil
}
