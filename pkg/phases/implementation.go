package phases

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// ImplementationPhase drives the agent through one step of implementing the
// task's plan inside its workspace. A task's implementation may span
// several sub-phases; PhaseNumber/TotalPhases (both 1-indexed) say which
// step this instance is. Runner constructs a fresh ImplementationPhase for
// each step, incrementing PhaseNumber until TotalPhases is reached.
type ImplementationPhase struct {
	PhaseNumber int
	TotalPhases int
}

// NewImplementationPhase creates the phaseNumber'th of totalPhases
// implementation steps. A single-shot implementation is
// NewImplementationPhase(1, 1).
func NewImplementationPhase(phaseNumber, totalPhases int) *ImplementationPhase {
	if totalPhases < 1 {
		totalPhases = 1
	}
	if phaseNumber < 1 {
		phaseNumber = 1
	}
	return &ImplementationPhase{PhaseNumber: phaseNumber, TotalPhases: totalPhases}
}

func (p *ImplementationPhase) PhaseType() models.SessionPhase {
	return models.SessionPhaseImplementation
}

func (p *ImplementationPhase) RequiredResources() engine.ResourceRequirements {
	return engine.ResourceRequirements{NeedsWorkspace: true}
}

func (p *ImplementationPhase) BuildConfig(ctx context.Context, ectx *engine.ExecutorContext, task *models.Task) (engine.PhaseConfig, error) {
	phaseNumber, totalPhases := p.PhaseNumber, p.TotalPhases
	return engine.PhaseConfig{
		Prompt:     implementationPrompt(task, ectx.PlanPath(task.ID), phaseNumber, totalPhases),
		WorkingDir: ectx.WorkingDirForTask(task),
		Metadata:   engine.PhaseMetadata{PhaseNumber: &phaseNumber, TotalPhases: &totalPhases},
	}, nil
}

func (p *ImplementationPhase) ProcessResult(ctx context.Context, ectx *engine.ExecutorContext, task *models.Task, result engine.SessionOutput) (engine.PhaseOutcome, error) {
	if !result.Success {
		if err := ectx.Transition(ctx, task, models.TaskStatusPlanningReview); err != nil {
			return engine.PhaseOutcome{}, fmt.Errorf("revert failed implementation: %w", err)
		}
		return engine.PhaseOutcome{Kind: engine.OutcomeTransition, NextStatus: models.TaskStatusPlanningReview}, nil
	}

	if p.PhaseNumber < p.TotalPhases {
		return engine.PhaseOutcome{Kind: engine.OutcomeContinue}, nil
	}

	if err := ectx.Transition(ctx, task, models.TaskStatusAiReview); err != nil {
		return engine.PhaseOutcome{}, fmt.Errorf("transition to ai_review: %w", err)
	}
	return engine.PhaseOutcome{Kind: engine.OutcomeTransition, NextStatus: models.TaskStatusAiReview}, nil
}
