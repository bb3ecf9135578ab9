package phases

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

func TestPlanningPhaseType(t *testing.T) {
	phase := NewPlanningPhase()
	assert.Equal(t, models.SessionPhasePlanning, phase.PhaseType())
}

func TestPlanningPhaseResources(t *testing.T) {
	phase := NewPlanningPhase()
	resources := phase.RequiredResources()

	assert.False(t, resources.NeedsWorkspace)
	assert.False(t, resources.NeedsMcpFindings)
	assert.False(t, resources.NeedsDiff)
}

func TestPlanningPhaseBuildConfigUsesRepoPath(t *testing.T) {
	ectx, _ := newTestExecutorContext(t, engine.ExecutorConfig{})
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusPlanning)

	cfg, err := NewPlanningPhase().BuildConfig(context.Background(), ectx, task)
	require.NoError(t, err)
	assert.Equal(t, ectx.Config.RepoPath, cfg.WorkingDir)
	assert.Contains(t, cfg.Prompt, task.Title)
}

func TestPlanningPhaseFailureRevertsToTodo(t *testing.T) {
	ectx, _ := newTestExecutorContext(t, engine.ExecutorConfig{})
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusPlanning)

	outcome, err := NewPlanningPhase().ProcessResult(context.Background(), ectx, task, failureResult())
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeTransition, outcome.Kind)
	assert.Equal(t, models.TaskStatusTodo, task.Status)
}

func TestPlanningPhaseSuccessRequiresApproval(t *testing.T) {
	ectx, _ := newTestExecutorContext(t, engine.ExecutorConfig{RequirePlanApproval: true})
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusPlanning)

	outcome, err := NewPlanningPhase().ProcessResult(context.Background(), ectx, task, successResult("1. Do the thing"))
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeAwaitingApproval, outcome.Kind)
	assert.Equal(t, models.SessionPhasePlanning, outcome.Phase)
	assert.Equal(t, models.TaskStatusPlanningReview, task.Status)

	plan, err := os.ReadFile(ectx.PlanPath(task.ID))
	require.NoError(t, err)
	assert.Equal(t, "1. Do the thing", string(plan))
}

func TestPlanningPhaseSuccessAutoApproves(t *testing.T) {
	ectx, _ := newTestExecutorContext(t, engine.ExecutorConfig{RequirePlanApproval: false})
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusPlanning)

	outcome, err := NewPlanningPhase().ProcessResult(context.Background(), ectx, task, successResult("plan"))
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeTransition, outcome.Kind)
	assert.Equal(t, models.TaskStatusInProgress, outcome.NextStatus)
	assert.Equal(t, models.TaskStatusInProgress, task.Status)
}
