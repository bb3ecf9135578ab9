package phases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

func TestImplementationPhaseType(t *testing.T) {
	phase := NewImplementationPhase(1, 1)
	assert.Equal(t, models.SessionPhaseImplementation, phase.PhaseType())
}

func TestImplementationPhaseResourcesNeedsWorkspace(t *testing.T) {
	resources := NewImplementationPhase(1, 1).RequiredResources()
	assert.True(t, resources.NeedsWorkspace)
	assert.False(t, resources.NeedsMcpFindings)
}

func TestNewImplementationPhaseClampsToOne(t *testing.T) {
	phase := NewImplementationPhase(0, -1)
	assert.Equal(t, 1, phase.PhaseNumber)
	assert.Equal(t, 1, phase.TotalPhases)
}

func TestImplementationPhaseMidStepContinues(t *testing.T) {
	ectx, _ := newTestExecutorContext(t, engine.ExecutorConfig{})
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusInProgress)

	outcome, err := NewImplementationPhase(1, 3).ProcessResult(context.Background(), ectx, task, successResult("step 1 done"))
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeContinue, outcome.Kind)
	// Mid-step outcomes don't touch task status; the final step owns the
	// transition to ai_review.
	assert.Equal(t, models.TaskStatusInProgress, task.Status)
}

func TestImplementationPhaseFinalStepTransitionsToAiReview(t *testing.T) {
	ectx, _ := newTestExecutorContext(t, engine.ExecutorConfig{})
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusInProgress)

	outcome, err := NewImplementationPhase(3, 3).ProcessResult(context.Background(), ectx, task, successResult("all steps done"))
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeTransition, outcome.Kind)
	assert.Equal(t, models.TaskStatusAiReview, outcome.NextStatus)
	assert.Equal(t, models.TaskStatusAiReview, task.Status)
}

func TestImplementationPhaseFailureRevertsToPlanningReview(t *testing.T) {
	ectx, _ := newTestExecutorContext(t, engine.ExecutorConfig{})
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusInProgress)

	outcome, err := NewImplementationPhase(2, 3).ProcessResult(context.Background(), ectx, task, failureResult())
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPlanningReview, outcome.NextStatus)
	assert.Equal(t, models.TaskStatusPlanningReview, task.Status)
}

func TestImplementationPromptNotesStepForMultiPhase(t *testing.T) {
	ectx, _ := newTestExecutorContext(t, engine.ExecutorConfig{})
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusInProgress)

	cfg, err := NewImplementationPhase(2, 4).BuildConfig(context.Background(), ectx, task)
	require.NoError(t, err)
	assert.Contains(t, cfg.Prompt, "step 2 of 4")
	require.NotNil(t, cfg.Metadata.PhaseNumber)
	assert.Equal(t, 2, *cfg.Metadata.PhaseNumber)
}
