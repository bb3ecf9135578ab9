package cleanup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/opencode-studio/pkg/database"
	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/events"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
	"github.com/codeready-toolchain/opencode-studio/pkg/store"
)

func newTestExecutorContext(t *testing.T) *engine.ExecutorContext {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "studio.db")
	dbClient, err := database.NewClient(database.DefaultConfig(dbPath))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbClient.Close() })

	return engine.NewExecutorContext(
		engine.ExecutorConfig{RepoPath: t.TempDir()},
		nil,
		nil,
		store.NewTaskRepository(dbClient.DB()),
		store.NewSessionRepository(dbClient.DB()),
		store.NewActivityRepository(dbClient.DB()),
		events.NewBus(),
		events.NewActivityRegistry(),
		nil,
		nil,
	)
}

func newRunningSession(t *testing.T, ectx *engine.ExecutorContext, task *models.Task, phase models.SessionPhase) *models.Session {
	t.Helper()
	session := models.NewSession(task.ID, phase)
	session.Start("agent-session-1")
	require.NoError(t, ectx.SessionRepo.Create(context.Background(), session))
	return session
}

func TestRecoverStartupSessionsRollsBackPlanning(t *testing.T) {
	ectx := newTestExecutorContext(t)
	ctx := context.Background()

	task := models.NewTask("Add retries", "")
	task.Status = models.TaskStatusPlanning
	require.NoError(t, ectx.TaskRepo.Create(ctx, task))
	session := newRunningSession(t, ectx, task, models.SessionPhasePlanning)

	svc := NewService(ectx, 0)
	require.NoError(t, svc.RecoverStartupSessions(ctx))

	reloadedTask, err := ectx.TaskRepo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusTodo, reloadedTask.Status)

	reloadedSession, err := ectx.SessionRepo.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusFailed, reloadedSession.Status)
}

func TestRecoverStartupSessionsReviewPhaseStaysInAiReview(t *testing.T) {
	ectx := newTestExecutorContext(t)
	ctx := context.Background()

	task := models.NewTask("Add retries", "")
	task.Status = models.TaskStatusAiReview
	require.NoError(t, ectx.TaskRepo.Create(ctx, task))
	newRunningSession(t, ectx, task, models.SessionPhaseReview)

	svc := NewService(ectx, 0)
	require.NoError(t, svc.RecoverStartupSessions(ctx))

	reloadedTask, err := ectx.TaskRepo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusAiReview, reloadedTask.Status,
		"a failed review session leaves its task right where it was")
}

func TestRecoverStartupSessionsNoRunningSessionsIsNoop(t *testing.T) {
	ectx := newTestExecutorContext(t)
	svc := NewService(ectx, 0)
	require.NoError(t, svc.RecoverStartupSessions(context.Background()))
}

func TestRecoverStartupSessionsFixPhaseRollsBackToAiReview(t *testing.T) {
	ectx := newTestExecutorContext(t)
	ctx := context.Background()

	task := models.NewTask("Add retries", "")
	task.Status = models.TaskStatusFix
	require.NoError(t, ectx.TaskRepo.Create(ctx, task))
	newRunningSession(t, ectx, task, models.SessionPhaseFix)

	svc := NewService(ectx, 0)
	require.NoError(t, svc.RecoverStartupSessions(ctx))

	reloadedTask, err := ectx.TaskRepo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusAiReview, reloadedTask.Status)
}
