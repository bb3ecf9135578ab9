package phases

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/opencode-studio/pkg/database"
	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/events"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
	"github.com/codeready-toolchain/opencode-studio/pkg/store"
)

// newTestExecutorContext builds a minimal ExecutorContext backed by a real
// temp-file sqlite database, enough to exercise phase ProcessResult
// transitions without an agent-runtime server.
func newTestExecutorContext(t *testing.T, cfg engine.ExecutorConfig) (*engine.ExecutorContext, *events.Bus) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "studio.db")
	dbClient, err := database.NewClient(database.DefaultConfig(dbPath))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbClient.Close() })

	bus := events.NewBus()
	cfg.RepoPath = t.TempDir()

	ectx := engine.NewExecutorContext(
		cfg,
		nil,
		nil,
		store.NewTaskRepository(dbClient.DB()),
		store.NewSessionRepository(dbClient.DB()),
		store.NewActivityRepository(dbClient.DB()),
		bus,
		events.NewActivityRegistry(),
		nil,
		nil,
	)
	return ectx, bus
}

func newTestTaskWithStatus(t *testing.T, ectx *engine.ExecutorContext, status models.TaskStatus) *models.Task {
	t.Helper()
	task := models.NewTask("Implement widget", "Add a widget to the dashboard")
	task.Status = status
	require.NoError(t, ectx.TaskRepo.Create(context.Background(), task))
	return task
}

func successResult(text string) engine.SessionOutput {
	return engine.SessionOutput{ResponseText: text, Success: true}
}

func failureResult() engine.SessionOutput {
	return engine.SessionOutput{Success: false}
}
