package phases

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/opencode-studio/pkg/agentrt"
	"github.com/codeready-toolchain/opencode-studio/pkg/database"
	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/events"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
	"github.com/codeready-toolchain/opencode-studio/pkg/store"
	"github.com/codeready-toolchain/opencode-studio/pkg/vcs"
)

// stubVCS is an in-memory VersionControl so runner tests can exercise
// workspace-requiring phases without a real git or jj binary.
type stubVCS struct {
	base string
	diff string
}

func (s *stubVCS) Name() string                                 { return "stub" }
func (s *stubVCS) MainBranch() string                           { return "main" }
func (s *stubVCS) IsAvailable(ctx context.Context) bool         { return true }
func (s *stubVCS) IsInitialized(ctx context.Context) (bool, error) { return true, nil }

func (s *stubVCS) CreateWorkspace(ctx context.Context, taskID string) (vcs.Workspace, error) {
	path := filepath.Join(s.base, "task-"+taskID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return vcs.Workspace{}, err
	}
	return vcs.NewWorkspace(taskID, path, "task-"+taskID), nil
}

func (s *stubVCS) GetDiff(ctx context.Context, ws vcs.Workspace) (string, error) { return s.diff, nil }
func (s *stubVCS) GetStatus(ctx context.Context, ws vcs.Workspace) (string, error) {
	return "clean", nil
}
func (s *stubVCS) GetDiffSummary(ctx context.Context, ws vcs.Workspace) (vcs.DiffSummary, error) {
	return vcs.DiffSummary{}, nil
}
func (s *stubVCS) MergeWorkspace(ctx context.Context, ws vcs.Workspace, message string) (vcs.MergeResult, error) {
	return vcs.MergeResult{Success: true}, nil
}
func (s *stubVCS) GetConflicts(ctx context.Context, ws vcs.Workspace) ([]vcs.ConflictFile, error) {
	return nil, nil
}
func (s *stubVCS) CleanupWorkspace(ctx context.Context, ws vcs.Workspace) error {
	return os.RemoveAll(ws.Path)
}
func (s *stubVCS) ListWorkspaces(ctx context.Context) ([]vcs.Workspace, error) { return nil, nil }
func (s *stubVCS) Commit(ctx context.Context, ws vcs.Workspace, message string) (string, error) {
	return "rev1", nil
}
func (s *stubVCS) Push(ctx context.Context, ws vcs.Workspace, remote string) error { return nil }
func (s *stubVCS) HasUncommittedChanges(ctx context.Context, ws vcs.Workspace) (bool, error) {
	return false, nil
}

// agentReplyMux answers every session create/prompt call, yielding reply
// for the Nth call to /session/*/message (1-indexed), falling back to the
// last entry once exhausted.
func agentReplyMux(t *testing.T, replies []string) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	call := 0
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"` + uuid.NewString() + `"}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		reply := replies[len(replies)-1]
		if call < len(replies) {
			reply = replies[call]
		}
		call++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"session_id":"ignored","message":{"id":"m1","role":"assistant","content":"` + reply + `"}}`))
	})
	return mux
}

func newRunnerTestSetup(t *testing.T, cfg engine.ExecutorConfig, replies []string) (*Runner, *engine.ExecutorContext, *store.ReviewCommentRepository) {
	t.Helper()

	mux := agentReplyMux(t, replies)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	dbPath := t.TempDir() + "/studio.db"
	dbClient, err := database.NewClient(database.DefaultConfig(dbPath))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbClient.Close() })

	cfg.RepoPath = t.TempDir()
	client := agentrt.New(server.URL)
	bus := events.NewBus()
	reviewRepo := store.NewReviewCommentRepository(dbClient.DB())

	workspaceBase := t.TempDir()
	wm := vcs.NewWorkspaceManager(
		&stubVCS{base: workspaceBase, diff: "diff --git a/main.go b/main.go\n+package main\n"},
		vcs.WorkspaceConfig{WorkspaceBase: workspaceBase},
		cfg.RepoPath,
		nil,
	)

	ectx := engine.NewExecutorContext(
		cfg,
		client,
		wm,
		store.NewTaskRepository(dbClient.DB()),
		store.NewSessionRepository(dbClient.DB()),
		store.NewActivityRepository(dbClient.DB()),
		bus,
		events.NewActivityRegistry(),
		nil,
		nil,
	)

	eng := engine.New(ectx)
	return NewRunner(eng, reviewRepo), ectx, reviewRepo
}

func TestRunnerPlanningBeginsAndAwaitsApproval(t *testing.T) {
	runner, ectx, _ := newRunnerTestSetup(t, engine.ExecutorConfig{RequirePlanApproval: true}, []string{"1. do the thing"})
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusTodo)

	sessionID, phase, err := runner.Execute(context.Background(), ectx, task)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sessionID)
	assert.Equal(t, models.SessionPhasePlanning, phase)
	assert.Equal(t, models.TaskStatusPlanningReview, task.Status)
}

func TestRunnerImplementationSingleStepTransitionsToAiReview(t *testing.T) {
	runner, ectx, _ := newRunnerTestSetup(t, engine.ExecutorConfig{}, []string{"done"})
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusInProgress)

	_, phase, err := runner.Execute(context.Background(), ectx, task)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPhaseImplementation, phase)
	assert.Equal(t, models.TaskStatusAiReview, task.Status)
}

func TestRunnerReviewApprovedStopsImmediately(t *testing.T) {
	runner, ectx, _ := newRunnerTestSetup(t, engine.ExecutorConfig{MaxReviewIterations: 2}, []string{"APPROVED"})
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusAiReview)

	_, phase, err := runner.Execute(context.Background(), ectx, task)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPhaseReview, phase)
	assert.Equal(t, models.TaskStatusReview, task.Status)
}

// TestRunnerReviewFixLoopEscalatesAfterMaxIterations matches the bound
// scenario: with max_review_iterations=2, CHANGES_REQUESTED on every review
// drives exactly two fix cycles before the third review escalates to a
// human instead of looping forever.
func TestRunnerReviewFixLoopEscalatesAfterMaxIterations(t *testing.T) {
	replies := []string{
		"CHANGES_REQUESTED: first pass",
		"fixed first pass",
		"CHANGES_REQUESTED: second pass",
		"fixed second pass",
		"CHANGES_REQUESTED: still not right",
	}
	runner, ectx, _ := newRunnerTestSetup(t, engine.ExecutorConfig{MaxReviewIterations: 2}, replies)
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusAiReview)

	_, phase, err := runner.Execute(context.Background(), ectx, task)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPhaseReview, phase)
	assert.Equal(t, models.TaskStatusReview, task.Status, "exhausting the bound must escalate to human review, not loop forever")

	sessions, err := ectx.SessionRepo.ListByTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 5, "two review/fix round trips plus the final escalating review")
}

func TestRunnerFixStatusUsesUserComments(t *testing.T) {
	runner, ectx, reviewRepo := newRunnerTestSetup(t, engine.ExecutorConfig{}, []string{"addressed the comments"})
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusFix)

	_, err := reviewRepo.Create(context.Background(), models.ReviewComment{
		TaskID: task.ID, FilePath: "main.go", LineStart: 1, LineEnd: 1,
		Side: models.ReviewCommentSideRight, Content: "fix this", CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	_, phase, err := runner.Execute(context.Background(), ectx, task)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPhaseFix, phase)
	assert.Equal(t, models.TaskStatusAiReview, task.Status)

	remaining, err := reviewRepo.ListByTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining, "consumed review comments must be cleared after the fix runs")
}

func TestRunnerNoExecutablePhaseForReviewStatus(t *testing.T) {
	runner, ectx, _ := newRunnerTestSetup(t, engine.ExecutorConfig{}, nil)
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusReview)

	_, _, err := runner.Execute(context.Background(), ectx, task)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoExecutablePhase)
}

func TestRunnerNoExecutablePhaseForDoneStatus(t *testing.T) {
	runner, ectx, _ := newRunnerTestSetup(t, engine.ExecutorConfig{}, nil)
	task := newTestTaskWithStatus(t, ectx, models.TaskStatusDone)

	_, _, err := runner.Execute(context.Background(), ectx, task)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoExecutablePhase)
}
