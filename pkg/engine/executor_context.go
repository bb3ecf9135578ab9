package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/opencode-studio/pkg/agentrt"
	"github.com/codeready-toolchain/opencode-studio/pkg/config"
	"github.com/codeready-toolchain/opencode-studio/pkg/events"
	"github.com/codeready-toolchain/opencode-studio/pkg/mcp"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
	"github.com/codeready-toolchain/opencode-studio/pkg/statemachine"
	"github.com/codeready-toolchain/opencode-studio/pkg/store"
	"github.com/codeready-toolchain/opencode-studio/pkg/vcs"
)

// ExecutorConfig is the phase engine's own gating configuration, mirrored
// from the project's config.toml [executor] table.
type ExecutorConfig struct {
	RequirePlanApproval bool
	RequireHumanReview  bool
	MaxReviewIterations int
	RepoPath            string
}

// ExecutorConfigFromProject adapts the project-level config into an
// ExecutorConfig.
func ExecutorConfigFromProject(cfg config.Config) ExecutorConfig {
	return ExecutorConfig{
		RequirePlanApproval: cfg.Executor.RequirePlanApproval,
		RequireHumanReview:  cfg.Executor.RequireHumanReview,
		MaxReviewIterations: cfg.Executor.MaxReviewIterations,
		RepoPath:            cfg.RepoPath,
	}
}

// ExecutorContext bundles everything a Phase needs to build its config and
// process its result: the gating config, repositories, the event bus and
// activity registry, the workspace manager, the MCP manager, and the
// agent-runtime client.
type ExecutorContext struct {
	Config            ExecutorConfig
	AgentClient       *agentrt.Client
	WorkspaceManager  *vcs.WorkspaceManager
	TaskRepo          *store.TaskRepository
	SessionRepo       *store.SessionRepository
	ActivityRepo      *store.ActivityRepository
	Bus               *events.Bus
	ActivityRegistry  *events.ActivityRegistry
	McpManager        *mcp.Manager
	Log               *slog.Logger
}

// NewExecutorContext wires the dependencies into an ExecutorContext, using
// a default logger when log is nil.
func NewExecutorContext(
	cfg ExecutorConfig,
	agentClient *agentrt.Client,
	workspaceManager *vcs.WorkspaceManager,
	taskRepo *store.TaskRepository,
	sessionRepo *store.SessionRepository,
	activityRepo *store.ActivityRepository,
	bus *events.Bus,
	activityRegistry *events.ActivityRegistry,
	mcpManager *mcp.Manager,
	log *slog.Logger,
) *ExecutorContext {
	if log == nil {
		log = slog.Default()
	}
	return &ExecutorContext{
		Config:           cfg,
		AgentClient:      agentClient,
		WorkspaceManager: workspaceManager,
		TaskRepo:         taskRepo,
		SessionRepo:      sessionRepo,
		ActivityRepo:     activityRepo,
		Bus:              bus,
		ActivityRegistry: activityRegistry,
		McpManager:       mcpManager,
		Log:              log,
	}
}

// Transition validates and applies a task status change, persists it, and
// emits TaskStatusChanged.
func (c *ExecutorContext) Transition(ctx context.Context, task *models.Task, to models.TaskStatus) error {
	from := task.Status
	if err := statemachine.ValidateTransition(from, to); err != nil {
		return err
	}

	task.Status = to
	task.UpdatedAt = time.Now().UTC()

	if c.TaskRepo != nil {
		if err := c.TaskRepo.Update(ctx, task); err != nil {
			return fmt.Errorf("persist task transition: %w", err)
		}
	}

	c.EmitEvent(models.TaskStatusChanged{
		TaskIDValue: task.ID,
		FromStatus:  string(from),
		ToStatus:    string(to),
	})

	c.Log.Debug("task transitioned", "task_id", task.ID, "from", from, "to", to)
	return nil
}

// EmitEvent publishes event on the bus. Nil-safe.
func (c *ExecutorContext) EmitEvent(event models.Event) {
	if c.Bus == nil {
		return
	}
	c.Bus.Publish(models.NewEventEnvelope(event))
}

// PersistSession inserts session's current state.
func (c *ExecutorContext) PersistSession(ctx context.Context, s *models.Session) error {
	if c.SessionRepo == nil {
		return nil
	}
	return c.SessionRepo.Create(ctx, s)
}

// UpdateSession persists session's current in-memory state.
func (c *ExecutorContext) UpdateSession(ctx context.Context, s *models.Session) error {
	if c.SessionRepo == nil {
		return nil
	}
	return c.SessionRepo.Update(ctx, s)
}

// GetActivityStore returns the in-memory activity log for sessionID,
// creating it if this is the first activity for that session.
func (c *ExecutorContext) GetActivityStore(sessionID uuid.UUID) *events.ActivityStore {
	if c.ActivityRegistry == nil {
		return nil
	}
	return c.ActivityRegistry.GetOrCreate(sessionID)
}

// WorkingDirForTask returns task's workspace path if set, else the
// project's repo root.
func (c *ExecutorContext) WorkingDirForTask(task *models.Task) string {
	if task.WorkspacePath != nil {
		return *task.WorkspacePath
	}
	return c.Config.RepoPath
}

// SetupWorkspace ensures task has a workspace, creating one via the
// workspace manager if it doesn't already (idempotent: a task that already
// has workspace_path set is left untouched).
func (c *ExecutorContext) SetupWorkspace(ctx context.Context, task *models.Task) error {
	if task.WorkspacePath != nil {
		return nil
	}
	if c.WorkspaceManager == nil {
		return fmt.Errorf("workspace requested but no workspace manager configured")
	}

	ws, err := c.WorkspaceManager.SetupWorkspace(ctx, task.ID.String())
	if err != nil {
		return &VcsCommandFailedError{Op: "setup_workspace", Err: err}
	}

	task.WorkspacePath = &ws.Path
	task.UpdatedAt = time.Now().UTC()

	c.Log.Info("vcs workspace created", "task_id", task.ID, "path", ws.Path, "branch", ws.BranchName)
	c.EmitEvent(models.WorkspaceCreated{TaskIDValue: task.ID, Path: ws.Path})

	if c.TaskRepo != nil {
		if err := c.TaskRepo.Update(ctx, task); err != nil {
			c.Log.Error("failed to persist workspace_path", "task_id", task.ID, "error", err)
		}
	}
	return nil
}

// EmitSessionStarted publishes SessionStarted for s.
func (c *ExecutorContext) EmitSessionStarted(s *models.Session) {
	c.EmitEvent(models.SessionStarted{
		SessionID:      s.ID,
		TaskIDValue:    s.TaskID,
		Phase:          string(s.Phase),
		Status:         string(s.Status),
		AgentSessionID: s.AgentSessionID,
		CreatedAt:      s.CreatedAt,
	})
}

// EmitSessionEnded publishes SessionEnded for the given session/task pair.
func (c *ExecutorContext) EmitSessionEnded(sessionID, taskID uuid.UUID, success bool) {
	c.EmitEvent(models.SessionEnded{SessionID: sessionID, TaskIDValue: taskID, Success: success})
}

// PlanPath returns the path a Planning phase should write its plan to.
func (c *ExecutorContext) PlanPath(taskID uuid.UUID) string {
	return filepath.Join(c.Config.RepoPath, ".opencode-studio", "kanban", "plans", taskID.String()+".md")
}

// ReviewPath returns the path a Review phase should write its review to.
func (c *ExecutorContext) ReviewPath(taskID uuid.UUID) string {
	return filepath.Join(c.Config.RepoPath, ".opencode-studio", "kanban", "reviews", taskID.String()+".md")
}

// FindingsPath returns the path the MCP findings server writes structured
// findings to.
func (c *ExecutorContext) FindingsPath(taskID uuid.UUID) string {
	return filepath.Join(c.Config.RepoPath, ".opencode-studio", "kanban", "findings", taskID.String()+".json")
}
