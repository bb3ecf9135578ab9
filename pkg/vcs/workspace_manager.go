package vcs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// WorkspaceConfig configures how the Workspace Manager materializes a new
// task workspace on top of whatever the backend checks out.
type WorkspaceConfig struct {
	WorkspaceBase   string
	InitScripts     []string
	CleanupScripts  []string
	CopyFiles       []string
	SymlinkDirs     []string
}

// DefaultWorkspaceConfig mirrors the original implementation's defaults:
// copy over local secrets, symlink heavyweight dependency directories
// instead of duplicating them per workspace.
func DefaultWorkspaceConfig(workspaceBase string) WorkspaceConfig {
	return WorkspaceConfig{
		WorkspaceBase: workspaceBase,
		CopyFiles:     []string{".env", ".env.local"},
		SymlinkDirs:   []string{"node_modules", "target", ".venv"},
	}
}

// WorkspaceManager composes a VersionControl backend with a WorkspaceConfig
// to produce fully set-up task workspaces.
type WorkspaceManager struct {
	vcs      VersionControl
	config   WorkspaceConfig
	repoPath string
	log      *slog.Logger
}

// NewWorkspaceManager creates a WorkspaceManager driving vcs, rooted at
// repoPath.
func NewWorkspaceManager(vcs VersionControl, config WorkspaceConfig, repoPath string, log *slog.Logger) *WorkspaceManager {
	if log == nil {
		log = slog.Default()
	}
	return &WorkspaceManager{vcs: vcs, config: config, repoPath: repoPath, log: log}
}

// VCS returns the underlying backend, for callers that need backend-native
// operations the manager does not wrap.
func (m *WorkspaceManager) VCS() VersionControl { return m.vcs }

// SetupWorkspace creates the backend workspace, then runs init hooks
// followed by copy-files and symlink-dirs, in that order. Any failure
// triggers a best-effort cleanup of the partially-created workspace before
// the error is returned.
func (m *WorkspaceManager) SetupWorkspace(ctx context.Context, taskID string) (Workspace, error) {
	m.log.Info("setting up workspace", "task_id", taskID)

	ws, err := m.vcs.CreateWorkspace(ctx, taskID)
	if err != nil {
		return Workspace{}, err
	}

	if err := m.runScripts(ctx, m.config.InitScripts, ws); err != nil {
		m.log.Warn("init scripts failed, cleaning up workspace", "task_id", taskID, "error", err)
		_ = m.CleanupWorkspace(ctx, ws)
		return Workspace{}, err
	}

	if err := m.setupFiles(ws); err != nil {
		m.log.Warn("file setup failed, cleaning up workspace", "task_id", taskID, "error", err)
		_ = m.CleanupWorkspace(ctx, ws)
		return Workspace{}, err
	}

	m.log.Info("workspace created", "task_id", taskID, "path", ws.Path)
	return ws, nil
}

func (m *WorkspaceManager) setupFiles(ws Workspace) error {
	for _, file := range m.config.CopyFiles {
		src := filepath.Join(m.repoPath, file)
		dst := filepath.Join(ws.Path, file)

		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("create parent dir for %s: %w", file, err)
		}
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("copy %s into workspace: %w", file, err)
		}
	}

	for _, dir := range m.config.SymlinkDirs {
		src := filepath.Join(m.repoPath, dir)
		dst := filepath.Join(ws.Path, dir)

		if _, err := os.Stat(src); err != nil {
			continue
		}
		if _, err := os.Lstat(dst); err == nil {
			continue
		}
		if err := os.Symlink(src, dst); err != nil {
			return fmt.Errorf("symlink %s into workspace: %w", dir, err)
		}
	}

	return nil
}

func (m *WorkspaceManager) runScripts(ctx context.Context, scripts []string, ws Workspace) error {
	for _, script := range scripts {
		if _, err := os.Stat(script); err != nil {
			m.log.Warn("script not found, skipping", "script", script)
			continue
		}
		cmd := exec.CommandContext(ctx, "bash", script, ws.Path, ws.TaskID, m.repoPath)
		cmd.Dir = m.repoPath
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("script %s failed: %s: %w", script, out, err)
		}
	}
	return nil
}

// CleanupWorkspace runs the configured cleanup scripts (best-effort) and
// then tears down the backend workspace.
func (m *WorkspaceManager) CleanupWorkspace(ctx context.Context, ws Workspace) error {
	m.log.Info("cleaning up workspace", "task_id", ws.TaskID)

	for _, script := range m.config.CleanupScripts {
		if _, err := os.Stat(script); err != nil {
			m.log.Warn("cleanup script not found, skipping", "script", script)
			continue
		}
		cmd := exec.CommandContext(ctx, "bash", script, ws.Path, ws.TaskID)
		cmd.Dir = m.repoPath
		if out, err := cmd.CombinedOutput(); err != nil {
			m.log.Warn("cleanup script failed", "script", script, "output", string(out), "error", err)
		}
	}

	if err := m.vcs.CleanupWorkspace(ctx, ws); err != nil {
		return err
	}

	m.log.Info("workspace cleaned up", "task_id", ws.TaskID)
	return nil
}

func (m *WorkspaceManager) GetDiff(ctx context.Context, ws Workspace) (string, error) {
	return m.vcs.GetDiff(ctx, ws)
}

func (m *WorkspaceManager) GetStatus(ctx context.Context, ws Workspace) (string, error) {
	return m.vcs.GetStatus(ctx, ws)
}

func (m *WorkspaceManager) GetDiffSummary(ctx context.Context, ws Workspace) (DiffSummary, error) {
	return m.vcs.GetDiffSummary(ctx, ws)
}

func (m *WorkspaceManager) MergeWorkspace(ctx context.Context, ws Workspace, message string) (MergeResult, error) {
	return m.vcs.MergeWorkspace(ctx, ws, message)
}

func (m *WorkspaceManager) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	return m.vcs.ListWorkspaces(ctx)
}

func (m *WorkspaceManager) Commit(ctx context.Context, ws Workspace, message string) (string, error) {
	return m.vcs.Commit(ctx, ws, message)
}

func (m *WorkspaceManager) Push(ctx context.Context, ws Workspace, remote string) error {
	return m.vcs.Push(ctx, ws, remote)
}

func (m *WorkspaceManager) HasUncommittedChanges(ctx context.Context, ws Workspace) (bool, error) {
	return m.vcs.HasUncommittedChanges(ctx, ws)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
