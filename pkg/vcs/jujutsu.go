package vcs

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// JujutsuBackend drives jj via subprocess invocation, grounded on the
// original implementation's jj workspace/rebase/resolve flow.
type JujutsuBackend struct {
	repoPath      string
	workspaceBase string
	mainBranch    string
}

// NewJujutsuBackend creates a JujutsuBackend rooted at repoPath.
func NewJujutsuBackend(repoPath, workspaceBase, mainBranch string) *JujutsuBackend {
	if mainBranch == "" {
		mainBranch = "main"
	}
	return &JujutsuBackend{repoPath: repoPath, workspaceBase: workspaceBase, mainBranch: mainBranch}
}

func (j *JujutsuBackend) Name() string       { return "jujutsu" }
func (j *JujutsuBackend) MainBranch() string { return j.mainBranch }

func (j *JujutsuBackend) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "jj", args...)
	cmd.Dir = dir
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &CommandError{Backend: "jj", Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

func (j *JujutsuBackend) IsAvailable(ctx context.Context) bool {
	_, err := j.run(ctx, j.repoPath, "--version")
	return err == nil
}

func (j *JujutsuBackend) IsInitialized(ctx context.Context) (bool, error) {
	_, err := os.Stat(filepath.Join(j.repoPath, ".jj"))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat .jj: %w", err)
	}
	return true, nil
}

func (j *JujutsuBackend) workspacePath(taskID string) string {
	return filepath.Join(j.workspaceBase, "task-"+taskID)
}

func (j *JujutsuBackend) workspaceName(taskID string) string {
	return "task-" + taskID
}

func (j *JujutsuBackend) CreateWorkspace(ctx context.Context, taskID string) (Workspace, error) {
	path := j.workspacePath(taskID)
	if _, err := os.Stat(path); err == nil {
		return Workspace{}, ErrWorkspaceAlreadyExists
	}
	name := j.workspaceName(taskID)

	if _, err := j.run(ctx, j.repoPath, "new", j.mainBranch, "-m", fmt.Sprintf("task-%s: start implementation", taskID)); err != nil {
		return Workspace{}, err
	}
	if _, err := j.run(ctx, j.repoPath, "workspace", "add", path, "--name", name); err != nil {
		return Workspace{}, err
	}

	return NewWorkspace(taskID, path, name), nil
}

func (j *JujutsuBackend) requireWorkspace(ws Workspace) error {
	if _, err := os.Stat(ws.Path); os.IsNotExist(err) {
		return ErrWorkspaceNotFound
	}
	return nil
}

func (j *JujutsuBackend) GetDiff(ctx context.Context, ws Workspace) (string, error) {
	if err := j.requireWorkspace(ws); err != nil {
		return "", err
	}
	return j.run(ctx, ws.Path, "diff")
}

func (j *JujutsuBackend) GetStatus(ctx context.Context, ws Workspace) (string, error) {
	if err := j.requireWorkspace(ws); err != nil {
		return "", err
	}
	return j.run(ctx, ws.Path, "status")
}

func (j *JujutsuBackend) GetDiffSummary(ctx context.Context, ws Workspace) (DiffSummary, error) {
	if err := j.requireWorkspace(ws); err != nil {
		return DiffSummary{}, err
	}
	out, err := j.run(ctx, ws.Path, "diff", "--stat")
	if err != nil {
		return DiffSummary{}, err
	}

	var summary DiffSummary
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "|") {
			continue
		}
		summary.FilesChanged++
		summary.Additions += strings.Count(line, "+")
		summary.Deletions += strings.Count(line, "-")
	}
	return summary, nil
}

func (j *JujutsuBackend) MergeWorkspace(ctx context.Context, ws Workspace, message string) (MergeResult, error) {
	if err := j.requireWorkspace(ws); err != nil {
		return MergeResult{}, err
	}

	if _, err := j.run(ctx, ws.Path, "describe", "-m", message); err != nil {
		return MergeResult{}, err
	}

	_, rebaseErr := j.run(ctx, ws.Path, "rebase", "-d", j.mainBranch)
	if rebaseErr == nil {
		conflicts, err := j.GetConflicts(ctx, ws)
		if err != nil {
			return MergeResult{}, err
		}
		if len(conflicts) == 0 {
			return MergeResult{Success: true}, nil
		}
		return MergeResult{Files: conflicts}, nil
	}

	conflicts, convErr := j.GetConflicts(ctx, ws)
	if convErr != nil || len(conflicts) == 0 {
		return MergeResult{}, rebaseErr
	}
	return MergeResult{Files: conflicts}, nil
}

func (j *JujutsuBackend) GetConflicts(ctx context.Context, ws Workspace) ([]ConflictFile, error) {
	if err := j.requireWorkspace(ws); err != nil {
		return nil, err
	}
	out, err := j.run(ctx, ws.Path, "resolve", "--list")
	if err != nil {
		return nil, nil
	}

	var conflicts []ConflictFile
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		conflicts = append(conflicts, ConflictFile{Path: fields[0], ConflictType: ConflictTypeContent})
	}
	return conflicts, nil
}

func (j *JujutsuBackend) CleanupWorkspace(ctx context.Context, ws Workspace) error {
	_, _ = j.run(ctx, j.repoPath, "workspace", "forget", ws.BranchName)

	if _, err := os.Stat(ws.Path); err == nil {
		if err := os.RemoveAll(ws.Path); err != nil {
			return fmt.Errorf("remove workspace directory: %w", err)
		}
	}
	return nil
}

func (j *JujutsuBackend) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	out, err := j.run(ctx, j.repoPath, "workspace", "list")
	if err != nil {
		return nil, err
	}

	var workspaces []Workspace
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := strings.TrimSuffix(fields[0], ":")
		taskID, ok := strings.CutPrefix(name, "task-")
		if !ok {
			continue
		}
		path := j.workspacePath(taskID)
		if _, err := os.Stat(path); err == nil {
			workspaces = append(workspaces, NewWorkspace(taskID, path, name))
		}
	}
	return workspaces, nil
}

func (j *JujutsuBackend) Commit(ctx context.Context, ws Workspace, message string) (string, error) {
	if err := j.requireWorkspace(ws); err != nil {
		return "", err
	}
	if _, err := j.run(ctx, ws.Path, "describe", "-m", message); err != nil {
		return "", err
	}
	out, err := j.run(ctx, ws.Path, "log", "-r", "@", "--no-graph", "-T", "change_id")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (j *JujutsuBackend) Push(ctx context.Context, ws Workspace, remote string) error {
	if err := j.requireWorkspace(ws); err != nil {
		return err
	}
	if _, err := j.run(ctx, ws.Path, "bookmark", "create", ws.BranchName, "-r", "@", "--allow-backwards"); err != nil {
		return err
	}
	_, err := j.run(ctx, ws.Path, "git", "push", "--remote", remote, "--bookmark", ws.BranchName)
	return err
}

func (j *JujutsuBackend) HasUncommittedChanges(ctx context.Context, ws Workspace) (bool, error) {
	if err := j.requireWorkspace(ws); err != nil {
		return false, err
	}
	out, err := j.run(ctx, ws.Path, "diff", "--summary")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}
