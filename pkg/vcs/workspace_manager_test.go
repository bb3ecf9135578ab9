package vcs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVCS is a minimal in-memory VersionControl used to exercise
// WorkspaceManager's setup/cleanup pipeline without shelling out.
type fakeVCS struct {
	base         string
	createErr    error
	cleanupCalls int
}

func (f *fakeVCS) Name() string       { return "fake" }
func (f *fakeVCS) MainBranch() string { return "main" }

func (f *fakeVCS) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeVCS) IsInitialized(ctx context.Context) (bool, error) { return true, nil }

func (f *fakeVCS) CreateWorkspace(ctx context.Context, taskID string) (Workspace, error) {
	if f.createErr != nil {
		return Workspace{}, f.createErr
	}
	path := filepath.Join(f.base, "task-"+taskID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Workspace{}, err
	}
	return NewWorkspace(taskID, path, "task-"+taskID), nil
}

func (f *fakeVCS) GetDiff(ctx context.Context, ws Workspace) (string, error) { return "", nil }
func (f *fakeVCS) GetStatus(ctx context.Context, ws Workspace) (string, error) { return "", nil }
func (f *fakeVCS) GetDiffSummary(ctx context.Context, ws Workspace) (DiffSummary, error) {
	return DiffSummary{}, nil
}
func (f *fakeVCS) MergeWorkspace(ctx context.Context, ws Workspace, message string) (MergeResult, error) {
	return MergeResult{Success: true}, nil
}
func (f *fakeVCS) GetConflicts(ctx context.Context, ws Workspace) ([]ConflictFile, error) {
	return nil, nil
}
func (f *fakeVCS) CleanupWorkspace(ctx context.Context, ws Workspace) error {
	f.cleanupCalls++
	return os.RemoveAll(ws.Path)
}
func (f *fakeVCS) ListWorkspaces(ctx context.Context) ([]Workspace, error) { return nil, nil }
func (f *fakeVCS) Commit(ctx context.Context, ws Workspace, message string) (string, error) {
	return "deadbeef", nil
}
func (f *fakeVCS) Push(ctx context.Context, ws Workspace, remote string) error { return nil }
func (f *fakeVCS) HasUncommittedChanges(ctx context.Context, ws Workspace) (bool, error) {
	return false, nil
}

func TestWorkspaceManagerSetupCopiesAndSymlinks(t *testing.T) {
	repoDir := t.TempDir()
	workspaceBase := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(repoDir, ".env"), []byte("KEY=value"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(repoDir, "node_modules"), 0o755))

	config := DefaultWorkspaceConfig(workspaceBase)
	vcs := &fakeVCS{base: workspaceBase}
	manager := NewWorkspaceManager(vcs, config, repoDir, nil)

	ws, err := manager.SetupWorkspace(context.Background(), "123")
	require.NoError(t, err)

	envPath := filepath.Join(ws.Path, ".env")
	data, err := os.ReadFile(envPath)
	require.NoError(t, err)
	assert.Equal(t, "KEY=value", string(data))

	linkPath := filepath.Join(ws.Path, "node_modules")
	info, err := os.Lstat(linkPath)
	require.NoError(t, err)
	assert.True(t, info.Mode()&os.ModeSymlink != 0)
}

func TestWorkspaceManagerSetupCleansUpOnScriptFailure(t *testing.T) {
	repoDir := t.TempDir()
	workspaceBase := t.TempDir()

	failingScript := filepath.Join(t.TempDir(), "init.sh")
	require.NoError(t, os.WriteFile(failingScript, []byte("#!/bin/sh\nexit 1\n"), 0o755))

	config := DefaultWorkspaceConfig(workspaceBase)
	config.InitScripts = []string{failingScript}
	vcs := &fakeVCS{base: workspaceBase}
	manager := NewWorkspaceManager(vcs, config, repoDir, nil)

	_, err := manager.SetupWorkspace(context.Background(), "456")
	assert.Error(t, err)
	assert.Equal(t, 1, vcs.cleanupCalls, "a failed init script must trigger workspace cleanup")
}

func TestWorkspaceManagerSetupPropagatesCreateError(t *testing.T) {
	vcs := &fakeVCS{createErr: ErrWorkspaceAlreadyExists}
	manager := NewWorkspaceManager(vcs, DefaultWorkspaceConfig(t.TempDir()), t.TempDir(), nil)

	_, err := manager.SetupWorkspace(context.Background(), "789")
	assert.ErrorIs(t, err, ErrWorkspaceAlreadyExists)
}

func TestNewSelectsBackendByName(t *testing.T) {
	git, err := New(BackendGit, "/repo", "/workspaces", "main")
	require.NoError(t, err)
	assert.Equal(t, "git", git.Name())

	jj, err := New(BackendJujutsu, "/repo", "/workspaces", "main")
	require.NoError(t, err)
	assert.Equal(t, "jujutsu", jj.Name())

	_, err = New("svn", "/repo", "/workspaces", "main")
	assert.Error(t, err)
}
