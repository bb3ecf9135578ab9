// Package vcs abstracts version control over git and jujutsu so the phase
// engine can drive either without caring which backend a repository uses.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrWorkspaceNotFound is returned when an operation targets a workspace
	// whose directory no longer exists.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrWorkspaceAlreadyExists is returned by CreateWorkspace when the
	// target directory already exists.
	ErrWorkspaceAlreadyExists = errors.New("workspace already exists")

	// ErrNotInitialized is returned when the repository root is not a valid
	// root for the selected backend.
	ErrNotInitialized = errors.New("vcs not initialized in repository")
)

// CommandError wraps a failed subprocess invocation with its stderr output.
type CommandError struct {
	Backend string
	Args    []string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %v failed: %s", e.Backend, e.Args, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// WorkspaceStatus is the lifecycle state of a materialized working copy.
type WorkspaceStatus string

const (
	WorkspaceStatusActive    WorkspaceStatus = "active"
	WorkspaceStatusMerged    WorkspaceStatus = "merged"
	WorkspaceStatusAbandoned WorkspaceStatus = "abandoned"
)

// Workspace is an isolated working tree allocated for a single task.
type Workspace struct {
	TaskID     string          `json:"task_id"`
	Path       string          `json:"path"`
	BranchName string          `json:"branch_name"`
	Status     WorkspaceStatus `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewWorkspace creates a Workspace in the active status.
func NewWorkspace(taskID, path, branchName string) Workspace {
	return Workspace{
		TaskID:     taskID,
		Path:       path,
		BranchName: branchName,
		Status:     WorkspaceStatusActive,
		CreatedAt:  time.Now().UTC(),
	}
}

// ConflictType classifies a single merge conflict.
type ConflictType string

const (
	ConflictTypeContent        ConflictType = "content"
	ConflictTypeAddAdd         ConflictType = "add_add"
	ConflictTypeModifyDelete   ConflictType = "modify_delete"
	ConflictTypeDeleteModify   ConflictType = "delete_modify"
	ConflictTypeRename         ConflictType = "rename"
)

// ConflictFile names one file in conflict and how it conflicts.
type ConflictFile struct {
	Path         string       `json:"path"`
	ConflictType ConflictType `json:"conflict_type"`
}

// MergeResult is the outcome of merging a workspace back onto main. Exactly
// one of Success/Files is meaningful: when len(Files) == 0 the merge
// succeeded cleanly.
type MergeResult struct {
	Success bool           `json:"success"`
	Files   []ConflictFile `json:"files,omitempty"`
}

// IsSuccess reports whether the merge completed without conflicts.
func (m MergeResult) IsSuccess() bool { return m.Success }

// DiffSummary is a parsed file/line-count summary of a workspace's changes.
type DiffSummary struct {
	FilesChanged int `json:"files_changed"`
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
}

// VersionControl is the polymorphic surface the phase engine and workspace
// manager drive; GitBackend and JujutsuBackend are its two conforming
// implementations.
type VersionControl interface {
	// Name returns the backend's identifier, e.g. "git" or "jujutsu".
	Name() string

	// MainBranch returns the repository's main/default branch name.
	MainBranch() string

	// IsAvailable reports whether the backend binary is on PATH and
	// reports a version.
	IsAvailable(ctx context.Context) bool

	// IsInitialized reports whether the repository root is a valid root
	// for this backend.
	IsInitialized(ctx context.Context) (bool, error)

	// CreateWorkspace allocates a new branch and working directory for
	// taskID. Returns ErrWorkspaceAlreadyExists if one already exists.
	CreateWorkspace(ctx context.Context, taskID string) (Workspace, error)

	// GetDiff returns the unified diff of workspace's changes vs. main.
	GetDiff(ctx context.Context, ws Workspace) (string, error)

	// GetStatus returns the backend-native status text for workspace.
	GetStatus(ctx context.Context, ws Workspace) (string, error)

	// GetDiffSummary returns a parsed files/additions/deletions summary.
	GetDiffSummary(ctx context.Context, ws Workspace) (DiffSummary, error)

	// MergeWorkspace merges workspace's changes onto main. Conflicts are
	// reported in the result, never auto-resolved.
	MergeWorkspace(ctx context.Context, ws Workspace, message string) (MergeResult, error)

	// GetConflicts lists the files currently in conflict in workspace.
	GetConflicts(ctx context.Context, ws Workspace) ([]ConflictFile, error)

	// CleanupWorkspace tears down the backend registration and deletes the
	// working directory. Must be idempotent.
	CleanupWorkspace(ctx context.Context, ws Workspace) error

	// ListWorkspaces scans the backend for task workspaces still present.
	ListWorkspaces(ctx context.Context) ([]Workspace, error)

	// Commit records workspace's pending changes and returns the new
	// revision identifier.
	Commit(ctx context.Context, ws Workspace, message string) (string, error)

	// Push publishes workspace's branch to remote.
	Push(ctx context.Context, ws Workspace, remote string) error

	// HasUncommittedChanges reports whether workspace has changes that have
	// not yet been committed — checked before a destructive cleanup.
	HasUncommittedChanges(ctx context.Context, ws Workspace) (bool, error)
}
