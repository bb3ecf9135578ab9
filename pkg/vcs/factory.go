package vcs

import "fmt"

// Backend names accepted by New.
const (
	BackendGit     = "git"
	BackendJujutsu = "jujutsu"
)

// New picks a VersionControl implementation by name.
func New(backend, repoPath, workspaceBase, mainBranch string) (VersionControl, error) {
	switch backend {
	case BackendGit:
		return NewGitBackend(repoPath, workspaceBase, mainBranch), nil
	case BackendJujutsu:
		return NewJujutsuBackend(repoPath, workspaceBase, mainBranch), nil
	default:
		return nil, fmt.Errorf("unknown vcs backend %q", backend)
	}
}
