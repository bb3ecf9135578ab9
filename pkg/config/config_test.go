package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
name = "my-project"
vcs = "jujutsu"

[server]
port = 9000

[executor]
require_plan_approval = false
require_human_review = true
max_review_iterations = 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "my-project", cfg.Name)
	assert.Equal(t, "jujutsu", cfg.VCS)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, Default().Server.Host, cfg.Server.Host, "unset fields keep their default")
	assert.False(t, cfg.Executor.RequirePlanApproval)
	assert.Equal(t, 5, cfg.Executor.MaxReviewIterations)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("STUDIO_AGENT_URL", "http://127.0.0.1:5050")

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[agent_runtime]
base_url = "${STUDIO_AGENT_URL}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:5050", cfg.AgentRuntime.BaseURL)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.VCS = "svn"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Executor.MaxReviewIterations = 0
	assert.Error(t, cfg.Validate())
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.RepoPath = "/projects/demo"

	assert.Equal(t, "/projects/demo/.opencode-studio", cfg.DataDir())
	assert.Equal(t, "/projects/demo/.opencode-studio/studio.db", cfg.DatabasePath())
	assert.Equal(t, "/projects/.workspaces", cfg.WorkspaceBase())
}
