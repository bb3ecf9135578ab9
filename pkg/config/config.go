// Package config loads the project's .opencode-studio/config.toml, merges
// it with built-in defaults, expands environment variables, and validates
// the result.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ServerConfig controls the HTTP/WebSocket listener.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ExecutorConfig controls phase-engine gating and iteration limits.
type ExecutorConfig struct {
	RequirePlanApproval  bool `toml:"require_plan_approval"`
	RequireHumanReview   bool `toml:"require_human_review"`
	MaxReviewIterations  int  `toml:"max_review_iterations"`
}

// AgentRuntimeConfig points at the external agent-runtime HTTP/SSE endpoint.
type AgentRuntimeConfig struct {
	BaseURL string `toml:"base_url"`
}

// Config is the full project configuration, as loaded from config.toml.
type Config struct {
	Name       string              `toml:"name"`
	RepoPath   string              `toml:"repo_path"`
	VCS        string              `toml:"vcs"`
	Server     ServerConfig        `toml:"server"`
	Executor   ExecutorConfig      `toml:"executor"`
	AgentRuntime AgentRuntimeConfig `toml:"agent_runtime"`
}

// Default returns the built-in configuration merged against before a
// project's own config.toml is applied.
func Default() Config {
	return Config{
		Name:     "opencode-studio",
		RepoPath: ".",
		VCS:      "git",
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 4097,
		},
		Executor: ExecutorConfig{
			RequirePlanApproval: true,
			RequireHumanReview:  true,
			MaxReviewIterations: 3,
		},
		AgentRuntime: AgentRuntimeConfig{
			BaseURL: "http://localhost:4096",
		},
	}
}

// rawConfig mirrors Config but with pointer fields, so TOML decoding can
// distinguish "absent from config.toml" from "explicitly set to the zero
// value" during merge.
type rawConfig struct {
	Name         *string `toml:"name"`
	RepoPath     *string `toml:"repo_path"`
	VCS          *string `toml:"vcs"`
	Server       *struct {
		Host *string `toml:"host"`
		Port *int    `toml:"port"`
	} `toml:"server"`
	Executor *struct {
		RequirePlanApproval *bool `toml:"require_plan_approval"`
		RequireHumanReview  *bool `toml:"require_human_review"`
		MaxReviewIterations *int  `toml:"max_review_iterations"`
	} `toml:"executor"`
	AgentRuntime *struct {
		BaseURL *string `toml:"base_url"`
	} `toml:"agent_runtime"`
}

// Load reads config.toml at path, expands environment variables in its
// content, and merges the result onto Default(). A missing file is not an
// error — the defaults are returned as-is, matching a fresh project with no
// config.toml yet.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	data = ExpandEnv(data)

	var loaded rawConfig
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	merge(&cfg, loaded)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// merge overlays each explicitly-set field of loaded onto cfg, leaving
// anything loaded didn't mention at its Default() value.
func merge(cfg *Config, loaded rawConfig) {
	if loaded.Name != nil {
		cfg.Name = *loaded.Name
	}
	if loaded.RepoPath != nil {
		cfg.RepoPath = *loaded.RepoPath
	}
	if loaded.VCS != nil {
		cfg.VCS = *loaded.VCS
	}
	if loaded.Server != nil {
		if loaded.Server.Host != nil {
			cfg.Server.Host = *loaded.Server.Host
		}
		if loaded.Server.Port != nil {
			cfg.Server.Port = *loaded.Server.Port
		}
	}
	if loaded.Executor != nil {
		if loaded.Executor.RequirePlanApproval != nil {
			cfg.Executor.RequirePlanApproval = *loaded.Executor.RequirePlanApproval
		}
		if loaded.Executor.RequireHumanReview != nil {
			cfg.Executor.RequireHumanReview = *loaded.Executor.RequireHumanReview
		}
		if loaded.Executor.MaxReviewIterations != nil {
			cfg.Executor.MaxReviewIterations = *loaded.Executor.MaxReviewIterations
		}
	}
	if loaded.AgentRuntime != nil && loaded.AgentRuntime.BaseURL != nil {
		cfg.AgentRuntime.BaseURL = *loaded.AgentRuntime.BaseURL
	}
}

// Validate checks that cfg is usable.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config: name must not be empty")
	}
	if c.VCS != "git" && c.VCS != "jujutsu" {
		return fmt.Errorf("config: vcs must be %q or %q, got %q", "git", "jujutsu", c.VCS)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	if c.Executor.MaxReviewIterations <= 0 {
		return fmt.Errorf("config: executor.max_review_iterations must be positive")
	}
	if c.AgentRuntime.BaseURL == "" {
		return fmt.Errorf("config: agent_runtime.base_url must not be empty")
	}
	return nil
}

// DataDir returns the project's .opencode-studio directory.
func (c Config) DataDir() string {
	return filepath.Join(c.RepoPath, ".opencode-studio")
}

// DatabasePath returns the project's sqlite database file path.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir(), "studio.db")
}

// WorkspaceBase returns the directory task workspaces are created under,
// as siblings of the project repository.
func (c Config) WorkspaceBase() string {
	return filepath.Join(c.RepoPath, "..", ".workspaces")
}
