package mcp

import (
	"os"
	"os/exec"
	"path/filepath"
)

// FindingsBinaryEnvVar overrides the resolved findings-server binary path.
const FindingsBinaryEnvVar = "OPENCODE_STUDIO_MCP_FINDINGS_BIN"

// findingsBinaryName is the default binary name looked up alongside the
// orchestrator's own executable, and as a last resort on PATH.
const findingsBinaryName = "mcp-findings"

// ResolveFindingsBinary locates the MCP findings server binary by, in
// order: the override env var, a binary named mcp-findings next to the
// orchestrator's own executable, then a PATH lookup. The first match wins.
func ResolveFindingsBinary() (string, error) {
	if path := os.Getenv(FindingsBinaryEnvVar); path != "" {
		return path, nil
	}

	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), findingsBinaryName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return exec.LookPath(findingsBinaryName)
}
