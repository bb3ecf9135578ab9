// Package findings persists the structured review findings the findings
// MCP server collects, as a single JSON array per task.
package findings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Severity is how serious a Finding is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Finding is one structured issue an AI review surfaced against a file in
// the workspace, for the fix phase to address.
type Finding struct {
	FilePath  string    `json:"file_path"`
	Line      int       `json:"line,omitempty"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a file-backed, append-only collection of Findings for one task,
// guarded by a mutex since the findings MCP server may receive concurrent
// tool calls over its single stdio connection.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore opens a Store backed by path. The file is created lazily on the
// first Append; List on a missing file returns an empty slice.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// List returns every finding recorded so far, oldest first.
func (s *Store) List() ([]Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append records a new finding.
func (s *Store) Append(f Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	findings, err := s.load()
	if err != nil {
		return err
	}
	findings = append(findings, f)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create findings dir: %w", err)
	}
	data, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal findings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write findings file: %w", err)
	}
	return nil
}

func (s *Store) load() ([]Finding, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Finding{}, nil
		}
		return nil, fmt.Errorf("read findings file: %w", err)
	}
	if len(data) == 0 {
		return []Finding{}, nil
	}
	var findings []Finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, fmt.Errorf("parse findings file: %w", err)
	}
	return findings, nil
}
