package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient creates a client against a temp-file sqlite database,
// applying the real embedded migrations — the same "real datastore, not
// mocked" intent a container-backed integration test would express, without
// anything to containerize.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "studio.db")

	client, err := NewClient(DefaultConfig(path))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func TestNewClientAppliesMigrations(t *testing.T) {
	client := newTestClient(t)

	rows, err := client.DB().Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'tasks'`)
	require.NoError(t, err)
	defer rows.Close()

	assert.True(t, rows.Next(), "tasks table should exist after migrations run")
}

func TestNewClientIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.db")

	client1, err := NewClient(DefaultConfig(path))
	require.NoError(t, err)
	require.NoError(t, client1.Close())

	client2, err := NewClient(DefaultConfig(path))
	require.NoError(t, err)
	defer client2.Close()
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     Config{Path: "studio.db", MaxOpenConns: 1, MaxIdleConns: 1},
			wantErr: false,
		},
		{
			name:    "missing path",
			cfg:     Config{Path: "", MaxOpenConns: 1, MaxIdleConns: 1},
			wantErr: true,
		},
		{
			name:    "idle conns exceed open conns",
			cfg:     Config{Path: "studio.db", MaxOpenConns: 1, MaxIdleConns: 2},
			wantErr: true,
		},
		{
			name:    "zero max open conns",
			cfg:     Config{Path: "studio.db", MaxOpenConns: 0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
