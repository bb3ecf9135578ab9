package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/opencode-studio/pkg/agentrt"
)

func TestSetupFindingsServerAddsAndConnects(t *testing.T) {
	t.Setenv(FindingsBinaryEnvVar, "/usr/local/bin/mcp-findings")

	taskID := uuid.New()
	sessionID := uuid.New()

	var addedName, addedCommand string
	var connectedName string

	mux := http.NewServeMux()
	mux.HandleFunc("/session/"+sessionID.String()+"/mcp", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name    string   `json:"name"`
			Command string   `json:"command"`
			Args    []string `json:"args"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		addedName = body.Name
		addedCommand = body.Command
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/session/"+sessionID.String()+"/mcp/opencode-findings/connect", func(w http.ResponseWriter, r *http.Request) {
		connectedName = "opencode-findings"
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := agentrt.New(server.URL)
	manager := NewManager(client, nil)

	err := manager.SetupFindingsServer(context.Background(), taskID, sessionID, "/workspace/task-1", "/repo/.opencode-studio/kanban/findings/task-1.json")
	require.NoError(t, err)

	assert.Equal(t, FindingsServerName, addedName)
	assert.Equal(t, "/usr/local/bin/mcp-findings", addedCommand)
	assert.Equal(t, FindingsServerName, connectedName)
}

func TestSetupFindingsServerFailsWhenBinaryUnresolvable(t *testing.T) {
	t.Setenv(FindingsBinaryEnvVar, "")
	t.Setenv("PATH", t.TempDir())

	client := agentrt.New("http://unused.invalid")
	manager := NewManager(client, nil)

	err := manager.SetupFindingsServer(context.Background(), uuid.New(), uuid.New(), "/workspace/task-1", "/repo/.opencode-studio/kanban/findings/task-1.json")
	assert.Error(t, err)
}

func TestCleanupFindingsServerLogsButDoesNotFail(t *testing.T) {
	sessionID := uuid.New()

	mux := http.NewServeMux()
	mux.HandleFunc("/session/"+sessionID.String()+"/mcp/opencode-findings/disconnect", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := agentrt.New(server.URL)
	manager := NewManager(client, nil)

	assert.NotPanics(t, func() {
		manager.CleanupFindingsServer(context.Background(), sessionID)
	})
}

func TestGuardConnectAndRelease(t *testing.T) {
	t.Setenv(FindingsBinaryEnvVar, "/usr/local/bin/mcp-findings")

	sessionID := uuid.New()
	var disconnected bool

	mux := http.NewServeMux()
	mux.HandleFunc("/session/"+sessionID.String()+"/mcp", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/session/"+sessionID.String()+"/mcp/opencode-findings/connect", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/session/"+sessionID.String()+"/mcp/opencode-findings/disconnect", func(w http.ResponseWriter, r *http.Request) {
		disconnected = true
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := agentrt.New(server.URL)
	manager := NewManager(client, nil)

	guard, err := Connect(context.Background(), manager, uuid.New(), sessionID, "/workspace/task-1", "/repo/.opencode-studio/kanban/findings/task-1.json")
	require.NoError(t, err)
	assert.True(t, guard.IsConnected())

	guard.Release(context.Background())
	assert.False(t, guard.IsConnected())
	assert.True(t, disconnected)

	guard.Release(context.Background())
}
