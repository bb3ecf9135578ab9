package agentrt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionAndSendPrompt(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Session{ID: "sess-1"})
	})
	mux.HandleFunc("/session/sess-1/message", func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Parts, 1)
		assert.Equal(t, "hello", req.Parts[0].Text)
		require.NotNil(t, req.Directory)
		assert.Equal(t, "/tmp/ws", *req.Directory)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(MessageResponse{
			SessionID: "sess-1",
			Message:   Message{ID: "m1", Role: "assistant", Content: "hi there"},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := New(server.URL)

	sess, err := client.CreateSession(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)

	resp, err := client.SendPrompt(context.Background(), sess.ID, "hello", "", "/tmp/ws")
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Message.Content)
}

func TestGetSessionNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/session/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := New(server.URL)
	_, err := client.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEventStreamParsesEvents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/event", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		fmt.Fprintf(w, "data: {\"type\":\"session.message\",\"session_id\":\"s1\",\"content\":\"hi\"}\n\n")
		flusher.Flush()
		fmt.Fprintf(w, "data: {\"type\":\"session.completed\",\"session_id\":\"s1\"}\n\n")
		flusher.Flush()
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := New(server.URL)
	stream := NewEventStream(client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := stream.Connect(ctx)
	require.NoError(t, err)

	first := <-events
	assert.Equal(t, EventSessionMessage, first.Type)
	assert.Equal(t, "hi", first.Content)

	second := <-events
	assert.Equal(t, EventSessionCompleted, second.Type)
}
