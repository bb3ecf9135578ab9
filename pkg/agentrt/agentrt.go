// Package agentrt is the HTTP/SSE client for the external agent runtime
// the phase engine drives: session create/prompt/abort, MCP wiring, and the
// live event stream.
package agentrt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrSessionNotFound is returned when the runtime has no session with the
// given id.
var ErrSessionNotFound = errors.New("agent runtime: session not found")

// Session is the runtime's conversation handle.
type Session struct {
	ID        string    `json:"id"`
	Title     *string   `json:"title,omitempty"`
	ParentID  *string   `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Message is one turn in a session's transcript. Content is the flattened
// assistant text; Parts, when the runtime supplies them, carry the
// fine-grained segments (text, tool invocations, tool results) in order.
type Message struct {
	ID        string        `json:"id"`
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	Parts     []MessagePart `json:"parts,omitempty"`
	CreatedAt time.Time     `json:"created_at,omitempty"`
}

// MessagePart is one segment of a message: plain text ("text"), a tool
// invocation ("tool_use"), or a tool's result ("tool_result").
type MessagePart struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Tool    string          `json:"tool,omitempty"`
	CallID  string          `json:"call_id,omitempty"`
	Input   json.RawMessage `json:"input,omitempty"`
	Output  string          `json:"output,omitempty"`
	IsError bool            `json:"is_error,omitempty"`
}

type createSessionRequest struct {
	Title    *string `json:"title,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
}

type sendMessageRequest struct {
	Parts     []MessagePart `json:"parts"`
	Model     *string       `json:"model,omitempty"`
	Directory *string       `json:"directory,omitempty"`
}

// MessageResponse wraps the assistant's reply to a prompt.
type MessageResponse struct {
	SessionID string  `json:"session_id"`
	Message   Message `json:"message"`
}

// Client talks to a locally running agent runtime over plain HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client against baseURL (e.g. "http://localhost:4096").
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 60 * time.Second}}
}

// WithHTTPClient overrides the underlying http.Client, for tests that point
// at an httptest.Server.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("agent runtime request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSessionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("agent runtime returned status %d: %s", resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CreateSession opens a new conversation, optionally titled.
func (c *Client) CreateSession(ctx context.Context, title *string) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/session", createSessionRequest{Title: title}, &s)
	return s, err
}

// GetSession fetches a session by id.
func (c *Client) GetSession(ctx context.Context, sessionID string) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodGet, "/session/"+sessionID, nil, &s)
	return s, err
}

// SendPrompt submits prompt to sessionID and waits for the assistant's
// reply. model, if non-empty, overrides the runtime's default model;
// directory, if non-empty, tells the runtime which working tree the
// conversation operates in.
func (c *Client) SendPrompt(ctx context.Context, sessionID, prompt, model, directory string) (MessageResponse, error) {
	req := sendMessageRequest{Parts: []MessagePart{{Type: "text", Text: prompt}}}
	if model != "" {
		req.Model = &model
	}
	if directory != "" {
		req.Directory = &directory
	}
	var resp MessageResponse
	err := c.do(ctx, http.MethodPost, "/session/"+sessionID+"/message", req, &resp)
	return resp, err
}

// Abort cancels an in-flight session.
func (c *Client) Abort(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, "/session/"+sessionID+"/abort", nil, nil)
}

// GetMessages fetches a session's full transcript.
func (c *Client) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	err := c.do(ctx, http.MethodGet, "/session/"+sessionID+"/messages", nil, &resp)
	return resp.Messages, err
}

// AddMCPServer registers an MCP server with the runtime, scoped to
// sessionID, so its tools become available to that conversation.
func (c *Client) AddMCPServer(ctx context.Context, sessionID, name, command string, args []string) error {
	req := struct {
		Name    string   `json:"name"`
		Command string   `json:"command"`
		Args    []string `json:"args"`
	}{Name: name, Command: command, Args: args}
	return c.do(ctx, http.MethodPost, "/session/"+sessionID+"/mcp", req, nil)
}

// ConnectMCPServer connects a previously-registered MCP server.
func (c *Client) ConnectMCPServer(ctx context.Context, sessionID, name string) error {
	return c.do(ctx, http.MethodPost, "/session/"+sessionID+"/mcp/"+name+"/connect", nil, nil)
}

// DisconnectMCPServer tears down a connected MCP server. Disconnect
// failures during cleanup are the caller's responsibility to log, not
// surface — see pkg/mcp's guard.
func (c *Client) DisconnectMCPServer(ctx context.Context, sessionID, name string) error {
	return c.do(ctx, http.MethodPost, "/session/"+sessionID+"/mcp/"+name+"/disconnect", nil, nil)
}
