package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

const (
	heartbeatInterval = 30 * time.Second
	idleTimeout        = 40 * time.Second
	writeTimeout       = 5 * time.Second
)

// ClientMessage is a client → server WebSocket message.
type ClientMessage struct {
	Type   string            `json:"type"`
	Filter *SubscriptionFilter `json:"filter,omitempty"`
}

// SubscriptionFilter restricts which envelopes a WebSocket subscriber
// receives. A nil filter, or a filter with no TaskIDs, matches everything.
type SubscriptionFilter struct {
	TaskIDs []uuid.UUID `json:"task_ids,omitempty"`
}

// Matches reports whether envelope passes the filter: true if no filter is
// set, the event carries no task id, or its task id is in the filter set.
func (f *SubscriptionFilter) Matches(envelope models.EventEnvelope) bool {
	if f == nil || len(f.TaskIDs) == 0 {
		return true
	}
	taskID := envelope.Event.TaskID()
	if taskID == nil {
		return true
	}
	for _, id := range f.TaskIDs {
		if id == *taskID {
			return true
		}
	}
	return false
}

// serverMessage is the envelope for every server → client WebSocket message.
type serverMessage struct {
	Type     string               `json:"type"`
	Envelope *models.EventEnvelope `json:"envelope,omitempty"`
	Filter   *SubscriptionFilter  `json:"filter,omitempty"`
	Message  string               `json:"message,omitempty"`
}

// HandleConnection runs one WebSocket client's protocol loop to completion.
// It blocks until the connection closes, the context is cancelled, or an
// I/O error occurs. Per §4.7: subscribe/unsubscribe/ping from the client;
// event/subscribed/unsubscribed/pong/error to the client; a pong on every
// 30s heartbeat tick and another pong after 40s without client traffic.
// The server never sends a ping.
func HandleConnection(ctx context.Context, conn *websocket.Conn, bus *Bus) {
	sub := bus.Subscribe()
	defer sub.Close()

	var filter *SubscriptionFilter
	subscribed := false
	lastClientActivity := time.Now()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	incoming := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			incoming <- data
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-readErr:
			if err != nil {
				slog.Debug("websocket read loop exiting", "error", err)
			}
			return

		case data := <-incoming:
			lastClientActivity = time.Now()
			var msg ClientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				sendJSON(ctx, conn, serverMessage{Type: "error", Message: "invalid message"})
				continue
			}
			switch msg.Type {
			case "subscribe":
				filter = msg.Filter
				subscribed = true
				sendJSON(ctx, conn, serverMessage{Type: "subscribed", Filter: filter})
			case "unsubscribe":
				subscribed = false
				filter = nil
				sendJSON(ctx, conn, serverMessage{Type: "unsubscribed"})
			case "ping":
				sendJSON(ctx, conn, serverMessage{Type: "pong"})
			default:
				sendJSON(ctx, conn, serverMessage{Type: "error", Message: "unknown message type"})
			}

		case item := <-sub.C:
			switch v := item.(type) {
			case models.EventEnvelope:
				if subscribed && filter.Matches(v) {
					env := v
					sendJSON(ctx, conn, serverMessage{Type: "event", Envelope: &env})
				}
			case Lagged:
				slog.Warn("websocket subscriber lagged", "dropped", v.Dropped)
			}

		case <-heartbeat.C:
			sendJSON(ctx, conn, serverMessage{Type: "pong"})

		case <-time.After(time.Until(lastClientActivity.Add(idleTimeout))):
			if time.Since(lastClientActivity) >= idleTimeout {
				sendJSON(ctx, conn, serverMessage{Type: "pong"})
				lastClientActivity = time.Now()
			}
		}
	}
}

func sendJSON(ctx context.Context, conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("failed to marshal websocket message", "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		slog.Debug("failed to write websocket message", "error", err)
	}
}
