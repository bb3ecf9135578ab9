package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

func TestSubscriptionFilterNilMatchesEverything(t *testing.T) {
	var filter *SubscriptionFilter
	env := models.NewEventEnvelope(models.TaskCreated{TaskIDValue: uuid.New(), Title: "x"})
	assert.True(t, filter.Matches(env))
}

func TestSubscriptionFilterEmptyMatchesEverything(t *testing.T) {
	filter := &SubscriptionFilter{}
	env := models.NewEventEnvelope(models.TaskCreated{TaskIDValue: uuid.New(), Title: "x"})
	assert.True(t, filter.Matches(env))
}

func TestSubscriptionFilterMatchesByTaskID(t *testing.T) {
	taskID := uuid.New()
	otherID := uuid.New()
	filter := &SubscriptionFilter{TaskIDs: []uuid.UUID{taskID}}

	matching := models.NewEventEnvelope(models.TaskCreated{TaskIDValue: taskID, Title: "x"})
	nonMatching := models.NewEventEnvelope(models.TaskCreated{TaskIDValue: otherID, Title: "y"})

	assert.True(t, filter.Matches(matching))
	assert.False(t, filter.Matches(nonMatching))
}

func TestSubscriptionFilterAlwaysPassesEventsWithNoTaskID(t *testing.T) {
	filter := &SubscriptionFilter{TaskIDs: []uuid.UUID{uuid.New()}}
	errEnv := models.NewEventEnvelope(models.ErrorEvent{Message: "boom"})
	assert.True(t, filter.Matches(errEnv))
}

// TestHandleConnectionFiltersForwardedEvents drives the full protocol loop
// over a real WebSocket: subscribe with a task filter, publish an event
// for another task, one for the filtered task, and one unattributed error
// event. Only the latter two may arrive.
func TestHandleConnectionFiltersForwardedEvents(t *testing.T) {
	bus := NewBus()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		HandleConnection(r.Context(), conn, bus)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	t1 := uuid.New()
	t2 := uuid.New()

	subscribeMsg, _ := json.Marshal(ClientMessage{Type: "subscribe", Filter: &SubscriptionFilter{TaskIDs: []uuid.UUID{t1}}})
	require.NoError(t, conn.Write(ctx, websocket.MessageText, subscribeMsg))

	// wait for the subscribed ack before publishing, so no event races the
	// subscription state
	ack := readServerMessage(t, ctx, conn)
	require.Equal(t, "subscribed", ack.Type)

	bus.Publish(models.NewEventEnvelope(models.AgentMessage{SessionID: uuid.New(), TaskIDValue: t2,
		Message: models.AgentMessageData{Content: "for t2"}}))
	bus.Publish(models.NewEventEnvelope(models.AgentMessage{SessionID: uuid.New(), TaskIDValue: t1,
		Message: models.AgentMessageData{Content: "for t1"}}))
	bus.Publish(models.NewEventEnvelope(models.ErrorEvent{Message: "boom"}))

	first := readServerMessage(t, ctx, conn)
	require.Equal(t, "event", first.Type)
	require.NotNil(t, first.Envelope)
	assert.Contains(t, string(first.Envelope), t1.String())
	assert.NotContains(t, string(first.Envelope), t2.String())

	second := readServerMessage(t, ctx, conn)
	require.Equal(t, "event", second.Type)
	assert.Contains(t, string(second.Envelope), "boom")
}

// TestHandleConnectionPingPong checks the client-initiated ping path.
func TestHandleConnectionPingPong(t *testing.T) {
	bus := NewBus()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		HandleConnection(r.Context(), conn, bus)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ping, _ := json.Marshal(ClientMessage{Type: "ping"})
	require.NoError(t, conn.Write(ctx, websocket.MessageText, ping))

	pong := readServerMessage(t, ctx, conn)
	assert.Equal(t, "pong", pong.Type)
}

// wireServerMessage mirrors serverMessage with a raw envelope so tests can
// decode without models.Event's interface type getting in the way.
type wireServerMessage struct {
	Type     string          `json:"type"`
	Envelope json.RawMessage `json:"envelope,omitempty"`
	Message  string          `json:"message,omitempty"`
}

func readServerMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) wireServerMessage {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg wireServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}
