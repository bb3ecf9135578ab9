package events

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

func TestActivityStoreAppendAssignsGapFreeIDs(t *testing.T) {
	store := newActivityStore(uuid.New())

	a1 := store.Append(models.ActivityTypeAgentMessage, nil, json.RawMessage(`{}`))
	a2 := store.Append(models.ActivityTypeToolCall, nil, json.RawMessage(`{}`))

	assert.Equal(t, int64(1), a1.ID)
	assert.Equal(t, int64(2), a2.ID)
}

func TestActivityStoreSinceReturnsTail(t *testing.T) {
	store := newActivityStore(uuid.New())
	store.Append(models.ActivityTypeAgentMessage, nil, json.RawMessage(`{}`))
	store.Append(models.ActivityTypeToolCall, nil, json.RawMessage(`{}`))
	store.Append(models.ActivityTypeToolResult, nil, json.RawMessage(`{}`))

	tail := store.Since(1)
	require.Len(t, tail, 2)
	assert.Equal(t, int64(2), tail[0].ID)
	assert.Equal(t, int64(3), tail[1].ID)
}

func TestActivityStorePushFinishedIsIdempotent(t *testing.T) {
	store := newActivityStore(uuid.New())
	store.PushFinished(true, "")
	store.PushFinished(true, "")

	count := 0
	for _, e := range store.All() {
		if e.ActivityType == models.ActivityTypeFinished {
			count++
		}
	}
	assert.Equal(t, 1, count, "push_finished must be idempotent once already terminated")
}

func TestActivityRegistryGetOrCreateIsStable(t *testing.T) {
	registry := NewActivityRegistry()
	sessionID := uuid.New()

	s1 := registry.GetOrCreate(sessionID)
	s2 := registry.GetOrCreate(sessionID)
	assert.Same(t, s1, s2)
}

func TestActivityRegistryDrop(t *testing.T) {
	registry := NewActivityRegistry()
	sessionID := uuid.New()
	registry.GetOrCreate(sessionID)

	registry.Drop(sessionID)
	_, ok := registry.Get(sessionID)
	assert.False(t, ok)
}
