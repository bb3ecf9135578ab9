package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
	"github.com/google/uuid"
)

// ActivityStore is the append-only, in-memory log for a single session. A
// persistence-backed mirror is written through pkg/store; this in-memory
// copy is what tail reads (since) poll against without hitting the
// database on every WebSocket-less poller.
type ActivityStore struct {
	mu        sync.RWMutex
	sessionID uuid.UUID
	entries   []models.SessionActivity
	nextID    int64
	finished  bool
}

func newActivityStore(sessionID uuid.UUID) *ActivityStore {
	return &ActivityStore{sessionID: sessionID, nextID: 1}
}

// Append assigns the next gap-free integer id and timestamps the activity,
// then stores it.
func (s *ActivityStore) Append(activityType string, activityID *string, data json.RawMessage) models.SessionActivity {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := models.SessionActivity{
		ID:           s.nextID,
		SessionID:    s.sessionID,
		ActivityType: activityType,
		ActivityID:   activityID,
		Data:         data,
		CreatedAt:    time.Now().UTC(),
	}
	s.nextID++
	s.entries = append(s.entries, entry)
	if activityType == models.ActivityTypeFinished {
		s.finished = true
	}
	return entry
}

// PushFinished writes a synthetic terminal record. Idempotent: once a
// finished entry has been written for this session, subsequent calls are a
// no-op.
func (s *ActivityStore) PushFinished(success bool, errMsg string) {
	s.mu.Lock()
	already := s.finished
	s.mu.Unlock()
	if already {
		return
	}

	payload, _ := json.Marshal(models.FinishedData{Success: success, Error: errMsg})
	s.Append(models.ActivityTypeFinished, nil, payload)
}

// Since returns all entries with id strictly greater than id, in order —
// a tail read used to resume a UI subscriber.
func (s *ActivityStore) Since(id int64) []models.SessionActivity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SessionActivity, 0)
	for _, e := range s.entries {
		if e.ID > id {
			out = append(out, e)
		}
	}
	return out
}

// All returns every entry recorded for the session.
func (s *ActivityStore) All() []models.SessionActivity {
	return s.Since(0)
}

// Count returns the number of entries recorded for the session.
func (s *ActivityStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ActivityRegistry maps session_id to its ActivityStore. get_or_create is
// atomic: concurrent callers racing to create a store for the same session
// converge on the same instance.
type ActivityRegistry struct {
	mu     sync.Mutex
	stores map[uuid.UUID]*ActivityStore
}

// NewActivityRegistry creates an empty registry.
func NewActivityRegistry() *ActivityRegistry {
	return &ActivityRegistry{stores: make(map[uuid.UUID]*ActivityStore)}
}

// GetOrCreate returns the store for sessionID, creating it if absent.
func (r *ActivityRegistry) GetOrCreate(sessionID uuid.UUID) *ActivityStore {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[sessionID]; ok {
		return s
	}
	s := newActivityStore(sessionID)
	r.stores[sessionID] = s
	return s
}

// Get returns the store for sessionID if one has been created.
func (r *ActivityRegistry) Get(sessionID uuid.UUID) (*ActivityStore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[sessionID]
	return s, ok
}

// Drop removes the store for sessionID, e.g. when its session is deleted
// via the repository.
func (r *ActivityRegistry) Drop(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, sessionID)
}
