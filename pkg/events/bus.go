// Package events implements the process-wide event bus (C1), the per-session
// activity store (C2), and the WebSocket connection manager that bridges
// them to clients (C7's WS half).
package events

import (
	"sync"
	"sync/atomic"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// subscriberCapacity bounds the number of buffered envelopes per subscriber.
// A slow client does not get to hold the bus's memory hostage: once its
// queue is full, the oldest envelope is dropped and the subscriber is
// marked lagged so it can resync.
const subscriberCapacity = 1000

// Lagged is queued on a subscriber's channel when a publish finds that
// subscriber's queue full: the oldest queued item is removed, this marker
// takes its place, and the envelope being published is not queued for that
// subscriber. Dropped is always 1; each overflowing publish queues its own
// marker.
type Lagged struct {
	Dropped int
}

// Subscription is a single subscriber's view of the bus. Receive either an
// EventEnvelope or a Lagged signal from C.
type Subscription struct {
	C      <-chan any
	bus    *Bus
	id     uint64
	ch     chan any
	mu     sync.Mutex
	closed bool
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.bus.unsubscribe(s.id)
}

// Bus is a bounded, in-process broadcast pub/sub. Publish never blocks and
// never fails; it is safe to share across goroutines.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]*Subscription
	nextID      uint64
	eventCount  atomic.Uint64
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[uint64]*Subscription),
	}
}

// Subscribe registers a new subscriber. It sees only envelopes published
// after this call returns.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan any, subscriberCapacity)
	sub := &Subscription{C: ch, bus: b, id: id, ch: ch}
	b.subscribers[id] = sub
	return sub
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, id)
}

// SubscriberCount returns the number of live receivers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// EventCount returns the total number of envelopes published, for
// monitoring only.
func (b *Bus) EventCount() uint64 {
	return b.eventCount.Load()
}

// Publish delivers envelope to every current subscriber in the same
// relative order for all of them (modulo per-subscriber lag drops). Returns
// the number of subscribers it was delivered to; 0 if there were none.
func (b *Bus) Publish(envelope models.EventEnvelope) int {
	b.eventCount.Add(1)

	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		deliver(s.ch, envelope)
	}
	return len(subs)
}

// deliver sends an envelope non-blockingly; if the subscriber's queue is
// full, the oldest queued item is dropped to make room and a Lagged signal
// replaces it so the subscriber knows to resync.
func deliver(ch chan any, envelope models.EventEnvelope) {
	select {
	case ch <- envelope:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- Lagged{Dropped: 1}:
	default:
	}
}

// OrderedEmitter layers a per-process monotonic sequence counter in front
// of Publish. Clones (copies of the struct) share the counter, so tests can
// assert strict publish ordering across multiple emitter handles.
type OrderedEmitter struct {
	bus *Bus
	seq *atomic.Uint64
}

// NewOrderedEmitter creates an emitter bound to bus with a fresh counter.
func NewOrderedEmitter(bus *Bus) OrderedEmitter {
	return OrderedEmitter{bus: bus, seq: new(atomic.Uint64)}
}

// Emit publishes event wrapped in a fresh envelope and returns the sequence
// number assigned to this publish (1-indexed, shared across clones).
func (e OrderedEmitter) Emit(event models.Event) (seq uint64, delivered int) {
	seq = e.seq.Add(1)
	delivered = e.bus.Publish(models.NewEventEnvelope(event))
	return seq, delivered
}
