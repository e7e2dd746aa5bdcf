package updatestream

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultCapacity is the per-subscriber channel buffer size. A slow
// subscriber that falls this far behind starts losing events rather than
// blocking the indexer (§9: "a subscriber that cannot keep up drops
// events and is told so, it never blocks indexing").
const DefaultCapacity = 64

type subscriber struct {
	ch       chan Event
	dropped  bool
}

// Stream is a fan-out broadcaster of Events. One Stream belongs to a
// single package indexer; every caller watching that package's live
// updates (CLI followers, RPC clients) subscribes independently.
type Stream struct {
	mu          sync.Mutex
	capacity    int
	subscribers map[string]*subscriber
	closed      bool
}

// New creates a Stream whose subscriber channels are buffered to
// capacity. A non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Stream {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Stream{
		capacity:    capacity,
		subscribers: make(map[string]*subscriber),
	}
}

// Subscribe registers a new listener and returns its id (for
// Unsubscribe) and its receive-only event channel. The channel is closed
// when the Stream is closed or the subscriber is removed.
func (s *Stream) Subscribe() (id string, events <-chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &subscriber{ch: make(chan Event, s.capacity)}
	id = uuid.NewString()
	s.subscribers[id] = sub
	if s.closed {
		close(sub.ch)
	}
	return id, sub.ch
}

// Unsubscribe removes a listener and closes its channel. Unsubscribing an
// unknown or already-removed id is a no-op.
func (s *Stream) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscribers[id]
	if !ok {
		return
	}
	delete(s.subscribers, id)
	close(sub.ch)
}

// Publish fans ev out to every current subscriber. A subscriber whose
// buffer is full does not block Publish: the event is dropped for that
// subscriber, and the next event it successfully receives is preceded by
// a single synthetic Error("backpressure: subscriber fell behind, events
// were dropped"), which does not say how many were lost, so listeners can
// tell their view went stale instead of silently missing updates.
func (s *Stream) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	for _, sub := range s.subscribers {
		s.deliver(sub, ev)
	}
}

func (s *Stream) deliver(sub *subscriber, ev Event) {
	if sub.dropped {
		select {
		case sub.ch <- NewError("backpressure: subscriber fell behind, events were dropped", ""):
			sub.dropped = false
		default:
			// Still full; keep the dropped flag set and try ev below.
		}
	}
	select {
	case sub.ch <- ev:
	default:
		sub.dropped = true
	}
}

// Close closes every subscriber channel and marks the Stream closed;
// subsequent Subscribe calls return an already-closed channel and
// Publish becomes a no-op. Close is idempotent.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, sub := range s.subscribers {
		close(sub.ch)
		delete(s.subscribers, id)
	}
}
