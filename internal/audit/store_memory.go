package audit

import (
	"context"
	"sync"

	id "shahid/pkg/domain"
)

// InMemoryStore keeps events in a slice. Backs tests and demo mode.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lastN(s.events, limit, func(Event) bool { return true }), nil
}

func (s *InMemoryStore) ListByActor(ctx context.Context, actorID id.UserID, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lastN(s.events, limit, func(e Event) bool { return e.ActorID == actorID }), nil
}

// lastN returns up to limit matching events, newest first.
func lastN(events []Event, limit int, match func(Event) bool) []Event {
	if limit <= 0 {
		limit = 50
	}
	out := make([]Event, 0, limit)
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		if match(events[i]) {
			out = append(out, events[i])
		}
	}
	return out
}
