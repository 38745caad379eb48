package runtime

import (
	"context"
	"direct-chat/domain/event"
	"sync"
)

// recordingSink keeps every event it receives, in order.
type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
	err    error
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Events() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}

func (s *recordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// Named returns the events of the given name only.
func (s *recordingSink) Named(name event.Name) []event.DomainEvent {
	var res []event.DomainEvent
	for _, e := range s.Events() {
		if e.EventName() == name {
			res = append(res, e)
		}
	}
	return res
}
