package rpc

import (
	"slices"
	"sync"

	"github.com/skobkin/presencego/internal/ipc"
)

// DefaultEvents are subscribed on every connection unless configured otherwise.
func DefaultEvents() []ipc.EventName {
	return []ipc.EventName{
		ipc.EventActivityJoin,
		ipc.EventActivitySpectate,
		ipc.EventActivityJoinRequest,
	}
}

// Subscriptions is the desired event set, replayed after every handshake.
type Subscriptions struct {
	mu     sync.Mutex
	events []ipc.EventName
}

// NewSubscriptions uses DefaultEvents when events is nil; an empty non-nil slice subscribes to nothing.
func NewSubscriptions(events []ipc.EventName) *Subscriptions {
	if events == nil {
		events = DefaultEvents()
	}
	s := &Subscriptions{}
	for _, evt := range events {
		s.Add(evt)
	}

	return s
}

// Add reports whether evt was not yet in the set.
func (s *Subscriptions) Add(evt ipc.EventName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.events, evt) {
		return false
	}
	s.events = append(s.events, evt)

	return true
}

// Remove reports whether evt was in the set.
func (s *Subscriptions) Remove(evt ipc.EventName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.Index(s.events, evt)
	if idx < 0 {
		return false
	}
	s.events = slices.Delete(s.events, idx, idx+1)

	return true
}

func (s *Subscriptions) Events() []ipc.EventName {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.events)
}

// Commands builds one SUBSCRIBE per event in the set.
func (s *Subscriptions) Commands() []ipc.Command {
	events := s.Events()
	out := make([]ipc.Command, 0, len(events))
	for _, evt := range events {
		out = append(out, ipc.NewSubscribe(evt))
	}

	return out
}
