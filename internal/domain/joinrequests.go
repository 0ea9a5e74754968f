package domain

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/skobkin/presencego/internal/bus"
	"github.com/skobkin/presencego/internal/connectors"
)

// JoinRequestStore keeps join requests that have not been answered yet.
// Requests are scoped to one session and dropped when the connection goes away.
type JoinRequestStore struct {
	mu       sync.RWMutex
	requests map[string]PendingJoinRequest
	changes  chan struct{}
}

func NewJoinRequestStore() *JoinRequestStore {
	return &JoinRequestStore{
		requests: make(map[string]PendingJoinRequest),
		changes:  make(chan struct{}, 1),
	}
}

func (s *JoinRequestStore) Start(ctx context.Context, b bus.MessageBus) {
	topics := []string{connectors.TopicJoinRequest, connectors.TopicConnStatus}
	sub := b.Subscribe(topics...)
	go func() {
		defer bus.Release(b, sub)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub:
				if !ok {
					return
				}
				switch m := msg.(type) {
				case connectors.JoinRequest:
					s.Upsert(PendingJoinRequest{
						UserID:     m.User.ID,
						Username:   m.User.Username,
						GlobalName: m.User.GlobalName,
						Avatar:     m.User.Avatar,
						ReceivedAt: m.Timestamp,
					})
				case connectors.ConnectionStatus:
					if m.State != connectors.ConnectionStateConnected {
						s.Reset()
					}
				}
			}
		}
	}()
}

// Upsert records req; a repeated request from the same user refreshes it.
func (s *JoinRequestStore) Upsert(req PendingJoinRequest) {
	if req.UserID == "" {
		return
	}
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.UserID] = req
	s.notify()
}

// Take removes and returns the request from userID.
func (s *JoinRequestStore) Take(userID string) (PendingJoinRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[userID]
	if ok {
		delete(s.requests, userID)
		s.notify()
	}

	return req, ok
}

func (s *JoinRequestStore) Get(userID string) (PendingJoinRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[userID]

	return req, ok
}

// SnapshotSorted returns pending requests, oldest first.
func (s *JoinRequestStore) SnapshotSorted() []PendingJoinRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PendingJoinRequest, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].UserID < out[j].UserID
		}

		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})

	return out
}

func (s *JoinRequestStore) Changes() <-chan struct{} {
	return s.changes
}

func (s *JoinRequestStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return
	}
	s.requests = make(map[string]PendingJoinRequest)
	s.notify()
}

func (s *JoinRequestStore) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
