package domain

import "time"

// EventKind classifies a history entry.
type EventKind string

const (
	EventKindConnection  EventKind = "connection"
	EventKindReady       EventKind = "ready"
	EventKindPeerError   EventKind = "peer_error"
	EventKindJoin        EventKind = "join"
	EventKindSpectate    EventKind = "spectate"
	EventKindJoinRequest EventKind = "join_request"
)

// HistoryEvent is one persisted bus event. Payload holds the JSON-encoded bus message.
type HistoryEvent struct {
	ID      string    `json:"id"`
	Kind    EventKind `json:"kind"`
	Summary string    `json:"summary"`
	Payload string    `json:"payload"`
	At      time.Time `json:"at"`
}

// PresenceRecord is one activity that reached the peer. Activity is "null" when cleared.
type PresenceRecord struct {
	ID       string    `json:"id"`
	Activity string    `json:"activity"`
	Cleared  bool      `json:"cleared"`
	At       time.Time `json:"at"`
}

// HistoryQuery filters List calls. Zero values mean no filter; Limit defaults to DefaultHistoryLimit.
type HistoryQuery struct {
	Kind   EventKind
	Before time.Time
	Limit  int
}

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// NormalizedLimit clamps Limit into 1..MaxHistoryLimit.
func (q HistoryQuery) NormalizedLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultHistoryLimit
	case q.Limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return q.Limit
	}
}

// PendingJoinRequest is a join request waiting for a reply.
type PendingJoinRequest struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	GlobalName string    `json:"global_name,omitempty"`
	Avatar     string    `json:"avatar,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// DisplayName prefers the global name over the username.
func (r PendingJoinRequest) DisplayName() string {
	if r.GlobalName != "" {
		return r.GlobalName
	}
	if r.Username != "" {
		return r.Username
	}

	return r.UserID
}
