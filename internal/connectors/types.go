package connectors

import (
	"time"

	"github.com/skobkin/presencego/internal/ipc"
	"github.com/skobkin/presencego/internal/rpc"
)

// ConnectionState describes the supervisor-level connection state.
type ConnectionState string

const (
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateConnecting   ConnectionState = "connecting"
	ConnectionStateConnected    ConnectionState = "connected"
	ConnectionStateReconnecting ConnectionState = "reconnecting"
)

// ConnectionStatus is a bus event snapshot of the current connection.
type ConnectionStatus struct {
	State     ConnectionState `json:"state"`
	Err       string          `json:"error,omitempty"`
	Endpoint  string          `json:"endpoint,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ConnectionStateFromRPC maps the client lifecycle onto the coarser bus states.
func ConnectionStateFromRPC(s rpc.State) ConnectionState {
	switch s {
	case rpc.StateConnecting, rpc.StateAwaitingHandshakeAck:
		return ConnectionStateConnecting
	case rpc.StateReady:
		return ConnectionStateConnected
	default:
		return ConnectionStateDisconnected
	}
}

type ReadyEvent struct {
	Version     int       `json:"version"`
	User        ipc.User  `json:"user"`
	Environment string    `json:"environment,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type PeerError struct {
	Code      int       `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ActivityJoin carries the join secret of an accepted invite.
type ActivityJoin struct {
	Secret    string    `json:"secret"`
	Timestamp time.Time `json:"timestamp"`
}

type ActivitySpectate struct {
	Secret    string    `json:"secret"`
	Timestamp time.Time `json:"timestamp"`
}

type JoinRequest struct {
	User      ipc.User  `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// PresenceSent reports the activity written to the peer; a nil Activity means cleared.
type PresenceSent struct {
	Activity  *rpc.Activity `json:"activity"`
	Timestamp time.Time     `json:"timestamp"`
}

// ReleaseInfo is one published release of presencego.
type ReleaseInfo struct {
	Version     string    `json:"version"`
	Body        string    `json:"body,omitempty"`
	HTMLURL     string    `json:"html_url"`
	PublishedAt time.Time `json:"published_at"`
}

// UpdateSnapshot stores a single successful update check result.
type UpdateSnapshot struct {
	CurrentVersion  string        `json:"current_version"`
	Latest          ReleaseInfo   `json:"latest"`
	Releases        []ReleaseInfo `json:"releases,omitempty"`
	UpdateAvailable bool          `json:"update_available"`
	CheckedAt       time.Time     `json:"checked_at"`
}
