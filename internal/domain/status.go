package domain

import (
	"github.com/skobkin/presencego/internal/connectors"
	"github.com/skobkin/presencego/internal/ipc"
	"github.com/skobkin/presencego/internal/rpc"
)

// Status is the daemon snapshot served to the control API, MCP tools and tray.
type Status struct {
	AppID        string                      `json:"app_id"`
	Version      string                      `json:"version"`
	Connection   connectors.ConnectionStatus `json:"connection"`
	User         *ipc.User                   `json:"user,omitempty"`
	Presence     *rpc.Activity               `json:"presence"`
	JoinRequests []PendingJoinRequest        `json:"join_requests"`
	History      bool                        `json:"history"`
	// Update is the last release check; nil until one succeeded or when checks are off.
	Update       *connectors.UpdateSnapshot  `json:"update,omitempty"`
}
