package app

import (
	"strings"
	"time"

	"github.com/skobkin/presencego/internal/connectors"
)

func ConnectionStatusFor(state connectors.ConnectionState, endpoint string, err error, at time.Time) connectors.ConnectionStatus {
	status := connectors.ConnectionStatus{
		State:     state,
		Endpoint:  strings.TrimSpace(endpoint),
		Timestamp: at,
	}
	if err != nil {
		status.Err = err.Error()
	}

	return status
}

// ConnectionStatusLabel is the short human form used by the tray and notifications.
func ConnectionStatusLabel(status connectors.ConnectionStatus) string {
	switch status.State {
	case connectors.ConnectionStateConnected:
		if status.Endpoint != "" {
			return "Connected (" + status.Endpoint + ")"
		}

		return "Connected"
	case connectors.ConnectionStateConnecting:
		return "Connecting"
	case connectors.ConnectionStateReconnecting:
		if status.Err != "" {
			return "Waiting for Discord: " + status.Err
		}

		return "Waiting for Discord"
	case connectors.ConnectionStateDisconnected:
		return "Disconnected"
	default:
		if value := strings.TrimSpace(string(status.State)); value != "" {
			return value
		}

		return "Unknown"
	}
}
