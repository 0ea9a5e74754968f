package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/skobkin/presencego/internal/bus"
	"github.com/skobkin/presencego/internal/config"
	"github.com/skobkin/presencego/internal/connectors"
	"github.com/skobkin/presencego/internal/notifications"
)

const (
	notificationTitleJoinRequest = "Join request"
	notificationTitleConnected   = "Discord connected"
	notificationTitleLost        = "Discord connection lost"
)

// NotificationService listens to bus events and emits user-facing notifications.
type NotificationService struct {
	bus           bus.MessageBus
	currentConfig func() config.AppConfig
	sender        notifications.Sender
	logger        *slog.Logger

	connStatusMu  sync.Mutex
	lastConnState connectors.ConnectionState
	wasConnected  bool
}

func NewNotificationService(
	messageBus bus.MessageBus,
	currentConfig func() config.AppConfig,
	sender notifications.Sender,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = slog.Default().With("component", "app.notifications")
	}

	return &NotificationService{
		bus:           messageBus,
		currentConfig: currentConfig,
		sender:        sender,
		logger:        logger,
	}
}

func (s *NotificationService) Start(ctx context.Context) {
	if s == nil || s.bus == nil || s.sender == nil {
		return
	}

	joinSub := s.bus.Subscribe(connectors.TopicJoinRequest)
	connSub := s.bus.Subscribe(connectors.TopicConnStatus)

	go func() {
		defer bus.Release(s.bus, joinSub)
		defer bus.Release(s.bus, connSub)

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-joinSub:
				if !ok {
					return
				}
				req, ok := raw.(connectors.JoinRequest)
				if !ok {
					continue
				}
				s.handleJoinRequest(req)
			case raw, ok := <-connSub:
				if !ok {
					return
				}
				status, ok := raw.(connectors.ConnectionStatus)
				if !ok {
					continue
				}
				s.handleConnectionStatus(status)
			}
		}
	}()
}

func (s *NotificationService) handleJoinRequest(req connectors.JoinRequest) {
	prefs := s.notificationPrefs()
	if !prefs.Enabled || !prefs.Events.JoinRequest {
		return
	}

	name := strings.TrimSpace(req.User.GlobalName)
	if name == "" {
		name = strings.TrimSpace(req.User.Username)
	}
	if name == "" {
		name = "Someone"
	}

	s.send(notifications.Payload{
		Title:   notificationTitleJoinRequest,
		Content: fmt.Sprintf("%s wants to join your game", name),
	})
}

// handleConnectionStatus notifies once per lost session and once when it comes back.
// The first successful connection after start is silent.
func (s *NotificationService) handleConnectionStatus(status connectors.ConnectionStatus) {
	if status.State == "" {
		return
	}

	s.connStatusMu.Lock()
	if s.lastConnState == status.State {
		s.connStatusMu.Unlock()

		return
	}
	previous := s.lastConnState
	s.lastConnState = status.State
	wasConnected := s.wasConnected
	if status.State == connectors.ConnectionStateConnected {
		s.wasConnected = true
	}
	s.connStatusMu.Unlock()

	prefs := s.notificationPrefs()
	if !prefs.Enabled || !prefs.Events.ConnectionStatus {
		return
	}

	switch {
	case status.State == connectors.ConnectionStateConnected && wasConnected:
		s.send(notifications.Payload{Title: notificationTitleConnected, Content: ConnectionStatusLabel(status)})
	case previous == connectors.ConnectionStateConnected && status.State == connectors.ConnectionStateReconnecting:
		details := strings.TrimSpace(status.Err)
		if details == "" {
			details = "Reconnecting"
		}
		s.send(notifications.Payload{Title: notificationTitleLost, Content: details})
	}
}

func (s *NotificationService) notificationPrefs() config.NotificationConfig {
	cfg := config.Default()
	if s.currentConfig != nil {
		cfg = s.currentConfig()
	}

	return cfg.Daemon.Notifications
}

func (s *NotificationService) send(notification notifications.Payload) {
	title := strings.TrimSpace(notification.Title)
	content := strings.TrimSpace(notification.Content)
	if title == "" && content == "" {
		return
	}
	s.logger.Debug("sending notification", "title", title)
	s.sender.Send(notifications.Payload{
		Title:   title,
		Content: content,
	})
}
