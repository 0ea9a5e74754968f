package notifications

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

type notifyFunc func(title, message, icon string) error

// DesktopSender shows notifications through the OS notification service.
type DesktopSender struct {
	icon   string
	logger *slog.Logger
	notify notifyFunc
}

// NewDesktopSender sends through beeep; icon is an optional image path.
func NewDesktopSender(icon string, logger *slog.Logger) *DesktopSender {
	if logger == nil {
		logger = slog.Default().With("component", "notifications.desktop")
	}

	return &DesktopSender{
		icon:   icon,
		logger: logger,
		notify: func(title, message, icon string) error {
			return beeep.Notify(title, message, icon)
		},
	}
}

// Send never fails the caller; delivery errors are logged.
func (s *DesktopSender) Send(payload Payload) {
	if err := s.notify(payload.Title, payload.Content, s.icon); err != nil {
		s.logger.Warn("desktop notification failed", "title", payload.Title, "error", err)
	}
}
