package app

import (
	"log/slog"
	"time"

	"github.com/skobkin/presencego/internal/bus"
	"github.com/skobkin/presencego/internal/connectors"
	"github.com/skobkin/presencego/internal/ipc"
	"github.com/skobkin/presencego/internal/rpc"
)

// Bridge republishes client callbacks on the message bus.
type Bridge struct {
	bus    bus.MessageBus
	logger *slog.Logger
	now    func() time.Time
}

func NewBridge(messageBus bus.MessageBus, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default().With("component", "app.bridge")
	}

	return &Bridge{bus: messageBus, logger: logger, now: time.Now}
}

// Handlers returns client callbacks that publish to the bus and then call next.
func (b *Bridge) Handlers(next rpc.Handlers) rpc.Handlers {
	return rpc.Handlers{
		Ready: func(r ipc.Ready) {
			b.publish(connectors.TopicReady, connectors.ReadyEvent{
				Version:     r.Version,
				User:        r.User,
				Environment: r.Config.Environment,
				Timestamp:   b.now(),
			})
			if next.Ready != nil {
				next.Ready(r)
			}
		},
		Error: func(code int, message string) {
			b.publish(connectors.TopicPeerError, connectors.PeerError{Code: code, Message: message, Timestamp: b.now()})
			if next.Error != nil {
				next.Error(code, message)
			}
		},
		Join: func(secret string) {
			b.publish(connectors.TopicActivityJoin, connectors.ActivityJoin{Secret: secret, Timestamp: b.now()})
			if next.Join != nil {
				next.Join(secret)
			}
		},
		Spectate: func(secret string) {
			b.publish(connectors.TopicActivitySpectate, connectors.ActivitySpectate{Secret: secret, Timestamp: b.now()})
			if next.Spectate != nil {
				next.Spectate(secret)
			}
		},
		JoinRequest: func(user rpc.User) {
			b.logger.Info("join request", "user_id", user.ID, "username", user.Username)
			b.publish(connectors.TopicJoinRequest, connectors.JoinRequest{User: user, Timestamp: b.now()})
			if next.JoinRequest != nil {
				next.JoinRequest(user)
			}
		},
		PresenceSent: func(a *rpc.Activity) {
			b.publish(connectors.TopicPresenceSent, connectors.PresenceSent{Activity: a, Timestamp: b.now()})
			if next.PresenceSent != nil {
				next.PresenceSent(a)
			}
		},
		// Connection status is owned by the supervisor.
		Disconnect:  next.Disconnect,
		StateChange: next.StateChange,
	}
}

func (b *Bridge) publish(topic string, msg any) {
	if b.bus == nil {
		return
	}
	b.bus.Publish(topic, msg)
}
