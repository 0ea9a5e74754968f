package rpc

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/skobkin/presencego/internal/ipc"
)

// Handlers are the application callbacks. Any of them may be nil.
// They run on the session dispatch goroutine and must not block for long.
type Handlers struct {
	Ready       func(ipc.Ready)
	Error       func(code int, message string)
	Join        func(secret string)
	Spectate    func(secret string)
	JoinRequest func(User)
	Disconnect  func(reason error)
	StateChange func(State)
	// PresenceSent receives every activity written to the peer; nil means cleared.
	PresenceSent func(*Activity)
}

type secretPayload struct {
	Secret string `json:"secret"`
}

type joinRequestPayload struct {
	User User `json:"user"`
}

// Router dispatches decoded inbound messages to Handlers.
type Router struct {
	logger   *slog.Logger
	handlers Handlers
}

func NewRouter(logger *slog.Logger, handlers Handlers) *Router {
	if logger == nil {
		logger = slog.Default().With("component", "rpc.router")
	}

	return &Router{logger: logger, handlers: handlers}
}

func (r *Router) Route(msg ipc.Message) {
	switch m := msg.(type) {
	case ipc.Ready:
		if r.handlers.Ready != nil {
			r.handlers.Ready(m)
		}
	case ipc.ErrorEvent:
		r.logger.Warn("peer error", "code", m.Code, "message", m.Message, "nonce", m.Nonce)
		if r.handlers.Error != nil {
			r.handlers.Error(m.Code, m.Message)
		}
	case ipc.DispatchEvent:
		r.routeEvent(m)
	case ipc.CommandResponse:
		r.logger.Debug("command response", "cmd", m.Cmd, "nonce", m.Nonce, "size", len(m.Data))
	default:
		r.logger.Warn("unhandled message", "type", fmt.Sprintf("%T", msg))
	}
}

func (r *Router) routeEvent(ev ipc.DispatchEvent) {
	switch ev.Name {
	case ipc.EventActivityJoin:
		var p secretPayload
		if !r.decode(ev, &p) {
			return
		}
		if r.handlers.Join != nil {
			r.handlers.Join(p.Secret)
		}
	case ipc.EventActivitySpectate:
		var p secretPayload
		if !r.decode(ev, &p) {
			return
		}
		if r.handlers.Spectate != nil {
			r.handlers.Spectate(p.Secret)
		}
	case ipc.EventActivityJoinRequest:
		var p joinRequestPayload
		if !r.decode(ev, &p) {
			return
		}
		if r.handlers.JoinRequest != nil {
			r.handlers.JoinRequest(p.User)
		}
	default:
		r.logger.Debug("ignoring event", "evt", ev.Name)
	}
}

func (r *Router) decode(ev ipc.DispatchEvent, v any) bool {
	if err := json.Unmarshal(ev.Data, v); err != nil {
		r.logger.Warn("invalid event payload", "evt", ev.Name, "error", err, "payload", string(ev.Data))

		return false
	}

	return true
}
