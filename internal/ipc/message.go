package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CommandName is an RPC verb understood by the peer.
type CommandName string

const (
	CommandDispatch                 CommandName = "DISPATCH"
	CommandSetActivity              CommandName = "SET_ACTIVITY"
	CommandSubscribe                CommandName = "SUBSCRIBE"
	CommandUnsubscribe              CommandName = "UNSUBSCRIBE"
	CommandSendActivityJoinInvite   CommandName = "SEND_ACTIVITY_JOIN_INVITE"
	CommandCloseActivityJoinRequest CommandName = "CLOSE_ACTIVITY_JOIN_REQUEST"
)

// EventName identifies a dispatched event.
type EventName string

const (
	EventReady               EventName = "READY"
	EventError               EventName = "ERROR"
	EventActivityJoin        EventName = "ACTIVITY_JOIN"
	EventActivitySpectate    EventName = "ACTIVITY_SPECTATE"
	EventActivityJoinRequest EventName = "ACTIVITY_JOIN_REQUEST"
)

// Command is one outbound request. Nonces are never matched against replies.
type Command struct {
	Cmd   CommandName    `json:"cmd"`
	Args  map[string]any `json:"args,omitempty"`
	Evt   EventName      `json:"evt,omitempty"`
	Nonce string         `json:"nonce"`
}

func NewCommand(cmd CommandName, args map[string]any) Command {
	return Command{Cmd: cmd, Args: args, Nonce: uuid.NewString()}
}

func NewSubscribe(evt EventName) Command {
	return Command{Cmd: CommandSubscribe, Evt: evt, Nonce: uuid.NewString()}
}

func NewUnsubscribe(evt EventName) Command {
	return Command{Cmd: CommandUnsubscribe, Evt: evt, Nonce: uuid.NewString()}
}

// User is the partial user object the peer sends in READY and join requests.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator,omitempty"`
	GlobalName    string `json:"global_name,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
}

// Message is a decoded inbound payload: Ready, ErrorEvent, DispatchEvent or CommandResponse.
type Message interface {
	isMessage()
}

// ReadyConfig describes the peer environment reported on READY.
type ReadyConfig struct {
	CDNHost     string `json:"cdn_host"`
	APIEndpoint string `json:"api_endpoint"`
	Environment string `json:"environment"`
}

type Ready struct {
	Version int         `json:"v"`
	Config  ReadyConfig `json:"config"`
	User    User        `json:"user"`
}

type ErrorEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Nonce   string `json:"-"`
}

func (e ErrorEvent) Error() string {
	return fmt.Sprintf("peer error %d: %s", e.Code, e.Message)
}

type DispatchEvent struct {
	Name EventName
	Data json.RawMessage
}

type CommandResponse struct {
	Cmd   CommandName
	Nonce string
	Data  json.RawMessage
}

func (Ready) isMessage()           {}
func (ErrorEvent) isMessage()      {}
func (DispatchEvent) isMessage()   {}
func (CommandResponse) isMessage() {}

type envelope struct {
	Cmd   CommandName     `json:"cmd"`
	Evt   EventName       `json:"evt"`
	Nonce string          `json:"nonce"`
	Data  json.RawMessage `json:"data"`
}

// DecodeMessage classifies a frame payload. JSON failures wrap ErrPayloadDecode.
func DecodeMessage(payload []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayloadDecode, err)
	}

	switch {
	case env.Evt == EventError:
		e := ErrorEvent{Nonce: env.Nonce}
		if err := decodeData(env.Data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case env.Evt == EventReady:
		var r Ready
		if err := decodeData(env.Data, &r); err != nil {
			return nil, err
		}
		return r, nil
	case env.Cmd == CommandDispatch:
		return DispatchEvent{Name: env.Evt, Data: env.Data}, nil
	default:
		return CommandResponse{Cmd: env.Cmd, Nonce: env.Nonce, Data: env.Data}, nil
	}
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: data: %w", ErrPayloadDecode, err)
	}

	return nil
}
