package rpc

import (
	"time"

	"github.com/skobkin/presencego/internal/ipc"
)

// User is the peer-side user attached to READY and join requests.
type User = ipc.User

// Activity is the rich presence payload shown to the peer's users.
type Activity struct {
	State      string      `json:"state,omitempty"`
	Details    string      `json:"details,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
	Party      *Party      `json:"party,omitempty"`
	Secrets    *Secrets    `json:"secrets,omitempty"`
	Instance   bool        `json:"instance,omitempty"`
	Buttons    []Button    `json:"buttons,omitempty"`
}

// Timestamps are unix seconds.
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

func NewTimestamps(start, end time.Time) *Timestamps {
	ts := &Timestamps{}
	if !start.IsZero() {
		ts.Start = start.Unix()
	}
	if !end.IsZero() {
		ts.End = end.Unix()
	}

	return ts
}

type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Party size is [current, max].
type Party struct {
	ID   string `json:"id,omitempty"`
	Size []int  `json:"size,omitempty"`
}

type Secrets struct {
	Join     string `json:"join,omitempty"`
	Spectate string `json:"spectate,omitempty"`
	Match    string `json:"match,omitempty"`
}

type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// JoinReply answers an incoming join request.
type JoinReply int

const (
	JoinReplyNo JoinReply = iota
	JoinReplyYes
	JoinReplyIgnore
)

func (r JoinReply) String() string {
	switch r {
	case JoinReplyYes:
		return "yes"
	case JoinReplyIgnore:
		return "ignore"
	default:
		return "no"
	}
}

// ParseJoinReply accepts yes/no/ignore.
func ParseJoinReply(raw string) (JoinReply, bool) {
	switch raw {
	case "yes", "accept":
		return JoinReplyYes, true
	case "no", "deny":
		return JoinReplyNo, true
	case "ignore":
		return JoinReplyIgnore, true
	default:
		return JoinReplyNo, false
	}
}

// ReplyCommand maps a join reply to the command the peer expects.
func ReplyCommand(user User, reply JoinReply) ipc.Command {
	name := ipc.CommandCloseActivityJoinRequest
	if reply == JoinReplyYes {
		name = ipc.CommandSendActivityJoinInvite
	}

	return ipc.NewCommand(name, map[string]any{"user_id": user.ID})
}
