package connectors

const (
	TopicConnStatus       = "conn.status"
	TopicReady            = "rpc.ready"
	TopicPeerError        = "rpc.error"
	TopicActivityJoin     = "activity.join"
	TopicActivitySpectate = "activity.spectate"
	TopicJoinRequest      = "activity.join_request"
	TopicPresenceSent     = "presence.sent"
	TopicUpdateSnapshot   = "update.snapshot"
)

// AllTopics lists every bus topic.
func AllTopics() []string {
	return []string{
		TopicConnStatus,
		TopicReady,
		TopicPeerError,
		TopicActivityJoin,
		TopicActivitySpectate,
		TopicJoinRequest,
		TopicPresenceSent,
		TopicUpdateSnapshot,
	}
}

// TopicOf returns the topic a bus payload is published on, or "" for unknown payloads.
func TopicOf(msg any) string {
	switch msg.(type) {
	case ConnectionStatus:
		return TopicConnStatus
	case ReadyEvent:
		return TopicReady
	case PeerError:
		return TopicPeerError
	case ActivityJoin:
		return TopicActivityJoin
	case ActivitySpectate:
		return TopicActivitySpectate
	case JoinRequest:
		return TopicJoinRequest
	case PresenceSent:
		return TopicPresenceSent
	case UpdateSnapshot:
		return TopicUpdateSnapshot
	default:
		return ""
	}
}
