package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skobkin/presencego/internal/bus"
	"github.com/skobkin/presencego/internal/connectors"
	"github.com/skobkin/presencego/internal/rpc"
)

// WriteQueue serializes persistence writes from async bus events.
type WriteQueue interface {
	Enqueue(name string, fn func(context.Context) error)
}

// StartPersistenceProjection records every bus event into the history repositories.
func StartPersistenceProjection(ctx context.Context, b bus.MessageBus, queue WriteQueue, events EventRepository, presence PresenceRepository) {
	topics := connectors.AllTopics()
	sub := b.Subscribe(topics...)

	go func() {
		defer bus.Release(b, sub)
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub:
				if !ok {
					return
				}
				if sent, ok := raw.(connectors.PresenceSent); ok {
					record, err := PresenceRecordFrom(sent)
					if err != nil {
						continue
					}
					queue.Enqueue("insert_presence", func(writeCtx context.Context) error {
						return presence.Insert(writeCtx, record)
					})

					continue
				}
				event, ok := HistoryEventFrom(raw)
				if !ok {
					continue
				}
				queue.Enqueue("insert_event", func(writeCtx context.Context) error {
					return events.Insert(writeCtx, event)
				})
			}
		}
	}()
}

// HistoryEventFrom converts a bus payload to a history entry; unknown payloads report false.
func HistoryEventFrom(msg any) (HistoryEvent, bool) {
	var (
		kind    EventKind
		summary string
		at      time.Time
	)
	switch m := msg.(type) {
	case connectors.ConnectionStatus:
		kind, at = EventKindConnection, m.Timestamp
		summary = string(m.State)
		if m.Err != "" {
			summary += ": " + m.Err
		}
	case connectors.ReadyEvent:
		kind, at = EventKindReady, m.Timestamp
		summary = "ready as " + m.User.Username
	case connectors.PeerError:
		kind, at = EventKindPeerError, m.Timestamp
		summary = fmt.Sprintf("error %d: %s", m.Code, m.Message)
	case connectors.ActivityJoin:
		kind, at = EventKindJoin, m.Timestamp
		summary = "joined via invite"
	case connectors.ActivitySpectate:
		kind, at = EventKindSpectate, m.Timestamp
		summary = "spectating via invite"
	case connectors.JoinRequest:
		kind, at = EventKindJoinRequest, m.Timestamp
		summary = "join request from " + m.User.Username
	default:
		return HistoryEvent{}, false
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return HistoryEvent{}, false
	}
	if at.IsZero() {
		at = time.Now()
	}

	return HistoryEvent{Kind: kind, Summary: summary, Payload: string(payload), At: at}, true
}

func PresenceRecordFrom(sent connectors.PresenceSent) (PresenceRecord, error) {
	raw, err := json.Marshal(sent.Activity)
	if err != nil {
		return PresenceRecord{}, fmt.Errorf("encode activity: %w", err)
	}
	at := sent.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	return PresenceRecord{Activity: string(raw), Cleared: sent.Activity == nil, At: at}, nil
}

// ActivityFromRecord decodes a stored presence; cleared records yield nil.
func ActivityFromRecord(rec PresenceRecord) (*rpc.Activity, error) {
	if rec.Cleared || rec.Activity == "" || rec.Activity == "null" {
		return nil, nil
	}
	var a rpc.Activity
	if err := json.Unmarshal([]byte(rec.Activity), &a); err != nil {
		return nil, fmt.Errorf("decode stored activity %s: %w", rec.ID, err)
	}

	return &a, nil
}
