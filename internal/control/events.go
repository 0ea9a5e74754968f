package control

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skobkin/presencego/internal/bus"
	"github.com/skobkin/presencego/internal/connectors"
)

const (
	eventWriteTimeout = 5 * time.Second
	eventPongWait     = 60 * time.Second
	eventPingPeriod   = eventPongWait * 9 / 10
)

// Event is one bus message as streamed on /events.
type Event struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// handleEvents streams every bus event as a JSON text message until the client goes away.
// The current connection status is sent first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)

		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)

		return
	}
	defer conn.Close()

	topics := connectors.AllTopics()
	sub := s.bus.Subscribe(topics...)
	defer bus.Release(s.bus, sub)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(eventPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.writeEvent(conn, s.backend.Status().Connection); err != nil {
		return
	}

	ping := time.NewTicker(eventPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg, ok := <-sub:
			if !ok {
				return
			}
			if err := s.writeEvent(conn, msg); err != nil {
				s.logger.Debug("event stream closed", "error", err)

				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, msg any) error {
	ev, ok, err := EncodeEvent(msg)
	if err != nil {
		s.logger.Warn("encode event", "error", err)

		return nil
	}
	if !ok {
		return nil
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))

	return conn.WriteMessage(websocket.TextMessage, raw)
}

// EncodeEvent wraps a bus message with its topic. ok is false for payloads that have no topic.
func EncodeEvent(msg any) (ev Event, ok bool, err error) {
	topic := connectors.TopicOf(msg)
	if topic == "" {
		return Event{}, false, nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return Event{}, false, fmt.Errorf("encode %s event: %w", topic, err)
	}

	return Event{Topic: topic, Data: data}, true, nil
}
