package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/skobkin/presencego/internal/bus"
	"github.com/skobkin/presencego/internal/connectors"
	"github.com/skobkin/presencego/internal/rpc"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}

	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}

	return m.GetGauge().GetValue()
}

func TestCollectorConnectionState(t *testing.T) {
	c := New("")

	c.Observe(connectors.ConnectionStatus{State: connectors.ConnectionStateConnecting})
	c.Observe(connectors.ConnectionStatus{State: connectors.ConnectionStateConnected})

	if got := gaugeValue(t, c.connectionState.WithLabelValues("connected")); got != 1 {
		t.Fatalf("connection_state(connected)=%v, want 1", got)
	}
	if got := gaugeValue(t, c.connectionState.WithLabelValues("connecting")); got != 0 {
		t.Fatalf("connection_state(connecting)=%v, want 0", got)
	}
	if got := counterValue(t, c.connects); got != 1 {
		t.Fatalf("connects_total=%v, want 1", got)
	}

	c.Observe(connectors.ConnectionStatus{State: connectors.ConnectionStateReconnecting})
	c.Observe(connectors.ConnectionStatus{State: connectors.ConnectionStateConnected})

	if got := counterValue(t, c.disconnects); got != 1 {
		t.Fatalf("disconnects_total=%v, want 1", got)
	}
	if got := counterValue(t, c.connects); got != 2 {
		t.Fatalf("connects_total=%v, want 2", got)
	}
	if got := counterValue(t, c.events.WithLabelValues(connectors.TopicConnStatus)); got != 4 {
		t.Fatalf("events_total(conn.status)=%v, want 4", got)
	}
}

func TestCollectorPresenceAndErrors(t *testing.T) {
	c := New("test")

	c.Observe(connectors.PresenceSent{Activity: &rpc.Activity{State: "Playing"}})
	c.Observe(connectors.PresenceSent{})
	c.Observe(connectors.PresenceSent{Activity: &rpc.Activity{State: "Idle"}})
	c.Observe(connectors.PeerError{Code: 4000, Message: "invalid payload"})
	c.Observe("ignored")

	if got := counterValue(t, c.presenceSent.WithLabelValues("set")); got != 2 {
		t.Fatalf("presence_updates_total(set)=%v, want 2", got)
	}
	if got := counterValue(t, c.presenceSent.WithLabelValues("clear")); got != 1 {
		t.Fatalf("presence_updates_total(clear)=%v, want 1", got)
	}
	if got := counterValue(t, c.peerErrors.WithLabelValues("4000")); got != 1 {
		t.Fatalf("peer_errors_total(4000)=%v, want 1", got)
	}
}

func TestCollectorStartConsumesBus(t *testing.T) {
	messageBus := bus.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(messageBus.Close)
	c := New("")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx, messageBus)

	messageBus.Publish(connectors.TopicJoinRequest, connectors.JoinRequest{})

	joinRequests := c.events.WithLabelValues(connectors.TopicJoinRequest)
	deadline := time.Now().Add(2 * time.Second)
	for counterValue(t, joinRequests) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for join request metric")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCollectorHandlerExposesMetrics(t *testing.T) {
	c := New("")
	c.Observe(connectors.ConnectionStatus{State: connectors.ConnectionStateConnected})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `presencego_connection_state{state="connected"} 1`) {
		t.Fatalf("expected connection gauge in output, got:\n%s", body)
	}
	if !strings.Contains(body, "presencego_connects_total 1") {
		t.Fatalf("expected connects counter in output")
	}
}
