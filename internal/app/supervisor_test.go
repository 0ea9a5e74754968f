package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/skobkin/presencego/internal/config"
	"github.com/skobkin/presencego/internal/connectors"
	"github.com/skobkin/presencego/internal/transport"
)

type scriptedConnector struct {
	mu       sync.Mutex
	results  []error
	fallback error
	connects int
	closes   int
	endpoint string
}

func (c *scriptedConnector) Connect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connects++
	if len(c.results) == 0 {
		return c.fallback
	}
	err := c.results[0]
	c.results = c.results[1:]

	return err
}

func (c *scriptedConnector) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()

	return nil
}

func (c *scriptedConnector) Endpoint() string {
	return c.endpoint
}

func (c *scriptedConnector) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connects, c.closes
}

func fastReconnectConfig() config.ReconnectConfig {
	return config.ReconnectConfig{MinBackoffMS: 1, MaxBackoffMS: 4, BreakerThreshold: 100, BreakerCooldownSec: 60}
}

func waitForStatus(t *testing.T, sub <-chan any, want connectors.ConnectionState) connectors.ConnectionStatus {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw := <-sub:
			status, ok := raw.(connectors.ConnectionStatus)
			if ok && status.State == want {
				return status
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s status", want)

			return connectors.ConnectionStatus{}
		}
	}
}

func TestSupervisorRetriesUntilPeerAppears(t *testing.T) {
	messageBus := newTestMessageBus(t)
	sub := messageBus.Subscribe(connectors.TopicConnStatus)
	conn := &scriptedConnector{
		results:  []error{fmt.Errorf("locate peer: %w", transport.ErrPeerNotFound), fmt.Errorf("locate peer: %w", transport.ErrPeerNotFound)},
		endpoint: "/tmp/discord-ipc-0",
	}
	sup := NewSupervisor(messageBus, fastReconnectConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx, conn)

	waitForStatus(t, sub, connectors.ConnectionStateConnecting)
	reconnecting := waitForStatus(t, sub, connectors.ConnectionStateReconnecting)
	if reconnecting.Err == "" {
		t.Fatalf("expected reconnecting status to carry the error")
	}
	connected := waitForStatus(t, sub, connectors.ConnectionStateConnected)
	if connected.Endpoint != "/tmp/discord-ipc-0" {
		t.Fatalf("unexpected endpoint %q", connected.Endpoint)
	}
	if connects, _ := conn.counts(); connects != 3 {
		t.Fatalf("expected 3 connect attempts, got %d", connects)
	}
	if got := sup.Status().State; got != connectors.ConnectionStateConnected {
		t.Fatalf("expected cached connected status, got %s", got)
	}
}

func TestSupervisorReconnectsAfterDisconnect(t *testing.T) {
	messageBus := newTestMessageBus(t)
	sub := messageBus.Subscribe(connectors.TopicConnStatus)
	conn := &scriptedConnector{endpoint: "/tmp/discord-ipc-1"}
	sup := NewSupervisor(messageBus, fastReconnectConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx, conn)

	waitForStatus(t, sub, connectors.ConnectionStateConnected)
	sup.HandleDisconnect(errors.New("transport closed: EOF"))

	lost := waitForStatus(t, sub, connectors.ConnectionStateReconnecting)
	if lost.Err != "transport closed: EOF" {
		t.Fatalf("unexpected disconnect reason %q", lost.Err)
	}
	waitForStatus(t, sub, connectors.ConnectionStateConnected)
	if connects, _ := conn.counts(); connects != 2 {
		t.Fatalf("expected a second connect, got %d", connects)
	}
}

func TestSupervisorManualReconnectClosesSession(t *testing.T) {
	messageBus := newTestMessageBus(t)
	sub := messageBus.Subscribe(connectors.TopicConnStatus)
	conn := &scriptedConnector{}
	sup := NewSupervisor(messageBus, fastReconnectConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx, conn)

	waitForStatus(t, sub, connectors.ConnectionStateConnected)
	sup.Reconnect()
	waitForStatus(t, sub, connectors.ConnectionStateReconnecting)
	waitForStatus(t, sub, connectors.ConnectionStateConnected)

	connects, closes := conn.counts()
	if connects != 2 || closes != 1 {
		t.Fatalf("expected 2 connects and 1 close, got %d and %d", connects, closes)
	}
}

func TestSupervisorStopsOnContextCancel(t *testing.T) {
	messageBus := newTestMessageBus(t)
	sub := messageBus.Subscribe(connectors.TopicConnStatus)
	conn := &scriptedConnector{}
	sup := NewSupervisor(messageBus, fastReconnectConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx, conn)
		close(done)
	}()

	waitForStatus(t, sub, connectors.ConnectionStateConnected)
	cancel()
	waitForStatus(t, sub, connectors.ConnectionStateDisconnected)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("supervisor did not stop")
	}
	if _, closes := conn.counts(); closes != 1 {
		t.Fatalf("expected connector to be closed once, got %d", closes)
	}
}

func TestSupervisorBreakerOpensOnMissingPeer(t *testing.T) {
	cfg := fastReconnectConfig()
	cfg.BreakerThreshold = 2
	conn := &scriptedConnector{fallback: fmt.Errorf("locate peer: %w", transport.ErrPeerNotFound)}
	sup := NewSupervisor(newTestMessageBus(t), cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx, conn)

	deadline := time.Now().Add(2 * time.Second)
	for sup.BreakerState() != gobreaker.StateOpen {
		if time.Now().After(deadline) {
			t.Fatalf("breaker did not open")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	if connects, _ := conn.counts(); connects != 2 {
		t.Fatalf("expected probing to stop at the threshold, got %d attempts", connects)
	}
}

func TestSupervisorHandshakeErrorsDoNotTripBreaker(t *testing.T) {
	cfg := fastReconnectConfig()
	cfg.BreakerThreshold = 2
	conn := &scriptedConnector{fallback: errors.New("handshake failed")}
	sup := NewSupervisor(newTestMessageBus(t), cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx, conn)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if connects, _ := conn.counts(); connects >= 5 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected retries to continue")
		}
		time.Sleep(2 * time.Millisecond)
	}
	if sup.BreakerState() != gobreaker.StateClosed {
		t.Fatalf("expected breaker to stay closed, got %s", sup.BreakerState())
	}
}

func TestNextBackoff(t *testing.T) {
	tests := []struct {
		current time.Duration
		want    time.Duration
	}{
		{current: time.Second, want: 2 * time.Second},
		{current: 8 * time.Second, want: 15 * time.Second},
		{current: 15 * time.Second, want: 15 * time.Second},
		{current: 20 * time.Second, want: 15 * time.Second},
	}

	for _, tc := range tests {
		if got := nextBackoff(tc.current, 15*time.Second); got != tc.want {
			t.Fatalf("nextBackoff(%s) = %s, want %s", tc.current, got, tc.want)
		}
	}
}
