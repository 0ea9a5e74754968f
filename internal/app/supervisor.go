package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/skobkin/presencego/internal/bus"
	"github.com/skobkin/presencego/internal/config"
	"github.com/skobkin/presencego/internal/connectors"
	"github.com/skobkin/presencego/internal/transport"
)

// Connector is the part of rpc.Client the supervisor drives.
type Connector interface {
	Connect(ctx context.Context) error
	Close() error
	Endpoint() string
}

// Supervisor keeps a Connector connected and publishes connection status on the bus.
// Consecutive "peer not found" results trip a circuit breaker so an absent peer is polled
// once per cooldown instead of on every backoff step.
type Supervisor struct {
	bus        bus.MessageBus
	logger     *slog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
	breaker    *gobreaker.CircuitBreaker[struct{}]
	now        func() time.Time

	disconnects chan error
	reconnect   chan struct{}

	mu     sync.RWMutex
	status connectors.ConnectionStatus
}

func NewSupervisor(messageBus bus.MessageBus, cfg config.ReconnectConfig, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default().With("component", "app.supervisor")
	}
	cfg = cfg.WithDefaults()

	s := &Supervisor{
		bus:         messageBus,
		logger:      logger,
		minBackoff:  cfg.MinBackoff(),
		maxBackoff:  cfg.MaxBackoff(),
		now:         time.Now,
		disconnects: make(chan error, 1),
		reconnect:   make(chan struct{}, 1),
		status:      connectors.ConnectionStatus{State: connectors.ConnectionStateDisconnected},
	}
	threshold := uint32(cfg.BreakerThreshold)
	s.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "discord-ipc",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("peer probe breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
		// Only a missing peer counts against the breaker; handshake errors retry on the normal backoff.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, transport.ErrPeerNotFound)
		},
	})

	return s
}

// HandleDisconnect is wired as the client's Disconnect handler.
func (s *Supervisor) HandleDisconnect(reason error) {
	select {
	case s.disconnects <- reason:
	default:
	}
}

// Reconnect drops the current session, if any, and starts a fresh attempt.
func (s *Supervisor) Reconnect() {
	select {
	case s.reconnect <- struct{}{}:
	default:
	}
}

// Status returns the last published connection status.
func (s *Supervisor) Status() connectors.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status
}

func (s *Supervisor) BreakerState() gobreaker.State {
	return s.breaker.State()
}

// Run blocks until ctx is done. The connector is closed on return.
func (s *Supervisor) Run(ctx context.Context, c Connector) {
	backoff := s.minBackoff
	for {
		if ctx.Err() != nil {
			s.stop(c)

			return
		}
		s.drain()

		if s.Status().State != connectors.ConnectionStateReconnecting {
			s.publish(connectors.ConnectionStateConnecting, "", nil)
		}
		_, err := s.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, c.Connect(ctx)
		})
		if err != nil {
			if ctx.Err() != nil {
				s.stop(c)

				return
			}
			s.logAttemptFailure(err, backoff)
			if !isBreakerRejection(err) {
				s.publish(connectors.ConnectionStateReconnecting, "", err)
			}
			if !sleepWithContext(ctx, backoff) {
				s.stop(c)

				return
			}
			backoff = nextBackoff(backoff, s.maxBackoff)

			continue
		}

		backoff = s.minBackoff
		s.publish(connectors.ConnectionStateConnected, c.Endpoint(), nil)

		select {
		case <-ctx.Done():
			s.stop(c)

			return
		case reason := <-s.disconnects:
			s.logger.Warn("connection lost", "error", reason)
			s.publish(connectors.ConnectionStateReconnecting, "", reason)
		case <-s.reconnect:
			s.logger.Info("reconnect requested")
			_ = c.Close()
			s.publish(connectors.ConnectionStateReconnecting, "", nil)
		}

		if !sleepWithContext(ctx, backoff) {
			s.stop(c)

			return
		}
	}
}

func (s *Supervisor) logAttemptFailure(err error, backoff time.Duration) {
	switch {
	case isBreakerRejection(err):
		s.logger.Debug("peer probe suppressed", "retry_in", backoff)
	case errors.Is(err, transport.ErrPeerNotFound):
		s.logger.Debug("discord is not running", "retry_in", backoff)
	default:
		s.logger.Warn("connect failed", "error", err, "retry_in", backoff)
	}
}

// drain drops signals left over from a previous session.
func (s *Supervisor) drain() {
	for {
		select {
		case <-s.disconnects:
		case <-s.reconnect:
		default:
			return
		}
	}
}

func (s *Supervisor) stop(c Connector) {
	_ = c.Close()
	s.publish(connectors.ConnectionStateDisconnected, "", nil)
}

// publish skips statuses identical to the current one so an absent peer does not flood the bus.
func (s *Supervisor) publish(state connectors.ConnectionState, endpoint string, err error) {
	status := ConnectionStatusFor(state, endpoint, err, s.now())

	s.mu.Lock()
	if s.status.State == status.State && s.status.Endpoint == status.Endpoint && s.status.Err == status.Err {
		s.mu.Unlock()

		return
	}
	s.status = status
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(connectors.TopicConnStatus, status)
	}
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func nextBackoff(current, limit time.Duration) time.Duration {
	if current >= limit {
		return limit
	}
	next := current * 2
	if next > limit {
		return limit
	}

	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
