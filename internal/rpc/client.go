package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/skobkin/presencego/internal/ipc"
	"github.com/skobkin/presencego/internal/transport"
)

const (
	DefaultHandshakeTimeout = 5 * time.Second
	defaultWriteTimeout     = 5 * time.Second
)

var (
	// ErrNotConnected is returned by sends outside the Ready state.
	ErrNotConnected = errors.New("not connected")
	// ErrTransportClosed wraps every reason a Ready session ended without Close.
	ErrTransportClosed = errors.New("transport closed")
	// ErrAlreadyConnected is returned by Connect unless the client is Disconnected.
	ErrAlreadyConnected = errors.New("already connected")
)

// Locator finds and connects the peer endpoint.
type Locator interface {
	Locate(ctx context.Context) (*transport.Socket, error)
}

type Option func(*Client)

func WithLocator(l Locator) Option {
	return func(c *Client) {
		c.locator = l
	}
}

func WithHandlers(h Handlers) Option {
	return func(c *Client) {
		c.handlers = h
	}
}

func WithHandlerInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.handshakeTimeout = d
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

func WithSubscriptions(s *Subscriptions) Option {
	return func(c *Client) {
		c.subs = s
	}
}

// WithActivityLimiter replaces the SET_ACTIVITY limiter; nil disables it.
func WithActivityLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

func WithPID(pid int) Option {
	return func(c *Client) {
		c.pid = pid
	}
}

type inboundFrame struct {
	frame ipc.Frame
	err   error
}

// session is one handshaken connection. Its dispatch goroutine owns routing and presence ticks.
type session struct {
	tr        *transport.Socket
	ready     ipc.Ready
	inbound   chan inboundFrame
	closing   chan struct{}
	closeOnce sync.Once
}

func newSession(tr *transport.Socket, ready ipc.Ready) *session {
	return &session{
		tr:      tr,
		ready:   ready,
		inbound: make(chan inboundFrame),
		closing: make(chan struct{}),
	}
}

func (s *session) stop() {
	s.closeOnce.Do(func() { close(s.closing) })
	_ = s.tr.Close()
}

// Client owns one peer connection at a time for a single application identity.
type Client struct {
	logger           *slog.Logger
	appID            string
	pid              int
	locator          Locator
	handlers         Handlers
	router           *Router
	subs             *Subscriptions
	publisher        *Publisher
	limiter          *rate.Limiter
	interval         time.Duration
	handshakeTimeout time.Duration
	writeTimeout     time.Duration

	mu    sync.Mutex
	state State
	sess  *session
}

func NewClient(logger *slog.Logger, appID string, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default().With("component", "rpc")
	}
	c := &Client{
		logger:           logger,
		appID:            appID,
		pid:              os.Getpid(),
		limiter:          DefaultActivityLimiter(),
		interval:         DefaultHandlerInterval,
		handshakeTimeout: DefaultHandshakeTimeout,
		writeTimeout:     defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.locator == nil {
		c.locator = transport.NewLocator(nil)
	}
	if c.subs == nil {
		c.subs = NewSubscriptions(nil)
	}
	c.router = NewRouter(logger, c.handlers)
	c.publisher = NewPublisher(c.pid, c.limiter)

	return c
}

func (c *Client) AppID() string {
	return c.appID
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// ReadyInfo returns the READY payload of the current session.
func (c *Client) ReadyInfo() (ipc.Ready, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady || c.sess == nil {
		return ipc.Ready{}, false
	}

	return c.sess.ready, true
}

// Endpoint returns the connected endpoint path, empty when not Ready.
func (c *Client) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady || c.sess == nil {
		return ""
	}

	return c.sess.tr.Path()
}

// Connect locates the peer, performs the handshake and subscribes to the configured events.
// It blocks until the client is Ready or the attempt failed; failures leave it Disconnected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		st := c.state
		c.mu.Unlock()

		return fmt.Errorf("%w: state %s", ErrAlreadyConnected, st)
	}
	c.state = StateConnecting
	c.mu.Unlock()
	c.notifyState(StateConnecting)

	sock, err := c.locator.Locate(ctx)
	if err != nil {
		c.setState(StateDisconnected)

		return fmt.Errorf("locate peer: %w", err)
	}

	c.setState(StateAwaitingHandshakeAck)
	hsCtx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
	ready, err := ipc.Handshake(hsCtx, sock, c.appID)
	cancel()
	if err != nil {
		_ = sock.Close()
		c.setState(StateDisconnected)
		c.logger.Warn("handshake failed", "endpoint", sock.Path(), "error", err)

		return err
	}

	s := newSession(sock, ready)
	c.mu.Lock()
	c.sess = s
	c.state = StateReady
	c.mu.Unlock()
	c.notifyState(StateReady)
	c.logger.Info("connected", "endpoint", sock.Path(), "user", ready.User.Username, "environment", ready.Config.Environment)

	for _, cmd := range c.subs.Commands() {
		if err := c.write(ctx, s, cmd); err != nil {
			c.abort(s)

			return fmt.Errorf("subscribe %s: %w", cmd.Evt, err)
		}
	}

	go c.readLoop(s)
	go c.dispatch(s)

	return nil
}

// Close ends a Ready session. The disconnect handler is not invoked.
func (c *Client) Close() error {
	c.mu.Lock()
	s := c.sess
	if c.state != StateReady || s == nil {
		c.mu.Unlock()

		return nil
	}
	c.state = StateClosing
	c.mu.Unlock()
	c.notifyState(StateClosing)

	s.stop()

	c.mu.Lock()
	if c.sess == s {
		c.sess = nil
	}
	c.state = StateDisconnected
	c.mu.Unlock()
	c.notifyState(StateDisconnected)
	c.logger.Info("closed")

	return nil
}

// Send writes cmd without waiting for a response.
func (c *Client) Send(ctx context.Context, cmd ipc.Command) error {
	c.mu.Lock()
	s := c.sess
	ready := c.state == StateReady && s != nil
	c.mu.Unlock()
	if !ready {
		return ErrNotConnected
	}

	return c.write(ctx, s, cmd)
}

// Reply answers a join request from user.
func (c *Client) Reply(ctx context.Context, user User, reply JoinReply) error {
	return c.Send(ctx, ReplyCommand(user, reply))
}

// UpdatePresence buffers a; it is sent on the next tick while Ready.
func (c *Client) UpdatePresence(a *Activity) error {
	return c.publisher.Update(a)
}

func (c *Client) ClearPresence() error {
	return c.publisher.Update(nil)
}

// Presence returns the latest presence passed to UpdatePresence.
func (c *Client) Presence() (*Activity, bool) {
	return c.publisher.Pending()
}

// Subscribe adds evt to the subscription set and sends it right away when Ready.
func (c *Client) Subscribe(ctx context.Context, evt ipc.EventName) error {
	c.subs.Add(evt)
	if c.State() != StateReady {
		return nil
	}

	return c.Send(ctx, ipc.NewSubscribe(evt))
}

func (c *Client) Unsubscribe(ctx context.Context, evt ipc.EventName) error {
	if !c.subs.Remove(evt) || c.State() != StateReady {
		return nil
	}

	return c.Send(ctx, ipc.NewUnsubscribe(evt))
}

func (c *Client) write(ctx context.Context, s *session, cmd ipc.Command) error {
	frame, err := ipc.Encode(ipc.OpFrame, cmd)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	if _, err := s.tr.WriteContext(writeCtx, frame); err != nil {
		// The reader observes the closed socket and tears the session down.
		_ = s.tr.Close()

		return fmt.Errorf("%w: %w", ErrTransportClosed, err)
	}
	c.logger.Debug("sent command", "cmd", cmd.Cmd, "evt", cmd.Evt, "nonce", cmd.Nonce, "size", len(frame))

	return nil
}

func (c *Client) readLoop(s *session) {
	for {
		f, err := ipc.ReadFrame(s.tr)
		select {
		case s.inbound <- inboundFrame{frame: f, err: err}:
		case <-s.closing:
			return
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) dispatch(s *session) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.router.Route(s.ready)
	c.publisher.Reset()
	c.flushPresence(s)

	for {
		select {
		case <-s.closing:
			return
		case in := <-s.inbound:
			if in.err != nil {
				c.teardown(s, fmt.Errorf("%w: %w", ErrTransportClosed, in.err))

				return
			}
			if stop := c.handleFrame(s, in.frame); stop {
				return
			}
		case <-ticker.C:
			c.flushPresence(s)
		}
	}
}

func (c *Client) handleFrame(s *session, f ipc.Frame) bool {
	switch f.Opcode {
	case ipc.OpFrame:
		msg, err := ipc.DecodeMessage(f.Payload)
		if err != nil {
			c.logger.Warn("dropping undecodable message", "error", err, "size", len(f.Payload))

			return false
		}
		c.router.Route(msg)
	case ipc.OpPing:
		pong, err := ipc.EncodeRaw(ipc.OpPong, f.Payload)
		if err != nil {
			c.logger.Warn("encode pong failed", "error", err)

			return false
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
		_, err = s.tr.WriteContext(ctx, pong)
		cancel()
		if err != nil {
			c.logger.Debug("pong write failed", "error", err)
		}
	case ipc.OpClose:
		c.teardown(s, fmt.Errorf("%w: %w", ErrTransportClosed, ipc.ParseClose(f)))

		return true
	default:
		c.logger.Debug("ignoring frame", "opcode", f.Opcode, "size", len(f.Payload))
	}

	return false
}

func (c *Client) flushPresence(s *session) {
	if c.State() != StateReady {
		return
	}
	send := func(ctx context.Context, cmd ipc.Command) error {
		return c.write(ctx, s, cmd)
	}
	activity, sent, err := c.publisher.Flush(context.Background(), send)
	if err != nil {
		c.logger.Warn("presence flush failed", "error", err)

		return
	}
	if sent {
		c.logger.Debug("presence sent", "cleared", activity == nil)
		if c.handlers.PresenceSent != nil {
			c.handlers.PresenceSent(activity)
		}
	}
}

// teardown moves a Ready session to Disconnected and reports reason once.
func (c *Client) teardown(s *session, reason error) {
	c.mu.Lock()
	if c.sess != s || c.state != StateReady {
		c.mu.Unlock()
		s.stop()

		return
	}
	c.sess = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	s.stop()
	c.notifyState(StateDisconnected)
	c.logger.Warn("disconnected", "reason", reason)
	if c.handlers.Disconnect != nil {
		c.handlers.Disconnect(reason)
	}
}

// abort drops a session that never became operational.
func (c *Client) abort(s *session) {
	c.mu.Lock()
	if c.sess == s {
		c.sess = nil
		c.state = StateDisconnected
	}
	c.mu.Unlock()
	s.stop()
	c.notifyState(StateDisconnected)
}

func (c *Client) setState(st State) {
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
	c.notifyState(st)
}

func (c *Client) notifyState(st State) {
	if c.handlers.StateChange != nil {
		c.handlers.StateChange(st)
	}
}
