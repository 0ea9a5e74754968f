package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/skobkin/presencego/internal/ipc"
	"github.com/skobkin/presencego/internal/transport"
)

const (
	testDir     = "/run/user/1000"
	testTimeout = 2 * time.Second
)

type wireCommand struct {
	Cmd   ipc.CommandName `json:"cmd"`
	Args  map[string]any  `json:"args"`
	Evt   ipc.EventName   `json:"evt"`
	Nonce string          `json:"nonce"`
}

// fakePeer answers the handshake on one endpoint index and records every frame it receives.
type fakePeer struct {
	index int
	// reply is the first frame payload after the handshake; empty means never answer.
	reply string

	mu        sync.Mutex
	conn      net.Conn
	handshake chan ipc.Frame
	frames    chan ipc.Frame
}

func newFakePeer(index int, reply string) *fakePeer {
	return &fakePeer{
		index:     index,
		reply:     reply,
		handshake: make(chan ipc.Frame, 4),
		frames:    make(chan ipc.Frame, 256),
	}
}

func (p *fakePeer) locator() *transport.Locator {
	return transport.NewLocator([]string{testDir}, transport.WithDialFunc(p.dial))
}

func (p *fakePeer) dial(_ context.Context, path string) (net.Conn, error) {
	if path != transport.EndpointPath(testDir, p.index) {
		return nil, errors.New("connection refused")
	}
	client, server := net.Pipe()
	p.mu.Lock()
	p.conn = server
	p.mu.Unlock()
	go p.serve(server)

	return client, nil
}

func (p *fakePeer) serve(conn net.Conn) {
	hs, err := ipc.ReadFrame(conn)
	if err != nil {
		return
	}
	p.handshake <- hs
	if p.reply != "" {
		frame, err := ipc.EncodeRaw(ipc.OpFrame, []byte(p.reply))
		if err != nil {
			return
		}
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}
	for {
		f, err := ipc.ReadFrame(conn)
		if err != nil {
			return
		}
		p.frames <- f
	}
}

func (p *fakePeer) send(t *testing.T, op ipc.Opcode, payload string) {
	t.Helper()
	frame, err := ipc.EncodeRaw(op, []byte(payload))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	p.writeRaw(t, frame)
}

func (p *fakePeer) writeRaw(t *testing.T, b []byte) {
	t.Helper()
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		t.Fatalf("peer not connected")
	}
	if _, err := conn.Write(b); err != nil {
		t.Fatalf("peer write: %v", err)
	}
}

func (p *fakePeer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func (p *fakePeer) nextFrame(t *testing.T) ipc.Frame {
	t.Helper()
	select {
	case f := <-p.frames:
		return f
	case <-time.After(testTimeout):
		t.Fatalf("timed out waiting for frame")
	}

	return ipc.Frame{}
}

func (p *fakePeer) nextCommand(t *testing.T) wireCommand {
	t.Helper()
	f := p.nextFrame(t)
	if f.Opcode != ipc.OpFrame {
		t.Fatalf("expected frame opcode, got %v", f.Opcode)
	}
	var cmd wireCommand
	if err := json.Unmarshal(f.Payload, &cmd); err != nil {
		t.Fatalf("decode command: %v", err)
	}

	return cmd
}

// skipSubscriptions drains the SUBSCRIBE commands sent right after the handshake.
func (p *fakePeer) skipSubscriptions(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if cmd := p.nextCommand(t); cmd.Cmd != ipc.CommandSubscribe {
			t.Fatalf("expected SUBSCRIBE, got %s", cmd.Cmd)
		}
	}
}

func (p *fakePeer) expectNoFrame(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case f := <-p.frames:
		t.Fatalf("unexpected frame %v: %s", f.Opcode, f.Payload)
	case <-time.After(wait):
	}
}

const readyPayload = `{"cmd":"DISPATCH","evt":"READY","data":{"v":1,"config":{"environment":"production"},"user":{"id":"1","username":"tester"}}}`

func testClient(peer *fakePeer, handlers Handlers, opts ...Option) *Client {
	base := []Option{
		WithLocator(peer.locator()),
		WithHandlers(handlers),
		WithHandlerInterval(10 * time.Millisecond),
		WithActivityLimiter(nil),
		WithPID(4242),
	}

	return NewClient(nil, "123", append(base, opts...)...)
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(testTimeout):
		t.Fatalf("timed out")
	}

	var zero T

	return zero
}
