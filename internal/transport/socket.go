package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// Socket wraps a connected local endpoint (unix socket or named pipe).
// Writes are serialized so concurrent senders never interleave partial frames.
type Socket struct {
	path  string
	index int
	conn  net.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewSocket(conn net.Conn, path string, index int) *Socket {
	return &Socket{conn: conn, path: path, index: index}
}

func (s *Socket) Name() string {
	return "ipc"
}

// Path is the endpoint the socket is connected to.
func (s *Socket) Path() string {
	return s.path
}

// Index is the endpoint number N in discord-ipc-N.
func (s *Socket) Index() int {
	return s.index
}

func (s *Socket) Read(p []byte) (int, error) {
	return s.conn.Read(p)
}

func (s *Socket) Write(p []byte) (int, error) {
	return s.WriteContext(context.Background(), p)
}

// WriteContext writes p in one call under the write lock, honoring the ctx deadline.
func (s *Socket) WriteContext(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
	} else {
		_ = s.conn.SetWriteDeadline(time.Time{})
	}

	n, err := s.conn.Write(p)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", s.path, err)
	}

	return n, nil
}

// Close is idempotent and unblocks pending reads.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		err := s.conn.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			s.closeErr = err
			endpointLogger(s.path).Warn("close failed", "error", err)

			return
		}
		endpointLogger(s.path).Debug("closed")
	})

	return s.closeErr
}
