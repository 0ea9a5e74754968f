package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

const (
	endpointPrefix = "discord-ipc-"
	// DefaultMaxIndex is the highest endpoint number the peer binds.
	DefaultMaxIndex = 9
)

// ErrPeerNotFound is returned when no candidate endpoint accepted a connection.
var ErrPeerNotFound = errors.New("peer not found")

// DialFunc opens a raw connection to one endpoint path.
type DialFunc func(ctx context.Context, path string) (net.Conn, error)

type LocatorOption func(*Locator)

func WithDialFunc(dial DialFunc) LocatorOption {
	return func(l *Locator) {
		l.dial = dial
	}
}

func WithMaxIndex(maxIndex int) LocatorOption {
	return func(l *Locator) {
		l.maxIndex = maxIndex
	}
}

// Locator finds the peer's listening endpoint among discord-ipc-0..N.
type Locator struct {
	dirs     []string
	maxIndex int
	dial     DialFunc
}

// NewLocator builds a locator over dirs; an empty list uses DefaultDirs("").
func NewLocator(dirs []string, opts ...LocatorOption) *Locator {
	if len(dirs) == 0 {
		dirs = DefaultDirs("")
	}
	l := &Locator{
		dirs:     dirs,
		maxIndex: DefaultMaxIndex,
		dial:     dialEndpoint,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Locate tries every index in ascending order and returns the first endpoint that connects.
// Per-endpoint failures are expected while the peer is absent and are not reported.
func (l *Locator) Locate(ctx context.Context) (*Socket, error) {
	var lastErr error
	for index := 0; index <= l.maxIndex; index++ {
		for _, dir := range l.dirs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			path := EndpointPath(dir, index)
			conn, err := l.dial(ctx, path)
			if err != nil {
				lastErr = err
				continue
			}
			endpointLogger(path, "index", index).Info("connected")

			return NewSocket(conn, path, index), nil
		}
	}

	if lastErr == nil {
		return nil, fmt.Errorf("%w: no endpoints to try", ErrPeerNotFound)
	}

	return nil, fmt.Errorf("%w: no endpoint in 0..%d accepted a connection: %w", ErrPeerNotFound, l.maxIndex, lastErr)
}
