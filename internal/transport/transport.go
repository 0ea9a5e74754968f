package transport

import (
	"context"
	"io"
)

// Transport is the raw byte stream to the peer.
type Transport interface {
	io.ReadWriteCloser
	Name() string
}

// ContextWriter is implemented by transports whose writes can honor a context deadline.
type ContextWriter interface {
	WriteContext(ctx context.Context, p []byte) (int, error)
}

var (
	_ Transport     = (*Socket)(nil)
	_ ContextWriter = (*Socket)(nil)
)
