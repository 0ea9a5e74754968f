package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ProtocolVersion is the RPC version announced in the handshake.
const ProtocolVersion = 1

// ErrHandshakeFailed is returned when the peer rejects or never acknowledges the identity.
var ErrHandshakeFailed = errors.New("handshake failed")

// CloseError is the reason carried by a peer OpClose frame.
type CloseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *CloseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("peer closed connection (code %d)", e.Code)
	}

	return fmt.Sprintf("peer closed connection (code %d): %s", e.Code, e.Message)
}

// ParseClose extracts the close reason from an OpClose frame. Unparseable payloads yield a zero reason.
func ParseClose(f Frame) *CloseError {
	var ce CloseError
	if len(f.Payload) > 0 {
		_ = f.Decode(&ce)
	}

	return &ce
}

type handshakePayload struct {
	Version  int    `json:"v"`
	ClientID string `json:"client_id"`
}

type frameResult struct {
	frame Frame
	err   error
}

// Handshake sends the identity frame and evaluates exactly one reply.
// The wait is bounded by ctx; callers close rw on failure to release the pending read.
func Handshake(ctx context.Context, rw io.ReadWriter, appID string) (Ready, error) {
	frame, err := Encode(OpHandshake, handshakePayload{Version: ProtocolVersion, ClientID: appID})
	if err != nil {
		return Ready{}, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	if _, err := rw.Write(frame); err != nil {
		return Ready{}, fmt.Errorf("%w: write handshake: %w", ErrHandshakeFailed, err)
	}

	resCh := make(chan frameResult, 1)
	go func() {
		f, err := ReadFrame(rw)
		resCh <- frameResult{frame: f, err: err}
	}()

	var res frameResult
	select {
	case <-ctx.Done():
		return Ready{}, fmt.Errorf("%w: waiting for ready: %w", ErrHandshakeFailed, ctx.Err())
	case res = <-resCh:
	}
	if res.err != nil {
		return Ready{}, fmt.Errorf("%w: %w", ErrHandshakeFailed, res.err)
	}

	switch res.frame.Opcode {
	case OpClose:
		return Ready{}, fmt.Errorf("%w: %w", ErrHandshakeFailed, ParseClose(res.frame))
	case OpFrame:
	default:
		return Ready{}, fmt.Errorf("%w: unexpected %s frame", ErrHandshakeFailed, res.frame.Opcode)
	}

	msg, err := DecodeMessage(res.frame.Payload)
	if err != nil {
		return Ready{}, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	switch m := msg.(type) {
	case Ready:
		return m, nil
	case ErrorEvent:
		return Ready{}, fmt.Errorf("%w: %w", ErrHandshakeFailed, m)
	default:
		return Ready{}, fmt.Errorf("%w: unexpected reply %T", ErrHandshakeFailed, msg)
	}
}
