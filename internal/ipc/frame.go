package ipc

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Opcode tags every frame on the wire.
type Opcode uint32

const (
	OpHandshake Opcode = iota
	OpFrame
	OpClose
	OpPing
	OpPong
)

const (
	// HeaderSize is the fixed opcode + length prefix.
	HeaderSize = 8
	// MaxPayloadSize bounds a single frame so a corrupt peer cannot force huge allocations.
	MaxPayloadSize = 64 * 1024
)

var (
	// ErrMalformedFrame is returned when a header carries an unknown opcode or an oversized length.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrPayloadDecode is returned when a frame payload is not the expected JSON.
	ErrPayloadDecode = errors.New("payload decode error")
)

func (o Opcode) Valid() bool {
	return o <= OpPong
}

func (o Opcode) String() string {
	switch o {
	case OpHandshake:
		return "handshake"
	case OpFrame:
		return "frame"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return fmt.Sprintf("opcode(%d)", uint32(o))
	}
}

// Frame is one decoded wire unit.
type Frame struct {
	Opcode  Opcode
	Payload []byte
}

// Decode unmarshals the frame payload into v.
func (f Frame) Decode(v any) error {
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %w", ErrPayloadDecode, f.Opcode, err)
	}

	return nil
}

// Encode serializes v to JSON and prefixes it with the frame header.
func Encode(op Opcode, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", op, err)
	}

	return EncodeRaw(op, payload)
}

func EncodeRaw(op Opcode, payload []byte) ([]byte, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: unknown opcode %d", ErrMalformedFrame, uint32(op))
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d", len(payload))
	}

	frame := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(frame[0:4], uint32(op))
	// #nosec G115 -- length is bounded by MaxPayloadSize above.
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[HeaderSize:], payload)

	return frame, nil
}

// ReadFrame blocks until a whole frame is read from r or the stream fails.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, fmt.Errorf("read frame header: %w", err)
	}

	op := Opcode(binary.LittleEndian.Uint32(header[0:4]))
	if !op.Valid() {
		return Frame{}, fmt.Errorf("%w: unknown opcode %d", ErrMalformedFrame, uint32(op))
	}
	ln := binary.LittleEndian.Uint32(header[4:8])
	if ln > MaxPayloadSize {
		return Frame{}, fmt.Errorf("%w: declared length %d exceeds %d", ErrMalformedFrame, ln, MaxPayloadSize)
	}

	payload := make([]byte, ln)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("read frame payload: %w", err)
	}

	return Frame{Opcode: op, Payload: payload}, nil
}
