package rpc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame layout: one message-type byte, a 4-byte little-endian payload length,
// then the payload. The header mirrors what the coordinator's channel reader
// expects; the payload is wire-encoded per internal/protocol/wire.
const frameHeaderSize = 5

// maxFrameSize bounds a single frame. Table deltas ride inside response
// frames, so this must comfortably exceed the largest delta a busy build
// produces between two exchanges.
const maxFrameSize = 64 * 1024 * 1024

// WriteFrame writes one framed message.
func WriteFrame(w io.Writer, msgType byte, payload []byte) error {
	if len(payload) > maxFrameSize {
		return fmt.Errorf("frame payload %d exceeds maximum %d", len(payload), maxFrameSize)
	}
	var header [frameHeaderSize]byte
	header[0] = msgType
	binary.LittleEndian.PutUint32(header[1:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one framed message.
func ReadFrame(r io.Reader) (byte, []byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("read frame header: %w", err)
	}
	length := binary.LittleEndian.Uint32(header[1:])
	if length > maxFrameSize {
		return 0, nil, fmt.Errorf("frame payload %d exceeds maximum %d", length, maxFrameSize)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("read frame payload: %w", err)
	}
	return header[0], payload, nil
}
