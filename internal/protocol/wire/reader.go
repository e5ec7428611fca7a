package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/buildbeam/agentfs/pkg/pathkey"
)

// maxStringLength bounds decoded strings. Paths and diagnostic messages are
// the only strings on this protocol; anything past this is a corrupted or
// hostile stream.
const maxStringLength = 64 * 1024

// Reader decodes a message payload or a table delta stream. It reads from an
// in-memory byte slice at an explicit position so table parsers can resume
// from their cursor.
type Reader struct {
	data []byte
	pos  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// NewReaderAt starts decoding at pos, used by the table parsers to continue
// from their cursor.
func NewReaderAt(data []byte, pos uint32) *Reader {
	return &Reader{data: data, pos: int(pos)}
}

// Position returns the current byte offset from the start of the buffer.
func (r *Reader) Position() uint32 {
	return uint32(r.pos)
}

// Left returns the number of unread bytes.
func (r *Reader) Left() int {
	return len(r.data) - r.pos
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.Left() < n {
		return nil, fmt.Errorf("need %d bytes, have %d: %w", n, r.Left(), io.ErrUnexpectedEOF)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) ReadByte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, fmt.Errorf("read byte: %w", err)
	}
	return b[0], nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, fmt.Errorf("read u16: %w", err)
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, fmt.Errorf("read u32: %w", err)
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, fmt.Errorf("read u64: %w", err)
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadVarint reads a 7-bit variable-length integer.
func (r *Reader) ReadVarint() (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("read varint: %w", err)
		}
		if shift >= 64 {
			return 0, fmt.Errorf("read varint: value overflows 64 bits")
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
	}
}

// ReadString reads a varint byte count followed by the raw bytes.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadVarint()
	if err != nil {
		return "", fmt.Errorf("read string length: %w", err)
	}
	if n > maxStringLength {
		return "", fmt.Errorf("string length %d exceeds maximum %d", n, maxStringLength)
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", fmt.Errorf("read string body: %w", err)
	}
	return string(b), nil
}

// SkipString advances past a string without allocating it.
func (r *Reader) SkipString() error {
	n, err := r.ReadVarint()
	if err != nil {
		return fmt.Errorf("skip string length: %w", err)
	}
	if n > maxStringLength {
		return fmt.Errorf("string length %d exceeds maximum %d", n, maxStringLength)
	}
	if _, err := r.take(int(n)); err != nil {
		return fmt.Errorf("skip string body: %w", err)
	}
	return nil
}

// ReadKey reads a raw fixed-width path key.
func (r *Reader) ReadKey() (pathkey.Key, error) {
	b, err := r.take(pathkey.Size)
	if err != nil {
		return pathkey.Zero, fmt.Errorf("read path key: %w", err)
	}
	var k pathkey.Key
	copy(k[:], b)
	return k, nil
}

// ReadRaw returns the next n bytes without copying.
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, fmt.Errorf("read raw: %w", err)
	}
	return b, nil
}
