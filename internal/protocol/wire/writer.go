// Package wire implements the coordinator's binary message format.
//
// All integers are little-endian. Integers that are usually small (sizes,
// counts, handles) use a 7-bit variable-length encoding: seven payload bits
// per byte, high bit set on every byte except the last. Strings are
// length-prefixed with a varint byte count, unpadded UTF-8. Path keys travel
// as raw fixed-width bytes. Table deltas are opaque byte ranges; only their
// total size is framed, the receiver tracks its own cursor.
package wire

import (
	"encoding/binary"

	"github.com/buildbeam/agentfs/pkg/pathkey"
)

// Writer builds an outgoing message payload in memory. The zero value is
// ready to use.
type Writer struct {
	buf []byte
}

// Bytes returns the accumulated payload. The slice aliases the writer's
// buffer and is only valid until the next write.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reset empties the writer for reuse.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

func (w *Writer) WriteU8(b byte) {
	w.buf = append(w.buf, b)
}

func (w *Writer) WriteBool(b bool) {
	if b {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteVarint writes v in the 7-bit variable-length encoding.
func (w *Writer) WriteVarint(v uint64) {
	for v >= 0x80 {
		w.buf = append(w.buf, byte(v)|0x80)
		v >>= 7
	}
	w.buf = append(w.buf, byte(v))
}

// WriteString writes a varint byte count followed by the raw bytes.
func (w *Writer) WriteString(s string) {
	w.WriteVarint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteKey writes a path key as raw bytes, no length prefix.
func (w *Writer) WriteKey(k pathkey.Key) {
	w.buf = append(w.buf, k[:]...)
}

// WriteRaw appends bytes verbatim, for pre-encoded sections such as loader
// search path lists.
func (w *Writer) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}
