package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildbeam/agentfs/pkg/pathkey"
)

func TestWriterReader_Integers(t *testing.T) {
	var w Writer
	w.WriteU8(0xab)
	w.WriteBool(true)
	w.WriteBool(false)
	w.WriteU16(0x1234)
	w.WriteU32(0xdeadbeef)
	w.WriteU64(0x0102030405060708)

	r := NewReader(w.Bytes())

	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), b)

	v1, err := r.ReadBool()
	require.NoError(t, err)
	assert.True(t, v1)

	v2, err := r.ReadBool()
	require.NoError(t, err)
	assert.False(t, v2)

	u16, err := r.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), u32)

	u64, err := r.ReadU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)

	assert.Equal(t, 0, r.Left())
}

func TestWriterReader_LittleEndian(t *testing.T) {
	var w Writer
	w.WriteU32(1)
	assert.Equal(t, []byte{1, 0, 0, 0}, w.Bytes())
}

func TestVarint_RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 129, 16383, 16384, 1 << 32, 1<<64 - 1}

	var w Writer
	for _, v := range values {
		w.WriteVarint(v)
	}

	r := NewReader(w.Bytes())
	for _, want := range values {
		got, err := r.ReadVarint()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, r.Left())
}

func TestVarint_Encoding(t *testing.T) {
	var w Writer
	w.WriteVarint(0)
	assert.Equal(t, []byte{0}, w.Bytes())

	w.Reset()
	w.WriteVarint(127)
	assert.Equal(t, []byte{0x7f}, w.Bytes())

	w.Reset()
	w.WriteVarint(128)
	// Seven payload bits per byte, continuation bit on every byte but the last.
	assert.Equal(t, []byte{0x80, 0x01}, w.Bytes())
}

func TestString_RoundTrip(t *testing.T) {
	var w Writer
	w.WriteString("")
	w.WriteString("/project/src/main.c")
	w.WriteString("name with spaces and ünïcode")

	r := NewReader(w.Bytes())

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "", s)

	s, err = r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "/project/src/main.c", s)

	s, err = r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "name with spaces and ünïcode", s)
}

func TestString_TooLong(t *testing.T) {
	var w Writer
	w.WriteVarint(maxStringLength + 1)

	r := NewReader(w.Bytes())
	_, err := r.ReadString()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")
}

func TestSkipString(t *testing.T) {
	var w Writer
	w.WriteString("skipped")
	w.WriteU32(42)

	r := NewReader(w.Bytes())
	require.NoError(t, r.SkipString())

	v, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)
}

func TestKey_RoundTrip(t *testing.T) {
	key := pathkey.FromPath("/some/path")

	var w Writer
	w.WriteKey(key)
	require.Equal(t, pathkey.Size, w.Len())

	r := NewReader(w.Bytes())
	got, err := r.ReadKey()
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestReader_Truncated(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_, err := r.ReadU32()
	require.Error(t, err)

	r = NewReader(nil)
	_, err = r.ReadByte()
	require.Error(t, err)

	r = NewReader([]byte{0x80})
	_, err = r.ReadVarint()
	require.Error(t, err)
}

func TestReaderAt_Position(t *testing.T) {
	var w Writer
	w.WriteU32(1)
	w.WriteU32(2)

	r := NewReaderAt(w.Bytes(), 4)
	assert.Equal(t, uint32(4), r.Position())

	v, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), v)
	assert.Equal(t, uint32(8), r.Position())
	assert.Equal(t, 0, r.Left())
}

func TestWriter_Reset(t *testing.T) {
	var w Writer
	w.WriteU64(7)
	w.Reset()
	assert.Equal(t, 0, w.Len())

	w.WriteU8(9)
	assert.Equal(t, []byte{9}, w.Bytes())
}
