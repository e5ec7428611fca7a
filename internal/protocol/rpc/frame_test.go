package rpc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("request body")
	require.NoError(t, WriteFrame(&buf, MsgResolveOpen, payload))

	msgType, got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, MsgResolveOpen, msgType)
	assert.Equal(t, payload, got)
}

func TestFrame_EmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, MsgLog, nil))

	msgType, got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, MsgLog, msgType)
	assert.Empty(t, got)
}

func TestFrame_TruncatedHeader(t *testing.T) {
	_, _, err := ReadFrame(bytes.NewReader([]byte{1, 2}))
	require.Error(t, err)
}

func TestFrame_TruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, MsgUpdateTables, []byte("full payload")))

	truncated := buf.Bytes()[:buf.Len()-3]
	_, _, err := ReadFrame(bytes.NewReader(truncated))
	require.Error(t, err)
}

func TestFrame_OversizedLength(t *testing.T) {
	header := []byte{1, 0xff, 0xff, 0xff, 0xff}
	_, _, err := ReadFrame(bytes.NewReader(header))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")
}

func TestName(t *testing.T) {
	assert.Equal(t, "resolve_open", Name(MsgResolveOpen))
	assert.Equal(t, "update_tables", Name(MsgUpdateTables))
	assert.Equal(t, "unknown", Name(0xfe))
}
