package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildbeam/agentfs/internal/protocol/rpc"
)

// startCoordinator runs a one-connection coordinator that answers every
// request using respond, which returns the response type and payload.
func startCoordinator(t *testing.T, respond func(msgType byte, payload []byte) (byte, []byte)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msgType, payload, err := rpc.ReadFrame(conn)
			if err != nil {
				return
			}
			respType, resp := respond(msgType, payload)
			if err := rpc.WriteFrame(conn, respType, resp); err != nil {
				return
			}
		}
	}()
	return ln.Addr().String()
}

func TestTCPChannel_RoundTrip(t *testing.T) {
	addr := startCoordinator(t, func(msgType byte, payload []byte) (byte, []byte) {
		return msgType, append([]byte("echo:"), payload...)
	})

	ch, err := Dial(context.Background(), addr)
	require.NoError(t, err)
	defer ch.Close()

	resp, err := ch.RoundTrip(rpc.MsgLog, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("echo:hello"), resp)

	// The channel survives multiple exchanges.
	resp, err = ch.RoundTrip(rpc.MsgUpdateTables, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("echo:"), resp)
}

func TestTCPChannel_ResponseTypeMismatch(t *testing.T) {
	addr := startCoordinator(t, func(msgType byte, payload []byte) (byte, []byte) {
		return msgType + 1, nil
	})

	ch, err := Dial(context.Background(), addr)
	require.NoError(t, err)
	defer ch.Close()

	_, err = ch.RoundTrip(rpc.MsgLog, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestTCPChannel_DialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// A listener that is immediately closed guarantees a refused port.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Dial(ctx, addr)
	require.Error(t, err)
}

func TestTCPChannel_ClosedConnection(t *testing.T) {
	addr := startCoordinator(t, func(msgType byte, payload []byte) (byte, []byte) {
		return msgType, nil
	})

	ch, err := Dial(context.Background(), addr)
	require.NoError(t, err)
	require.NoError(t, ch.Close())

	_, err = ch.RoundTrip(rpc.MsgLog, nil)
	assert.Error(t, err)
}

func TestLoopback(t *testing.T) {
	lb := NewLoopback(HandlerFunc(func(msgType byte, request []byte) ([]byte, error) {
		return append([]byte{msgType}, request...), nil
	}))

	resp, err := lb.RoundTrip(rpc.MsgLog, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte{rpc.MsgLog, 'x'}, resp)

	require.NoError(t, lb.Close())
	_, err = lb.RoundTrip(rpc.MsgLog, nil)
	assert.ErrorIs(t, err, ErrClosed)
}
