package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"

	"github.com/buildbeam/agentfs/internal/logger"
	"github.com/buildbeam/agentfs/internal/protocol/rpc"
)

// TCPChannel speaks the framed coordinator protocol over a single TCP
// connection. Writes are buffered and flushed once per request so a request
// built from several fields still leaves as one segment in the common case.
type TCPChannel struct {
	conn net.Conn
	w    *bufio.Writer
	r    *bufio.Reader
}

// Dial connects to the coordinator. The context bounds connection
// establishment only; established channels have no deadline, matching the
// session contract that an exchange blocks until its response arrives.
func Dial(ctx context.Context, address string) (*TCPChannel, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial coordinator %s: %w", address, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		// One frame per exchange; latency matters more than throughput.
		if err := tc.SetNoDelay(true); err != nil {
			logger.Warn("Failed to set TCP_NODELAY: %v", err)
		}
	}
	logger.Debug("Connected to coordinator at %s", address)
	return &TCPChannel{
		conn: conn,
		w:    bufio.NewWriter(conn),
		r:    bufio.NewReader(conn),
	}, nil
}

func (c *TCPChannel) RoundTrip(msgType byte, request []byte) ([]byte, error) {
	if err := rpc.WriteFrame(c.w, msgType, request); err != nil {
		return nil, fmt.Errorf("send %s: %w", rpc.Name(msgType), err)
	}
	if err := c.w.Flush(); err != nil {
		return nil, fmt.Errorf("flush %s: %w", rpc.Name(msgType), err)
	}

	respType, payload, err := rpc.ReadFrame(c.r)
	if err != nil {
		return nil, fmt.Errorf("receive %s response: %w", rpc.Name(msgType), err)
	}
	if respType != msgType {
		return nil, fmt.Errorf("response type mismatch: sent %s, got %s",
			rpc.Name(msgType), rpc.Name(respType))
	}
	return payload, nil
}

func (c *TCPChannel) Close() error {
	return c.conn.Close()
}
