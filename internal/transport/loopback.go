package transport

import (
	"errors"
	"fmt"

	"github.com/buildbeam/agentfs/internal/protocol/rpc"
)

// ErrClosed is returned by a closed loopback channel.
var ErrClosed = errors.New("channel closed")

// Handler is the coordinator side of one exchange: given a request payload,
// produce the response payload. Used by the in-process loopback channel.
type Handler interface {
	Handle(msgType byte, request []byte) ([]byte, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(msgType byte, request []byte) ([]byte, error)

func (f HandlerFunc) Handle(msgType byte, request []byte) ([]byte, error) {
	return f(msgType, request)
}

// Loopback is an in-process Channel that dispatches straight into a Handler.
// Tests script a coordinator with it; it also backs local single-machine
// sessions where agent and coordinator share a process.
type Loopback struct {
	handler Handler
	closed  bool
}

func NewLoopback(handler Handler) *Loopback {
	return &Loopback{handler: handler}
}

func (l *Loopback) RoundTrip(msgType byte, request []byte) ([]byte, error) {
	if l.closed {
		return nil, fmt.Errorf("%s: %w", rpc.Name(msgType), ErrClosed)
	}
	resp, err := l.handler.Handle(msgType, request)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rpc.Name(msgType), err)
	}
	return resp, nil
}

func (l *Loopback) Close() error {
	l.closed = true
	return nil
}
