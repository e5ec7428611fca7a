package session

import (
	"fmt"

	"github.com/buildbeam/agentfs/internal/logger"
)

// Sentinel offsets. InvalidOffset is the "definitely not found" answer of
// every offset-returning lookup. DirectoryBit tags an offset as naming a
// directory rather than a file; callers mask it off before dereferencing.
const (
	InvalidOffset      = ^uint32(0)
	InvalidTableOffset = ^uint32(0)
	DirectoryBit       = uint32(0x80000000)
)

// InvariantViolation is the panic value raised when the replicated table
// state can no longer agree with the coordinator: a cursor inconsistent with
// the stream bounds, a record that fails to decode mid-stream, or a backing
// remap of a file whose old mapping is still referenced. None of these are
// recoverable; both sides believe state that has already diverged, so the
// session aborts rather than silently desynchronize.
type InvariantViolation struct {
	msg string
}

func (e *InvariantViolation) Error() string {
	return "protocol invariant violation: " + e.msg
}

func violation(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	logger.Error("Protocol invariant violation: %s", msg)
	panic(&InvariantViolation{msg: msg})
}
