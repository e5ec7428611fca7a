package session

import (
	"sync/atomic"

	"github.com/buildbeam/agentfs/internal/logger"
)

// MemoryFile is file content the coordinator chose to serve from memory
// instead of a disk path. The owning FileRecord's backing name is then a
// synthetic token derived from the mapping handle rather than a real path.
//
// A MemoryFile is never mutated once published: when the coordinator reports
// a new backing for the same logical file, the old mapping is invalidated and
// detached so late readers holding the pointer see an explicit invalid state
// instead of stale bytes.
type MemoryFile struct {
	// Handle identifies the mapping to the coordinator; it is what the
	// synthetic backing token encodes.
	Handle uint64

	// LocalOnly mappings were created by this process (scratch output being
	// buffered for write-back) and have no coordinator-side resource behind
	// them, so invalidation just drops the bytes.
	LocalOnly bool

	// Data is the mapped content. Nil after invalidation.
	Data []byte

	invalid atomic.Bool
}

// Valid reports whether the mapping may still be read through.
func (m *MemoryFile) Valid() bool {
	return !m.invalid.Load()
}

// Invalidate tears the mapping down. Safe to call more than once; only the
// first call releases anything.
func (m *MemoryFile) Invalidate() {
	if m.invalid.Swap(true) {
		return
	}
	if !m.LocalOnly {
		logger.Debug("Unmapping stale memory file (handle %d, %d bytes)", m.Handle, len(m.Data))
	}
	m.Data = nil
}
