package session

import (
	"sync"

	"github.com/buildbeam/agentfs/internal/logger"
	"github.com/buildbeam/agentfs/internal/protocol/wire"
	"github.com/buildbeam/agentfs/pkg/pathkey"
)

// Backing-name markers. A name starting with syntheticMarker is a coordinator
// synthetic name subject to server-initiated remapping; a name starting with
// mappingMarker encodes a memory-mapping handle and is not a path at all.
const (
	syntheticMarker = '^'
	mappingMarker   = ':'
)

// FileRecord is the cached metadata for one logical file. Records are keyed
// by path key, created by table parsing or the written-file merge, and never
// removed; deletion is a tombstone so the key's identity survives the
// session.
type FileRecord struct {
	Key pathkey.Key

	// Name is the backing name the tool should actually use. It may be a
	// real path, a coordinator synthetic name ("^..."), or a memory-mapping
	// token (":" + base62 handle).
	Name string

	// OriginalName is the logical name as seen by the intercepted process.
	// Empty for records learned from table parsing, which only carries the
	// backing side.
	OriginalName string

	Size    uint64
	Deleted bool
	Created bool

	// LastDesiredAccess remembers the most recent access intent the
	// interception layer declared for this file, as a hint for the next
	// resolve. Cleared when the record is tombstoned.
	LastDesiredAccess AccessIntent

	// MemoryFile is present only when the coordinator serves this file's
	// bytes from memory. RefCount counts open handles against it.
	MemoryFile *MemoryFile
	RefCount   int32
}

// isSyntheticName reports whether a backing name is subject to the
// server-initiated remap rule during parsing.
func isSyntheticName(name string) bool {
	return len(name) > 0 && name[0] == syntheticMarker
}

// MappedFileTable is the local replica of the coordinator's per-file
// metadata, fed by an append-only byte stream. One reader/writer lock covers
// the whole table: lookups are shared, parsing and merging are exclusive.
type MappedFileTable struct {
	mu     sync.RWMutex
	lookup map[pathkey.Key]*FileRecord

	// mem is the synchronized stream received so far; cursor is the offset
	// up to which it has been parsed. cursor ≤ len(mem) always.
	mem    []byte
	cursor uint32
}

func NewMappedFileTable() *MappedFileTable {
	return &MappedFileTable{lookup: make(map[pathkey.Key]*FileRecord)}
}

// Init pre-reserves capacity for the expected record count, appends the
// initial stream bytes, and parses up to initialSize.
func (t *MappedFileTable) Init(stream []byte, recordCountHint int, initialSize uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lookup = make(map[pathkey.Key]*FileRecord, recordCountHint+128)
	t.mem = append(t.mem[:0], stream...)
	t.parseLocked(initialSize)
}

// Append extends the synchronized stream. The session layer calls this while
// holding the communication lock, which keeps deltas in arrival order.
func (t *MappedFileTable) Append(delta []byte) {
	if len(delta) == 0 {
		return
	}
	t.mu.Lock()
	t.mem = append(t.mem, delta...)
	t.mu.Unlock()
}

// StreamLen returns how many stream bytes have been received (not parsed).
func (t *MappedFileTable) StreamLen() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.mem)
}

// Cursor returns the parse cursor, for tests and diagnostics.
func (t *MappedFileTable) Cursor() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor
}

// Parse consumes the stream delta [cursor, size) and upserts records.
// Calling with size ≤ cursor is a no-op, so concurrent resolution paths may
// request overlapping parses freely.
func (t *MappedFileTable) Parse(size uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.parseLocked(size)
}

// parseLocked is the parse body for callers that already hold the write
// lock. Decode failures and cursor inconsistencies are fatal: continuing
// would silently desynchronize this replica from the coordinator.
func (t *MappedFileTable) parseLocked(size uint32) {
	start := t.cursor
	if size <= start {
		return
	}
	if int(size) > len(t.mem) {
		violation("file table size %d beyond received stream (%d bytes)", size, len(t.mem))
	}

	r := wire.NewReaderAt(t.mem, start)
	for r.Position() != size {
		if r.Position() > size {
			violation("file table record crosses parse boundary at %d (size %d)", r.Position(), size)
		}
		key, err := r.ReadKey()
		if err != nil {
			violation("file table stream truncated: %v", err)
		}
		name, err := r.ReadString()
		if err != nil {
			violation("file table stream truncated: %v", err)
		}
		fileSize, err := r.ReadVarint()
		if err != nil {
			violation("file table stream truncated: %v", err)
		}

		rec, exists := t.lookup[key]
		if exists {
			if isSyntheticName(rec.Name) && rec.Name != name {
				// Server-initiated remap: the file's backing changed after we
				// first observed it. Remapping a file whose old mapping still
				// has open handles cannot be reconciled locally.
				if rec.MemoryFile != nil {
					if rec.RefCount > 0 {
						violation("file %q remapped (%q to %q) while its mapping is in use",
							rec.OriginalName, rec.Name, name)
					}
					rec.MemoryFile.Invalidate()
					rec.MemoryFile = nil
				}
				rec.Name = name
			}
			// Any other collision keeps the first observation untouched so a
			// record's fields never tear mid-use. Unclear whether real remap
			// events can reach this path; preserved as observed.
			continue
		}

		t.lookup[key] = &FileRecord{Key: key, Name: name, Size: fileSize}
	}
	t.cursor = size
}

// SetDeleted tombstones (or revives) a record and clears its access hint.
// A miss is a silent no-op: the coordinator may tombstone files this process
// never resolved.
func (t *MappedFileTable) SetDeleted(key pathkey.Key, deleted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.lookup[key]
	if !ok {
		return
	}
	rec.Deleted = deleted
	rec.LastDesiredAccess = 0
}

// Get returns a copy of the record for key. The copy shares the MemoryFile
// pointer, whose own invalidation flag makes stale reads detectable.
func (t *MappedFileTable) Get(key pathkey.Key) (FileRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.lookup[key]
	if !ok {
		return FileRecord{}, false
	}
	return *rec, true
}

// SetLastAccess records the latest access intent for key. A miss is a no-op.
func (t *MappedFileTable) SetLastAccess(key pathkey.Key, access AccessIntent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.lookup[key]; ok {
		rec.LastDesiredAccess = access
	}
}

// Retain takes a handle reference on key's memory mapping. It returns the
// mapping, or nil when the record has none (the caller should open the
// backing name instead).
func (t *MappedFileTable) Retain(key pathkey.Key) *MemoryFile {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.lookup[key]
	if !ok || rec.MemoryFile == nil {
		return nil
	}
	rec.RefCount++
	return rec.MemoryFile
}

// Release drops a handle reference taken with Retain.
func (t *MappedFileTable) Release(key pathkey.Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.lookup[key]
	if !ok {
		return
	}
	if rec.RefCount == 0 {
		logger.Warn("Release without matching Retain for %s", key)
		return
	}
	rec.RefCount--
}

// Len returns the number of records, for tests and diagnostics.
func (t *MappedFileTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.lookup)
}
