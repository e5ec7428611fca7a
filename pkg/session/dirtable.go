package session

import (
	"sync"

	"github.com/buildbeam/agentfs/internal/protocol/wire"
	"github.com/buildbeam/agentfs/pkg/pathkey"
)

// Exists is the answer of a tri-state directory lookup.
type Exists int

const (
	// ExistsNo: the parent listing is populated and the entry is not in it.
	ExistsNo Exists = iota

	// ExistsYes: the entry is in an already-populated listing (or is itself
	// a known directory).
	ExistsYes

	// ExistsMaybe: the parent directory is absent or unpopulated; a remote
	// listing is required before the question can be answered.
	ExistsMaybe
)

// Entry attribute bits, carried per entry in the directory stream.
// Attributes of zero mean the entry is a tombstone: the name used to exist
// and was deleted.
const (
	AttrFile      uint32 = 1 << 0
	AttrDirectory uint32 = 1 << 1
)

// EntryInformation is the decoded metadata of one directory entry.
type EntryInformation struct {
	Attributes uint32
	LastWrite  uint64
	Size       uint64
}

// IsDirectory reports whether the entry names a directory.
func (i EntryInformation) IsDirectory() bool {
	return i.Attributes&AttrDirectory != 0
}

// populateState is the lazy-population state machine of one directory.
// Transitions only ever move forward; a re-listing that changes the
// directory's table offset resets the record to stateUnpopulated.
type populateState int

const (
	stateUnpopulated populateState = iota
	statePopulating
	statePopulated
)

// DirectoryRecord is the cached listing metadata of one directory.
//
// Locking: the top-level table lock (in any mode) must be held to touch a
// record at all; the record's own lock serializes population and entry reads
// among table readers, so populating directory A never blocks queries into
// directory B.
type DirectoryRecord struct {
	// TableOffset is the position of this directory's listing bytes within
	// the synchronized stream.
	TableOffset uint32

	mu      sync.RWMutex
	state   populateState
	entries map[pathkey.Key]uint32
}

// DirectoryTable is the local replica of the coordinator's directory
// listings, fed by the same append-only stream discipline as the file table.
// The stream is a sequence of blocks: directory key, listing byte count,
// listing bytes. The parse loop indexes the blocks; listing bytes are decoded
// lazily, per directory, on first query.
type DirectoryTable struct {
	mu     sync.RWMutex
	lookup map[pathkey.Key]*DirectoryRecord

	mem    []byte
	cursor uint32

	caseInsensitive bool
}

func NewDirectoryTable(caseInsensitive bool) *DirectoryTable {
	return &DirectoryTable{
		lookup:          make(map[pathkey.Key]*DirectoryRecord),
		caseInsensitive: caseInsensitive,
	}
}

// Append extends the synchronized stream; see MappedFileTable.Append.
func (t *DirectoryTable) Append(delta []byte) {
	if len(delta) == 0 {
		return
	}
	t.mu.Lock()
	t.mem = append(t.mem, delta...)
	t.mu.Unlock()
}

// StreamLen returns how many stream bytes have been received.
func (t *DirectoryTable) StreamLen() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.mem)
}

// Cursor returns the parse cursor, for tests and diagnostics.
func (t *DirectoryTable) Cursor() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor
}

// Parse consumes the stream delta [cursor, size). Same idempotence contract
// as the file table: size ≤ cursor is a no-op.
func (t *DirectoryTable) Parse(size uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.parseLocked(size)
}

func (t *DirectoryTable) parseLocked(size uint32) {
	start := t.cursor
	if size <= start {
		return
	}
	if int(size) > len(t.mem) {
		violation("directory table size %d beyond received stream (%d bytes)", size, len(t.mem))
	}

	r := wire.NewReaderAt(t.mem, start)
	for r.Position() != size {
		if r.Position() > size {
			violation("directory table record crosses parse boundary at %d (size %d)", r.Position(), size)
		}
		key, err := r.ReadKey()
		if err != nil {
			violation("directory table stream truncated: %v", err)
		}
		listingSize, err := r.ReadVarint()
		if err != nil {
			violation("directory table stream truncated: %v", err)
		}
		offset := r.Position()
		if _, err := r.ReadRaw(int(listingSize)); err != nil {
			violation("directory table listing truncated: %v", err)
		}

		rec, exists := t.lookup[key]
		if exists {
			if rec.TableOffset != offset {
				// A newer listing supersedes the old one; entries are
				// re-decoded from the new offset on next query.
				rec.TableOffset = offset
				rec.state = stateUnpopulated
				rec.entries = nil
			}
			continue
		}
		t.lookup[key] = &DirectoryRecord{TableOffset: offset}
	}
	t.cursor = size
}

// EntryExists answers a tri-state existence query for entryKey, whose
// normalized, case-folded path is nameForKey. Yes and No are answered purely
// from already-populated local state; Maybe means the caller must list the
// relevant directory remotely and re-query.
//
// The returned offset is valid only for ExistsYes. Directory answers carry
// DirectoryBit.
func (t *DirectoryTable) EntryExists(entryKey pathkey.Key, nameForKey string, assumeDirectory bool) (Exists, uint32) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if assumeDirectory {
		if rec, ok := t.lookup[entryKey]; ok {
			return ExistsYes, rec.TableOffset | DirectoryBit
		}
	}

	parent, _, ok := pathkey.Split(nameForKey)
	if !ok {
		return ExistsMaybe, InvalidOffset
	}
	rec, ok := t.lookup[pathkey.FromPath(parent)]
	if !ok {
		return ExistsMaybe, InvalidOffset
	}

	rec.mu.RLock()
	populated := rec.state == statePopulated
	offset, present := rec.entries[entryKey]
	rec.mu.RUnlock()
	if !populated {
		// The listing bytes may already be local, but population is
		// coalesced behind the resolve path; a bare existence probe does
		// not decode.
		return ExistsMaybe, InvalidOffset
	}
	if !present {
		return ExistsNo, InvalidOffset
	}
	if t.entryIsDirectory(offset) {
		return ExistsYes, offset | DirectoryBit
	}
	return ExistsYes, offset
}

// entryIsDirectory decodes just the attributes of an entry. Caller holds the
// table lock.
func (t *DirectoryTable) entryIsDirectory(offset uint32) bool {
	r := wire.NewReaderAt(t.mem, offset&^DirectoryBit)
	attrs, err := r.ReadVarint()
	if err != nil {
		violation("directory entry at %d truncated: %v", offset, err)
	}
	return uint32(attrs)&AttrDirectory != 0
}

// Lookup resolves entryKey inside the directory identified by hash, after
// that directory's listing has been brought into the table. It populates the
// listing on first use and returns the entry's offset, DirectoryBit-tagged
// for directories, or InvalidOffset.
func (t *DirectoryTable) Lookup(hash pathkey.DirHash, entryKey pathkey.Key, assumeDirectory bool) uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.lookup[hash.Key]
	if !ok {
		return InvalidOffset
	}
	if assumeDirectory {
		return rec.TableOffset | DirectoryBit
	}

	t.populate(hash, rec)

	rec.mu.RLock()
	offset, present := rec.entries[entryKey]
	rec.mu.RUnlock()
	if !present {
		return InvalidOffset
	}
	if t.entryIsDirectory(offset) {
		return offset | DirectoryBit
	}
	return offset
}

// populate decodes a directory's listing into its entry map the first time
// the directory is queried. The record lock makes this single-flight per
// directory: the first caller decodes, concurrent callers for the same
// directory wait on the lock, callers for other directories proceed. Caller
// holds the table lock (read mode suffices; record state is guarded by the
// record lock).
func (t *DirectoryTable) populate(hash pathkey.DirHash, rec *DirectoryRecord) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.state == statePopulated {
		return
	}
	rec.state = statePopulating

	r := wire.NewReaderAt(t.mem, rec.TableOffset)
	count, err := r.ReadVarint()
	if err != nil {
		violation("directory listing at %d truncated: %v", rec.TableOffset, err)
	}
	entries := make(map[pathkey.Key]uint32, count)
	for i := uint64(0); i < count; i++ {
		name, err := r.ReadString()
		if err != nil {
			violation("directory listing at %d truncated: %v", rec.TableOffset, err)
		}
		infoOffset := r.Position()
		if err := skipEntryInformation(r); err != nil {
			violation("directory listing at %d truncated: %v", rec.TableOffset, err)
		}
		if t.caseInsensitive {
			name = pathkey.ForKey(name, true)
		}
		entries[hash.Child(name)] = infoOffset
	}

	rec.entries = entries
	rec.state = statePopulated
}

// GetEntryInformation decodes the metadata behind an offset previously
// returned by EntryExists or Lookup. DirectoryBit-tagged offsets answer as
// plain directories without decoding; ok is false for the invalid sentinel.
func (t *DirectoryTable) GetEntryInformation(offset uint32) (EntryInformation, bool) {
	if offset == InvalidOffset {
		return EntryInformation{}, false
	}
	if offset&DirectoryBit != 0 {
		return EntryInformation{Attributes: AttrDirectory}, true
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	r := wire.NewReaderAt(t.mem, offset)
	info, err := decodeEntryInformation(r)
	if err != nil {
		violation("directory entry at %d truncated: %v", offset, err)
	}
	return info, true
}

func decodeEntryInformation(r *wire.Reader) (EntryInformation, error) {
	attrs, err := r.ReadVarint()
	if err != nil {
		return EntryInformation{}, err
	}
	lastWrite, err := r.ReadVarint()
	if err != nil {
		return EntryInformation{}, err
	}
	size, err := r.ReadVarint()
	if err != nil {
		return EntryInformation{}, err
	}
	return EntryInformation{Attributes: uint32(attrs), LastWrite: lastWrite, Size: size}, nil
}

func skipEntryInformation(r *wire.Reader) error {
	_, err := decodeEntryInformation(r)
	return err
}

// Len returns the number of directory records, for tests and diagnostics.
func (t *DirectoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.lookup)
}
