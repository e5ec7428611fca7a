package session

import (
	"sync"

	"github.com/buildbeam/agentfs/internal/transport"
	"github.com/buildbeam/agentfs/pkg/metrics"
	"github.com/buildbeam/agentfs/pkg/pathkey"
)

// AccessIntent is what the intercepted call wants from a path. The byte
// values are wire values.
type AccessIntent byte

const (
	// AccessAttributes asks only for metadata.
	AccessAttributes AccessIntent = 0
	// AccessRead opens for reading.
	AccessRead AccessIntent = 1
	// AccessWrite opens for writing (implies the coordinator will expect a
	// close-file report).
	AccessWrite AccessIntent = 2
)

// Options configure a session. The zero value is usable for tests; real
// agents fill everything from config.
type Options struct {
	// WorkingDir is the virtual working directory relative paths resolve
	// against.
	WorkingDir string

	// SystemTemp is the scratch area prefix. Paths under it bypass the
	// directory cache, and drained written files flagged "in temp" get it
	// prepended.
	SystemTemp string

	// CaseInsensitive selects case-folded path keys, matching the
	// coordinator's view of the project filesystem.
	CaseInsensitive bool

	// FileRecordHint pre-sizes the mapped file table.
	FileRecordHint int

	// Metrics receives session instrumentation. Nil means no-op.
	Metrics metrics.SessionMetrics
}

// Session owns the replicated tables and the coordinator channel for one
// intercepted process. Construct one per agent session and inject it
// everywhere; there are no package-level tables.
type Session struct {
	channel transport.Channel

	// commMu is the process-wide communication lock: exactly one RPC
	// exchange is in flight at a time. It is released before table deltas
	// are parsed so table maintenance rides on the finer table locks.
	commMu sync.Mutex

	files *MappedFileTable
	dirs  *DirectoryTable
	vfs   *VFSMap

	workingDir      string
	systemTemp      string
	caseInsensitive bool

	metrics metrics.SessionMetrics
}

// New creates a session over an established coordinator channel.
func New(channel transport.Channel, opts Options) *Session {
	m := opts.Metrics
	if m == nil {
		m = metrics.NewNoopSessionMetrics()
	}
	s := &Session{
		channel:         channel,
		files:           NewMappedFileTable(),
		dirs:            NewDirectoryTable(opts.CaseInsensitive),
		vfs:             NewVFSMap(opts.CaseInsensitive),
		workingDir:      pathkey.FixPath(opts.WorkingDir, ""),
		systemTemp:      pathkey.FixPath(opts.SystemTemp, ""),
		caseInsensitive: opts.CaseInsensitive,
		metrics:         m,
	}
	s.files.Init(nil, opts.FileRecordHint, 0)
	return s
}

// Init brings the session online: an initial written-files drain so files
// materialized before this process started are visible, then a full table
// refresh.
func (s *Session) Init() error {
	if err := s.DrainWrittenFiles(); err != nil {
		return err
	}
	return s.RefreshTables()
}

// Close releases the coordinator channel. In-flight exchanges fail once the
// channel is closed.
func (s *Session) Close() error {
	return s.channel.Close()
}

// Files exposes the mapped file table to the interception layer (handle
// refcounting, tombstones).
func (s *Session) Files() *MappedFileTable {
	return s.files
}

// Dirs exposes the directory table (entry metadata decode).
func (s *Session) Dirs() *DirectoryTable {
	return s.dirs
}

// VFS exposes the virtual path mapping table.
func (s *Session) VFS() *VFSMap {
	return s.vfs
}

// fixForKey normalizes a path and returns both the canonical form and the
// case-folded form keys are derived from.
func (s *Session) fixForKey(path string) (fixed, forKey string) {
	fixed = pathkey.FixPath(path, s.workingDir)
	return fixed, pathkey.ForKey(fixed, s.caseInsensitive)
}

// Key computes the table key for a path, normalizing first.
func (s *Session) Key(path string) pathkey.Key {
	_, forKey := s.fixForKey(path)
	return pathkey.FromPath(forKey)
}

const base62Digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// mappingToken encodes a memory-mapping handle as a synthetic backing name.
func mappingToken(handle uint64) string {
	var buf [12]byte
	i := len(buf)
	for {
		i--
		buf[i] = base62Digits[handle%62]
		handle /= 62
		if handle == 0 {
			break
		}
	}
	return string(mappingMarker) + string(buf[i:])
}
