package session

import (
	"strings"

	"github.com/buildbeam/agentfs/internal/logger"
	"github.com/buildbeam/agentfs/internal/protocol/wire"
)

// VFSEntry maps one virtual path prefix onto the local path it is backed by.
type VFSEntry struct {
	Virtual string
	Local   string
}

// VFSMap translates between the virtualized project layout the intercepted
// tool sees and the local paths that actually back it. Entries are loaded
// once from the coordinator at session start and read-only afterwards, so
// lookups take no lock.
type VFSMap struct {
	entries []VFSEntry

	// matchingLen is the length of the shared prefix of all virtual roots,
	// used to reject non-virtual paths with one comparison.
	matchingLen     int
	caseInsensitive bool
}

func NewVFSMap(caseInsensitive bool) *VFSMap {
	return &VFSMap{caseInsensitive: caseInsensitive}
}

// Enabled reports whether any virtual roots are configured.
func (m *VFSMap) Enabled() bool {
	return len(m.entries) > 0
}

// Populate loads the entry list from a coordinator payload: per entry an
// index byte (unused), the virtual prefix, and the local prefix. Entries
// with an empty virtual prefix are skipped.
func (m *VFSMap) Populate(r *wire.Reader) error {
	for r.Left() > 0 {
		if _, err := r.ReadByte(); err != nil {
			return err
		}
		virtual, err := r.ReadString()
		if err != nil {
			return err
		}
		if virtual == "" {
			if err := r.SkipString(); err != nil {
				return err
			}
			continue
		}
		virtual = strings.ReplaceAll(virtual, "\\", "/")

		local, err := r.ReadString()
		if err != nil {
			return err
		}
		m.Add(virtual, local)
	}
	for _, e := range m.entries {
		logger.Debug("VFS: %s -> %s", e.Virtual, e.Local)
	}
	return nil
}

// Add registers one virtual root. Used for locally configured roots; the
// coordinator-sent list goes through Populate.
func (m *VFSMap) Add(virtual, local string) {
	m.entries = append(m.entries, VFSEntry{Virtual: virtual, Local: local})

	if len(m.entries) == 1 {
		m.matchingLen = len(virtual)
	} else {
		m.matchingLen = sharedPrefixLen(m.entries[0].Virtual, virtual, m.matchingLen)
	}
}

func sharedPrefixLen(a, b string, limit int) int {
	n := min(limit, len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func (m *VFSMap) equalFold(a, b string) bool {
	if m.caseInsensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func (m *VFSMap) hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && m.equalFold(s[:len(prefix)], prefix)
}

// Devirtualize rewrites a virtual path to its local backing. It returns the
// input unchanged (and false) for paths outside every virtual root.
func (m *VFSMap) Devirtualize(path string) (string, bool) {
	if len(m.entries) == 0 {
		return path, false
	}

	n := min(len(path), m.matchingLen)
	if !m.equalFold(path[:n], m.entries[0].Virtual[:n]) {
		return path, false
	}

	// A path above the virtual roots maps onto the first root's local side;
	// the directories above the roots exist only to hold them.
	if len(path) < m.matchingLen {
		return m.entries[0].Local, true
	}

	for _, e := range m.entries {
		if m.hasPrefix(path, e.Virtual) {
			return e.Local + path[len(e.Virtual):], true
		}
	}
	return path, false
}

// Virtualize rewrites a local path back into the virtual layout.
func (m *VFSMap) Virtualize(path string) (string, bool) {
	for _, e := range m.entries {
		if m.hasPrefix(path, e.Local) {
			return e.Virtual + path[len(e.Local):], true
		}
	}
	return path, false
}
