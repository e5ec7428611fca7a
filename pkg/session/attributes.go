package session

import (
	"strings"

	"github.com/buildbeam/agentfs/internal/logger"
	"github.com/buildbeam/agentfs/pkg/pathkey"
)

// FileAttributes is the answer to an intercepted attributes query.
//
// Cached=false means this core has no authoritative answer and the caller
// must fall through to the real filesystem (scratch-area paths take this
// route; too much churn happens there to replicate).
type FileAttributes struct {
	Cached bool
	Exists bool

	Attributes uint32
	Size       uint64
	LastWrite  uint64
}

// GetFileAttributes resolves an attributes query from local state, paying
// for at most one remote listing on first touch of the containing directory.
//
// The mapped file table answers first: a tombstoned record is a definitive
// not-found, a created record a definitive found. Otherwise the directory
// table decides, with the usual tri-state escalation inside
// ResolveEntryOffset.
func (s *Session) GetFileAttributes(path string, assumeDirectory bool) FileAttributes {
	fixed, forKey := s.fixForKey(path)
	key := pathkey.FromPath(forKey)

	var mappedSize uint64
	foundMapping := false
	if rec, ok := s.files.Get(key); ok {
		if rec.Deleted {
			return FileAttributes{Cached: true, Exists: false}
		}
		if rec.Created {
			return FileAttributes{
				Cached:     true,
				Exists:     true,
				Attributes: AttrFile,
				Size:       rec.Size,
			}
		}
		foundMapping = true
		mappedSize = rec.Size
	}

	// The scratch area is not replicated; the caller must ask the real
	// filesystem there.
	if s.inSystemTemp(fixed) {
		return FileAttributes{Cached: foundMapping, Exists: foundMapping, Attributes: AttrFile, Size: mappedSize}
	}

	offset, err := s.ResolveEntryOffset(key, fixed, assumeDirectory)
	if err != nil {
		// No answer from the coordinator is no answer, not a not-found.
		logger.Warn("Attributes for %q: %v", path, err)
		return FileAttributes{}
	}
	if offset == InvalidOffset {
		if foundMapping {
			return FileAttributes{Cached: true, Exists: true, Attributes: AttrFile, Size: mappedSize}
		}
		return FileAttributes{Cached: true, Exists: false}
	}

	info, ok := s.dirs.GetEntryInformation(offset)
	if !ok || info.Attributes == 0 {
		// The entry used to exist and was deleted.
		if foundMapping {
			return FileAttributes{Cached: true, Exists: true, Attributes: AttrFile, Size: mappedSize}
		}
		return FileAttributes{Cached: true, Exists: false}
	}

	size := info.Size
	if foundMapping {
		size = mappedSize
	}
	return FileAttributes{
		Cached:     true,
		Exists:     true,
		Attributes: info.Attributes,
		Size:       size,
		LastWrite:  info.LastWrite,
	}
}

// inSystemTemp reports whether fixed is the scratch directory or inside it.
// A sibling sharing the prefix as a substring does not count.
func (s *Session) inSystemTemp(fixed string) bool {
	if s.systemTemp == "/" || !strings.HasPrefix(fixed, s.systemTemp) {
		return false
	}
	return len(fixed) == len(s.systemTemp) || fixed[len(s.systemTemp)] == '/'
}
