package session

import (
	"fmt"
	"math"

	"github.com/buildbeam/agentfs/internal/logger"
	"github.com/buildbeam/agentfs/internal/protocol/rpc"
	"github.com/buildbeam/agentfs/internal/protocol/wire"
	"github.com/buildbeam/agentfs/pkg/pathkey"
)

// OpenResult is what the interception layer needs to satisfy an intercepted
// open: the name to actually open (possibly a synthetic token), the size to
// report, and the token to hand back on close.
type OpenResult struct {
	BackingName string
	Size        uint64
	CloseID     uint32
}

// ResolveOpen resolves a path plus access intent against the coordinator and
// synchronizes both tables from the response. The access hint is remembered
// on the file record.
func (s *Session) ResolveOpen(path string, access AccessIntent) (OpenResult, error) {
	fixed, forKey := s.fixForKey(path)
	key := pathkey.FromPath(forKey)

	name, size, closeID, err := s.rpcResolveOpen(fixed, key, access)
	if err != nil {
		return OpenResult{}, err
	}
	s.files.SetLastAccess(key, access)
	return OpenResult{BackingName: name, Size: size, CloseID: closeID}, nil
}

// CheckRemapping probes the coordinator for file-table staleness: a cheap
// exchange whose only effect is pulling any pending file-table delta.
func (s *Session) CheckRemapping(path string) error {
	fixed, forKey := s.fixForKey(path)
	return s.rpcCheckRemapping(fixed, pathkey.FromPath(forKey))
}

// ResolveEntryOffset answers "does this path exist, and at which table
// offset" for a normalized absolute path whose key the caller has already
// computed. The fast path is a purely local tri-state lookup; only the Maybe
// outcome lists the relevant directory remotely and re-queries. Not found is
// InvalidOffset; directory answers carry DirectoryBit. A failed exchange is
// an error, never a not-found.
func (s *Session) ResolveEntryOffset(entryKey pathkey.Key, path string, assumeDirectory bool) (uint32, error) {
	nameForKey := pathkey.ForKey(path, s.caseInsensitive)
	if nameForKey == "/" {
		assumeDirectory = true
	}

	exists, offset := s.dirs.EntryExists(entryKey, nameForKey, assumeDirectory)
	if exists != ExistsMaybe {
		s.metrics.LookupResolved("local")
		return offset, nil
	}
	s.metrics.LookupResolved("remote")

	// The directory to list: the path itself when the caller asserts it is a
	// directory, its parent otherwise.
	listPath, listForKey := path, nameForKey
	if !assumeDirectory {
		var ok bool
		listPath, _, ok = pathkey.Split(path)
		if !ok {
			return InvalidOffset, fmt.Errorf("no path separator in %q", path)
		}
		listForKey, _, _ = pathkey.Split(nameForKey)
	}
	hash := pathkey.NewDirHash(listForKey)

	tableOffset, err := s.rpcListDirectory(hash.Key, listPath)
	if err != nil {
		return InvalidOffset, fmt.Errorf("list directory %q: %w", listPath, err)
	}
	if tableOffset == InvalidTableOffset {
		return InvalidOffset, nil
	}

	return s.dirs.Lookup(hash, entryKey, assumeDirectory), nil
}

// ResolveFullName resolves a path into the name the tool should see. Paths
// that are not absolute pass through to the coordinator unresolved (no key).
// searchPaths carries loader search directories for library-style lookups.
// With wantVirtualName the returned name is the logical (virtual) one;
// otherwise it is the real backing path and the virtual name is consumed for
// diagnostics only. The file table is synchronized from the response.
func (s *Session) ResolveFullName(path string, wantVirtualName bool, searchPaths []string) (string, error) {
	real, virtual, err := s.ResolveFullNames(path, searchPaths)
	if err != nil {
		return "", err
	}
	if wantVirtualName {
		return virtual, nil
	}
	logger.Debug("Resolved %q -> %q (%q)", path, real, virtual)
	return real, nil
}

// ResolveFullNames is the variant that always returns both names explicitly.
func (s *Session) ResolveFullNames(path string, searchPaths []string) (real, virtual string, err error) {
	key := pathkey.Zero
	sendPath := path
	if pathkey.IsAbsolute(path) {
		var forKey string
		sendPath, forKey = s.fixForKey(path)
		key = pathkey.FromPath(forKey)
	}

	var fileSize uint32
	err = func() error {
		s.commMu.Lock()
		defer s.commMu.Unlock()

		var w wire.Writer
		w.WriteString(sendPath)
		w.WriteKey(key)
		var paths wire.Writer
		for _, p := range searchPaths {
			paths.WriteString(p)
		}
		if paths.Len() > math.MaxUint16 {
			return fmt.Errorf("search path block is %d bytes, limit %d", paths.Len(), math.MaxUint16)
		}
		w.WriteU16(uint16(paths.Len()))
		w.WriteRaw(paths.Bytes())

		r, err := s.roundTrip(rpc.MsgResolveFullName, &w)
		if err != nil {
			return err
		}
		if real, err = r.ReadString(); err != nil {
			return err
		}
		if virtual, err = r.ReadString(); err != nil {
			return err
		}
		if fileSize, err = r.ReadU32(); err != nil {
			return err
		}
		return s.takeFileDelta(r, fileSize)
	}()
	if err != nil {
		return "", "", fmt.Errorf("resolve full name %q: %w", path, err)
	}

	s.files.Parse(fileSize)
	return real, virtual, nil
}
