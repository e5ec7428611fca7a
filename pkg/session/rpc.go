package session

import (
	"fmt"
	"time"

	"github.com/buildbeam/agentfs/internal/logger"
	"github.com/buildbeam/agentfs/internal/protocol/rpc"
	"github.com/buildbeam/agentfs/internal/protocol/wire"
	"github.com/buildbeam/agentfs/pkg/pathkey"
)

// This file holds the session's RPC exchanges. Every exchange follows the
// same shape: take the communication lock, serialize the request, round-trip,
// deserialize the response fields, pull any table delta bytes out of the
// response tail, release the lock, and only then parse the deltas under the
// table locks. A channel failure surfaces as an error for that one call and
// is never retried here.

// roundTrip sends one framed exchange. Caller holds commMu.
func (s *Session) roundTrip(msgType byte, w *wire.Writer) (*wire.Reader, error) {
	start := time.Now()
	resp, err := s.channel.RoundTrip(msgType, w.Bytes())
	s.metrics.ExchangeCompleted(rpc.Name(msgType), time.Since(start).Seconds(), err == nil)
	if err != nil {
		return nil, err
	}
	return wire.NewReader(resp), nil
}

// takeFileDelta reads the file-table delta bytes out of a response tail and
// appends them to the stream. Caller holds commMu, which keeps stream length
// and delta boundaries consistent across exchanges.
func (s *Session) takeFileDelta(r *wire.Reader, tableSize uint32) error {
	return s.takeDelta(r, tableSize, s.files.StreamLen(), s.files.Append, "file")
}

func (s *Session) takeDirDelta(r *wire.Reader, tableSize uint32) error {
	return s.takeDelta(r, tableSize, s.dirs.StreamLen(), s.dirs.Append, "directory")
}

func (s *Session) takeDelta(r *wire.Reader, tableSize uint32, have int, appendFn func([]byte), table string) error {
	if int(tableSize) <= have {
		return nil
	}
	n := int(tableSize) - have
	delta, err := r.ReadRaw(n)
	if err != nil {
		return fmt.Errorf("read %s table delta (%d bytes): %w", table, n, err)
	}
	// Copy: the reader aliases the response buffer, the stream outlives it.
	appendFn(append([]byte(nil), delta...))
	s.metrics.TableDelta(table, n)
	return nil
}

// rpcResolveOpen is the resolve-open exchange: path plus intent in, backing
// name, size, and close token out. Both tables are synchronized from the
// response.
func (s *Session) rpcResolveOpen(path string, key pathkey.Key, access AccessIntent) (name string, size uint64, closeID uint32, err error) {
	var fileSize, dirSize uint32
	err = func() error {
		s.commMu.Lock()
		defer s.commMu.Unlock()

		var w wire.Writer
		w.WriteString(path)
		w.WriteKey(key)
		w.WriteU8(byte(access))
		r, err := s.roundTrip(rpc.MsgResolveOpen, &w)
		if err != nil {
			return err
		}
		if name, err = r.ReadString(); err != nil {
			return err
		}
		if size, err = r.ReadU64(); err != nil {
			return err
		}
		if closeID, err = r.ReadU32(); err != nil {
			return err
		}
		if fileSize, err = r.ReadU32(); err != nil {
			return err
		}
		if dirSize, err = r.ReadU32(); err != nil {
			return err
		}
		if err := s.takeFileDelta(r, fileSize); err != nil {
			return err
		}
		return s.takeDirDelta(r, dirSize)
	}()
	if err != nil {
		return "", 0, 0, fmt.Errorf("resolve open %q: %w", path, err)
	}

	s.files.Parse(fileSize)
	s.dirs.Parse(dirSize)
	return name, size, closeID, nil
}

// rpcCheckRemapping is the cheap staleness probe: only the file table size
// comes back.
func (s *Session) rpcCheckRemapping(path string, key pathkey.Key) error {
	var fileSize uint32
	err := func() error {
		s.commMu.Lock()
		defer s.commMu.Unlock()

		var w wire.Writer
		w.WriteString(path)
		w.WriteKey(key)
		r, err := s.roundTrip(rpc.MsgCheckRemapping, &w)
		if err != nil {
			return err
		}
		if fileSize, err = r.ReadU32(); err != nil {
			return err
		}
		return s.takeFileDelta(r, fileSize)
	}()
	if err != nil {
		return fmt.Errorf("check remapping %q: %w", path, err)
	}

	s.files.Parse(fileSize)
	return nil
}

// rpcListDirectory asks the coordinator to append dirPath's listing to the
// directory table stream. It returns the directory's table offset, or
// InvalidTableOffset when the directory does not exist.
func (s *Session) rpcListDirectory(dirKey pathkey.Key, dirPath string) (uint32, error) {
	var dirSize, tableOffset uint32
	err := func() error {
		s.commMu.Lock()
		defer s.commMu.Unlock()

		var w wire.Writer
		w.WriteString(dirPath)
		w.WriteKey(dirKey)
		r, err := s.roundTrip(rpc.MsgListDirectory, &w)
		if err != nil {
			return err
		}
		if dirSize, err = r.ReadU32(); err != nil {
			return err
		}
		if tableOffset, err = r.ReadU32(); err != nil {
			return err
		}
		return s.takeDirDelta(r, dirSize)
	}()
	if err != nil {
		return InvalidTableOffset, fmt.Errorf("list directory %q: %w", dirPath, err)
	}

	s.dirs.Parse(dirSize)
	return tableOffset, nil
}

// CloseFile reports a closed handle back to the coordinator: the close token
// from resolve-open, delete-on-close and success flags, the memory mapping
// handle and bytes written through it, and the new name when the file was
// renamed on close. The directory table is synchronized from the response.
func (s *Session) CloseFile(handleName string, closeID uint32, deleteOnClose, success bool, mappingHandle, mappingWritten uint64, newName string) error {
	var dirSize uint32
	err := func() error {
		s.commMu.Lock()
		defer s.commMu.Unlock()

		var w wire.Writer
		w.WriteString(handleName)
		w.WriteU32(closeID)
		w.WriteBool(deleteOnClose)
		w.WriteBool(success)
		w.WriteU64(mappingHandle)
		w.WriteU64(mappingWritten)
		if newName != "" {
			fixed, forKey := s.fixForKey(newName)
			w.WriteKey(pathkey.FromPath(forKey))
			w.WriteString(fixed)
		} else {
			w.WriteKey(pathkey.Zero)
		}
		r, err := s.roundTrip(rpc.MsgCloseFile, &w)
		if err != nil {
			return err
		}
		if dirSize, err = r.ReadU32(); err != nil {
			return err
		}
		return s.takeDirDelta(r, dirSize)
	}()
	if err != nil {
		return fmt.Errorf("close file %q: %w", handleName, err)
	}

	s.dirs.Parse(dirSize)
	return nil
}

// WriteLog forwards a log line to the coordinator's session log.
func (s *Session) WriteLog(text string, printInSession, isError bool) error {
	s.commMu.Lock()
	defer s.commMu.Unlock()

	var w wire.Writer
	w.WriteBool(printInSession)
	w.WriteBool(isError)
	w.WriteString(text)
	_, err := s.roundTrip(rpc.MsgLog, &w)
	if err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// DrainWrittenFiles performs the initial written-files drain: pages of
// metadata for files the coordinator had already materialized before this
// session asked, repeated until the overflow flag clears.
func (s *Session) DrainWrittenFiles() error {
	s.commMu.Lock()
	defer s.commMu.Unlock()
	return s.drainWrittenFilesLocked(true)
}

// drainWrittenFilesLocked loops drain pages. Caller holds commMu.
func (s *Session) drainWrittenFilesLocked(initial bool) error {
	for {
		var w wire.Writer
		w.WriteBool(initial)
		r, err := s.roundTrip(rpc.MsgGetWrittenFiles, &w)
		if err != nil {
			return fmt.Errorf("drain written files: %w", err)
		}
		done, err := s.mergeWrittenFiles(r)
		if err != nil {
			return fmt.Errorf("drain written files: %w", err)
		}
		s.metrics.DrainPage()
		if done {
			return nil
		}
	}
}

// RefreshTables is the incremental drain-and-refresh: one update-tables
// exchange carrying both table sizes and the first written-files page,
// further pages as needed, then a single parse of each table once all sizes
// are known.
func (s *Session) RefreshTables() error {
	var dirSize, fileSize uint32
	err := func() error {
		s.commMu.Lock()
		defer s.commMu.Unlock()

		var w wire.Writer
		w.WriteBool(false)
		r, err := s.roundTrip(rpc.MsgUpdateTables, &w)
		if err != nil {
			return err
		}
		if dirSize, err = r.ReadU32(); err != nil {
			return err
		}
		if fileSize, err = r.ReadU32(); err != nil {
			return err
		}
		done, err := s.mergeWrittenFiles(r)
		if err != nil {
			return err
		}
		if err := s.takeDirDelta(r, dirSize); err != nil {
			return err
		}
		if err := s.takeFileDelta(r, fileSize); err != nil {
			return err
		}
		if !done {
			return s.drainWrittenFilesLocked(false)
		}
		return nil
	}()
	if err != nil {
		return fmt.Errorf("refresh tables: %w", err)
	}

	s.dirs.Parse(dirSize)
	s.files.Parse(fileSize)
	return nil
}

// mergeWrittenFiles decodes one page of "file became available" records and
// upserts them into the file table. It returns true when the page was final
// (no overflow).
//
// A record whose key already holds a live memory mapping invalidates that
// mapping rather than mutating it: the new backing is authoritative and a
// stale view must not be read through.
func (s *Session) mergeWrittenFiles(r *wire.Reader) (bool, error) {
	count, err := r.ReadU32()
	if err != nil {
		return false, err
	}
	overflow, err := r.ReadByte()
	if err != nil {
		return false, err
	}

	s.files.mu.Lock()
	defer s.files.mu.Unlock()
	for ; count > 0; count-- {
		key, err := r.ReadKey()
		if err != nil {
			return false, err
		}
		isInTemp, err := r.ReadBool()
		if err != nil {
			return false, err
		}
		originalName, err := r.ReadString()
		if err != nil {
			return false, err
		}
		if isInTemp {
			originalName = s.systemTemp + "/" + originalName
		}
		backedName, err := r.ReadString()
		if err != nil {
			return false, err
		}
		mappingHandle, err := r.ReadVarint()
		if err != nil {
			return false, err
		}
		fileSize, err := r.ReadVarint()
		if err != nil {
			return false, err
		}
		if mappingHandle != 0 {
			backedName = mappingToken(mappingHandle)
		}

		rec, ok := s.files.lookup[key]
		if !ok {
			rec = &FileRecord{Key: key}
			s.files.lookup[key] = rec
		}
		rec.OriginalName = originalName
		rec.Name = backedName
		rec.Size = fileSize
		rec.Created = true

		logger.Debug("Written file: %s (backing %s, %d bytes)", rec.OriginalName, rec.Name, rec.Size)

		if mf := rec.MemoryFile; mf != nil {
			if rec.RefCount > 0 {
				logger.Debug("Written file %s has a mapped view with %d open handles; dropping the mapping in favor of the received backing",
					rec.OriginalName, rec.RefCount)
			}
			mf.Invalidate()
			rec.MemoryFile = nil
		}
	}
	return overflow == 0, nil
}
