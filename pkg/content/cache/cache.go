// Package cache layers a local artifact store over an optional remote one
// and keeps a badger index of access times so the local tier can be trimmed
// to a size budget.
//
// Index layout:
//
//	e:<id> -> access time (8 bytes LE unix nano) + size (8 bytes LE)
package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/buildbeam/agentfs/internal/logger"
	"github.com/buildbeam/agentfs/pkg/content"
)

const entryPrefix = "e:"

// Cache is a content.Store that serves artifacts from a local tier and
// falls back to an optional remote tier on miss.
type Cache struct {
	local  content.Store
	remote content.Store
	db     *badger.DB
}

// New opens the badger index at indexDir. remote may be nil for a purely
// local cache.
func New(local content.Store, remote content.Store, indexDir string) (*Cache, error) {
	opts := badger.DefaultOptions(indexDir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}
	return &Cache{local: local, remote: remote, db: db}, nil
}

// Close releases the badger index. The underlying stores are not closed.
func (c *Cache) Close() error {
	return c.db.Close()
}

func entryKey(id content.ID) []byte {
	return append([]byte(entryPrefix), id...)
}

func encodeEntry(atime time.Time, size int64) []byte {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(atime.UnixNano()))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(size))
	return buf[:]
}

func decodeEntry(val []byte) (atime time.Time, size int64, err error) {
	if len(val) != 16 {
		return time.Time{}, 0, fmt.Errorf("cache index entry has %d bytes, want 16", len(val))
	}
	atime = time.Unix(0, int64(binary.LittleEndian.Uint64(val[0:8])))
	size = int64(binary.LittleEndian.Uint64(val[8:16]))
	return atime, size, nil
}

func (c *Cache) touch(id content.ID, size int64) {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(id), encodeEntry(time.Now(), size))
	})
	if err != nil {
		logger.Warn("Cache index update failed for %s: %v", id, err)
	}
}

func (c *Cache) forget(id content.ID) {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(entryKey(id))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		logger.Warn("Cache index delete failed for %s: %v", id, err)
	}
}

func (c *Cache) Put(ctx context.Context, id content.ID, r io.Reader) (int64, error) {
	n, err := c.local.Put(ctx, id, r)
	if err != nil {
		return 0, err
	}
	c.touch(id, n)
	return n, nil
}

func (c *Cache) Get(ctx context.Context, id content.ID) (io.ReadCloser, error) {
	rc, err := c.local.Get(ctx, id)
	if err == nil {
		if size, serr := c.local.Stat(ctx, id); serr == nil {
			c.touch(id, size)
		}
		return rc, nil
	}
	if !errors.Is(err, content.ErrNotFound) || c.remote == nil {
		return nil, err
	}

	remote, err := c.remote.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	defer remote.Close()

	data, err := io.ReadAll(remote)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact %s: %w", id, err)
	}
	if _, err := c.local.Put(ctx, id, bytes.NewReader(data)); err != nil {
		logger.Warn("Cache fill failed for %s: %v", id, err)
	} else {
		c.touch(id, int64(len(data)))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *Cache) Stat(ctx context.Context, id content.ID) (int64, error) {
	size, err := c.local.Stat(ctx, id)
	if err == nil {
		return size, nil
	}
	if errors.Is(err, content.ErrNotFound) && c.remote != nil {
		return c.remote.Stat(ctx, id)
	}
	return 0, err
}

func (c *Cache) Delete(ctx context.Context, id content.ID) error {
	if err := c.local.Delete(ctx, id); err != nil && !errors.Is(err, content.ErrNotFound) {
		return err
	}
	c.forget(id)
	return nil
}

func (c *Cache) List(ctx context.Context) ([]content.ID, error) {
	return c.local.List(ctx)
}

type trimCandidate struct {
	id    content.ID
	atime time.Time
	size  int64
}

// Trim evicts least recently used artifacts from the local tier until its
// indexed size is at or below maxBytes. Returns the number of bytes evicted.
func (c *Cache) Trim(ctx context.Context, maxBytes int64) (int64, error) {
	var candidates []trimCandidate
	var total int64

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := content.ID(item.Key()[len(entryPrefix):])
			err := item.Value(func(val []byte) error {
				atime, size, err := decodeEntry(val)
				if err != nil {
					return err
				}
				candidates = append(candidates, trimCandidate{id: id, atime: atime, size: size})
				total += size
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan cache index: %w", err)
	}
	if total <= maxBytes {
		return 0, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].atime.Before(candidates[j].atime)
	})

	var evicted int64
	for _, cand := range candidates {
		if total-evicted <= maxBytes {
			break
		}
		if err := ctx.Err(); err != nil {
			return evicted, err
		}
		if err := c.local.Delete(ctx, cand.id); err != nil && !errors.Is(err, content.ErrNotFound) {
			logger.Warn("Cache eviction of %s failed: %v", cand.id, err)
			continue
		}
		c.forget(cand.id)
		evicted += cand.size
	}
	logger.Debug("Cache trim evicted %d bytes (%d indexed, budget %d)", evicted, total, maxBytes)
	return evicted, nil
}
