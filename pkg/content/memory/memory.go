// Package memory implements the artifact store in process memory, for tests
// and for ephemeral single-build agents.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/buildbeam/agentfs/pkg/content"
)

// Store holds artifacts in a map. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	blobs map[content.ID][]byte
}

func New() *Store {
	return &Store{blobs: make(map[content.ID][]byte)}
}

func (s *Store) Put(ctx context.Context, id content.ID, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if id == "" {
		return 0, content.ErrInvalidID
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read artifact %s: %w", id, err)
	}
	s.mu.Lock()
	s.blobs[id] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

func (s *Store) Get(ctx context.Context, id content.ID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, content.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Stat(ctx context.Context, id content.ID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	data, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%s: %w", id, content.ErrNotFound)
	}
	return int64(len(data)), nil
}

func (s *Store) Delete(ctx context.Context, id content.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.blobs, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) List(ctx context.Context) ([]content.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]content.ID, 0, len(s.blobs))
	for id := range s.blobs {
		ids = append(ids, id)
	}
	return ids, nil
}
