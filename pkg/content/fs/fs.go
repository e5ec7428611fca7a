// Package fs implements the artifact store on the local filesystem.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/buildbeam/agentfs/pkg/content"
)

// Store keeps artifacts as plain files under a base directory, fanned out by
// the first two characters of the id so a large store does not put hundreds
// of thousands of entries in one directory.
type Store struct {
	basePath string
}

// New creates the base directory if needed and returns the store.
func New(ctx context.Context, basePath string) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) path(id content.ID) (string, error) {
	str := string(id)
	if str == "" || strings.ContainsAny(str, "/\\") {
		return "", fmt.Errorf("%q: %w", str, content.ErrInvalidID)
	}
	fan := "00"
	if len(str) >= 2 {
		fan = str[:2]
	}
	return filepath.Join(s.basePath, fan, str), nil
}

func (s *Store) Put(ctx context.Context, id content.ID, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	target, err := s.path(id)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("create fanout directory: %w", err)
	}

	// Write to a temp name and rename so readers never observe a partial
	// artifact.
	tmp := target + ".tmp-" + uuid.NewString()
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create artifact temp file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("write artifact %s: %w", id, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("publish artifact %s: %w", id, err)
	}
	return n, nil
}

func (s *Store) Get(ctx context.Context, id content.ID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := s.path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", id, content.ErrNotFound)
		}
		return nil, fmt.Errorf("open artifact %s: %w", id, err)
	}
	return f, nil
}

func (s *Store) Stat(ctx context.Context, id content.ID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	target, err := s.path(id)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%s: %w", id, content.ErrNotFound)
		}
		return 0, fmt.Errorf("stat artifact %s: %w", id, err)
	}
	return info.Size(), nil
}

func (s *Store) Delete(ctx context.Context, id content.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete artifact %s: %w", id, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]content.ID, error) {
	var ids []content.ID
	fans, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("list artifact directory: %w", err)
	}
	for _, fan := range fans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !fan.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(s.basePath, fan.Name()))
		if err != nil {
			return nil, fmt.Errorf("list fanout %s: %w", fan.Name(), err)
		}
		for _, e := range entries {
			if !e.IsDir() && !strings.Contains(e.Name(), ".tmp-") {
				ids = append(ids, content.ID(e.Name()))
			}
		}
	}
	return ids, nil
}
