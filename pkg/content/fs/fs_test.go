package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildbeam/agentfs/pkg/content"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), t.TempDir())
	require.NoError(t, err)
	return s
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n, err := s.Put(ctx, "abcdef", strings.NewReader("artifact bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("artifact bytes")), n)

	rc, err := s.Get(ctx, "abcdef")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "artifact bytes", string(data))
}

func TestStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Put(ctx, "abcdef", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "abcdef", strings.NewReader("second"))
	require.NoError(t, err)

	size, err := s.Stat(ctx, "abcdef")
	require.NoError(t, err)
	assert.Equal(t, int64(len("second")), size)
}

func TestStore_Fanout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(ctx, dir)
	require.NoError(t, err)

	_, err = s.Put(ctx, "abcdef", strings.NewReader("x"))
	require.NoError(t, err)

	// Artifacts fan out under the first two characters of the id.
	_, err = os.Stat(filepath.Join(dir, "ab", "abcdef"))
	assert.NoError(t, err)
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, content.ErrNotFound)

	_, err = s.Stat(ctx, "missing")
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestStore_InvalidID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Put(ctx, "", strings.NewReader("x"))
	assert.ErrorIs(t, err, content.ErrInvalidID)

	_, err = s.Get(ctx, "../escape")
	assert.ErrorIs(t, err, content.ErrInvalidID)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Put(ctx, "abcdef", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "abcdef"))

	_, err = s.Stat(ctx, "abcdef")
	assert.ErrorIs(t, err, content.ErrNotFound)

	// Deleting an unknown id is a no-op.
	assert.NoError(t, s.Delete(ctx, "abcdef"))
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Put(ctx, "aa1", strings.NewReader("1"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "bb2", strings.NewReader("2"))
	require.NoError(t, err)

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []content.ID{"aa1", "bb2"}, ids)
}
