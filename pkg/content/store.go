// Package content defines the artifact store: where materialized build
// outputs live between sessions.
//
// The session tables (pkg/session) are in-memory replicas rebuilt from the
// coordinator every session; the artifact store is the persistent half of the
// agent. Outputs the coordinator has materialized are kept locally so the
// next build reuses them without re-transfer, and can optionally be pushed to
// shared storage (S3) for other agents.
//
// Implementations must be safe for concurrent use. Writes to the same ID are
// last-write-wins; IDs are content-derived, so two writers racing on one ID
// are writing identical bytes.
package content

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// ID identifies one artifact. Coordinator-materialized artifacts use the
// coordinator's content key (hex); locally staged scratch outputs use a
// random ID until the coordinator assigns a key.
type ID string

// NewScratchID returns a fresh random ID for content that has no
// coordinator-assigned key yet.
func NewScratchID() ID {
	return ID(uuid.NewString())
}

// Store is the artifact storage abstraction. Backends: local filesystem,
// memory (tests), and S3-compatible object storage.
type Store interface {
	// Put stores the artifact, replacing any previous content under id, and
	// returns the number of bytes written.
	Put(ctx context.Context, id ID, r io.Reader) (int64, error)

	// Get opens an artifact for reading. The caller closes the reader.
	// Returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id ID) (io.ReadCloser, error)

	// Stat returns an artifact's size. Returns ErrNotFound for unknown ids.
	Stat(ctx context.Context, id ID) (int64, error)

	// Delete removes an artifact. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, id ID) error

	// List returns all stored ids. Order is unspecified.
	List(ctx context.Context) ([]ID, error)
}
