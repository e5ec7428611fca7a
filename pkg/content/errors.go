package content

import "errors"

// ErrNotFound is returned by Get and Stat for ids the store does not hold.
var ErrNotFound = errors.New("content not found")

// ErrInvalidID is returned for ids that cannot be mapped onto the backend
// (empty, or containing path separators for path-based backends).
var ErrInvalidID = errors.New("invalid content id")
