// Package session implements the agent-side virtual filesystem cache.
//
// A session owns two tables that partially replicate the coordinator's view
// of the project's files: the mapped file table (per-file metadata) and the
// directory table (per-directory listings). Both are synchronized through an
// append-only byte stream; each table remembers the cursor up to which it has
// parsed, and every RPC response that carries a new table size triggers an
// incremental parse of just the delta. Parsing is idempotent and never
// rewinds, so redundant parse calls from concurrent resolution paths are
// safe and cheap.
//
// The resolution algorithms answer the intercepted process's filesystem
// questions from local table state whenever possible. A directory lookup is
// tri-state: definitely present, definitely absent, or unknown; only the
// unknown case pays for a coordinator round trip. All round trips are
// single-flight behind one communication lock, and the lock is released
// before table deltas are applied so table maintenance never serializes
// behind an in-flight exchange.
package session
