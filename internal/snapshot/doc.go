// Package snapshot provides SQLite-backed storage for document version
// snapshots.
//
// Each row is content-addressed: the canonical JSON of a document export
// is hashed with domain separation (see ContentHash) and the hash carries
// a UNIQUE constraint. Writing the same content twice inserts nothing,
// which keeps the versioning plugin idempotent across debounce replays
// and process restarts.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// All reads use ORDER BY revision ASC, id ASC so listings are stable
// across connections.
package snapshot
