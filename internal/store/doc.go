// Package store provides a SQLite-backed library of research tree
// documents with revision history.
//
// Each save of a named tree appends a revision. A revision holds the full
// document: its node records and connection records, both in document
// order. Revisions of a tree are numbered by a per-tree sequence starting
// at 1; ordering never depends on wall-clock time.
//
// Saving content identical to the latest revision of the same tree is a
// no-op that returns the existing revision. Identity is the document
// content hash (document.Hash).
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - foreign_keys=ON: Revision rows own their node and connection rows
package store
