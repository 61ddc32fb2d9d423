// Package kvstore provides the flat key-value stores that back persistence.
//
// Values are opaque bytes (JSON documents in practice). There are no
// transactions; each Set replaces the value under its key.
//
// Three backends are available:
//
//   - Memory: in-process map, used by tests and the "memory" backend
//   - SQLite: a single kv table via modernc.org/sqlite (pure Go, no cgo)
//   - Pebble: an LSM directory via cockroachdb/pebble
//
// Open selects a backend by name:
//
//	kv, err := kvstore.Open("sqlite", "/home/me/.local/share/chorus/chorus.db")
//	defer kv.Close()
//
// Get returns ErrNotFound for an absent key.
package kvstore
