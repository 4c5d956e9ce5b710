// Package store persists a feature plan snapshot in a named key-value slot.
//
// The store has two layers:
//   - KV: a byte-oriented slot backend (SQLite, JSON files, or memory)
//   - Adapter: encodes the whole table set into a versioned envelope,
//     checksums it, and tolerates absent or corrupt slots on load
//
// # Snapshot Envelope
//
//	{"version": 1, "state": {"projects": {...}, "features": {...},
//	 "dependencies": {...}, "featureOrders": {...}, "nodePositions": {...}}}
//
// The checksum is stored next to the value (SQLite column or file record),
// never inside the envelope, so the envelope shape stays stable.
//
// # Load Tolerance
//
//   - Missing slot: absent, no warning
//   - Malformed JSON, checksum mismatch, unknown version: absent, logged warning
//   - Backend I/O failure: returned as an error; callers decide
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Two SQLite drivers are supported: "sqlite3" (github.com/mattn/go-sqlite3,
// cgo) and "sqlite" (modernc.org/sqlite, pure Go).
package store
