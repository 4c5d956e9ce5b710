// Package model defines the entity tables of a feature plan.
//
// This package contains type definitions and pure table helpers only. The
// engine, store and every collaborator import model; model imports nothing
// internal.
//
// Key design constraints:
//   - Tables are replaced wholesale on every mutation (copy-on-write)
//   - A State handed out by the engine is shared and MUST NOT be modified
//   - JSON tags follow the persisted snapshot shape (project_id, depends_on_id,
//     createdAt ...) so snapshots round-trip losslessly
//   - Timestamps are stored in UTC
package model
