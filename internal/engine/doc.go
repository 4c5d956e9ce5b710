// Package engine implements the featureplan store engine.
//
// The engine owns the entity tables (projects, features, dependencies,
// feature orders, node positions) and is the only code allowed to change
// them. Every operation derives a complete next state from the current one
// and swaps it in as a single step, so readers never observe a partially
// applied cascade.
//
// ARCHITECTURE:
//
// Copy-on-write tables:
// A model.State is never modified once it is published. A mutation clones
// only the tables it touches and shares the rest with the previous state.
// Snapshot() hands out the published state without copying.
//
// Transition Flow:
// 1. Caller invokes an operation (CreateProject, DeleteFeature, ...)
// 2. The operation validates its input against the current state
// 3. A next state is built with every cascade already applied
// 4. The next state is published and the revision advances
// 5. The full state is handed to the Persister
// 6. Subscribers of the changed tables are notified
//
// A validation failure returns a typed *Error and leaves the state
// untouched. A persistence failure never rolls back the in-memory state; it
// is logged and reported through PersistErr.
//
// CRITICAL PATTERNS:
//
// Single writer: mutations are serialised by a mutex. Reads are lock-free.
//
// Notifications are delivered after the lock is released, so subscribers
// may call selectors or issue further mutations.
//
// Feature history: UpdateFeature is the only place history entries are
// created. Callers pass the edited feature; the engine diffs the editable
// fields and records the previous values when something changed.
package engine
