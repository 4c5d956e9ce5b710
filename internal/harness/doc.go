// Package harness runs conformance scenarios against the store engine.
//
// A scenario is a YAML file listing store operations, the outcome expected
// of each and assertions on the resulting trace and tables. Each scenario
// runs against a fresh engine over an in-memory SQLite slot, with
// sequential ids ("id-1", "id-2", ...) and a deterministic clock, so traces
// and final states can be compared against golden snapshots.
//
// # Scenario Format
//
//	name: cascade_delete
//	description: "Deleting a project removes its features"
//	plan: plans/launch.cue        # optional CUE plan applied first
//	setup:
//	  - action: Project.create
//	    args: { name: "Launch", purpose: "Ship v1" }
//	    as: p
//	flow:
//	  - invoke: Feature.create
//	    args: { project: $p, name: "Login" }
//	    as: login
//	  - invoke: Feature.delete
//	    args: { id: "missing" }
//	    expect: { case: not_found }
//	assertions:
//	  - type: final_state
//	    table: features
//	    where: { id: $login }
//	    expect: { name: "Login", category: "essential" }
//	  - type: consistent
//
// A string argument "$name" is replaced by the id bound with "as: name";
// plan files bind project keys and "project.feature" keys. A step without
// an expect clause must complete with case "ok"; failed operations
// complete with their engine error code.
//
// # Operations
//
// Project.create, Project.update, Project.delete, Feature.create,
// Feature.update, Feature.restore, Feature.move, Feature.delete,
// Dependency.add, Dependency.remove, Position.update and Store.reset.
//
// # Assertion Types
//
//   - trace_contains: an operation was invoked with matching args
//   - trace_order: operations were invoked in the given order
//   - trace_count: an operation was invoked exactly N times
//   - final_state: rows of a table match a count or expected fields
//   - consistent: the final state has no referential-integrity violations
//   - persisted: the SQLite slot holds exactly the final state
package harness
