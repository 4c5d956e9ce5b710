package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/featureplan/internal/engine"
	"github.com/roach88/featureplan/internal/model"
	"github.com/roach88/featureplan/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == "invocation" {
				fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.Action, event.Args)
			}
		}
	}
	return buf.String()
}

// assertTraceContains checks if the trace contains an invocation matching
// the specified action and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == "invocation" && event.Action == assertion.Action && matchArgs(event.Args, assertion.Args) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != "invocation" {
			continue
		}
		if slices.Contains(assertion.Actions, event.Action) && positions[event.Action] == 0 {
			positions[event.Action] = i + 1 // 1-indexed for readability
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev, curr := assertion.Actions[i-1], assertion.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the action was invoked exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == "invocation" && event.Action == assertion.Action {
			count++
		}
	}
	if count != *assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", *assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// tableRows flattens each table into rows of JSON field values. Derived
// fields: features carry history_count, dependency rows are single edges,
// feature order rows are {project_id, order} and position rows are
// {node_id, x, y}.
var tableRows = map[string]func(*model.State) []map[string]any{
	string(model.TableProjects): func(s *model.State) []map[string]any {
		return rows(inKeyOrder(s.Projects), nil)
	},
	string(model.TableFeatures): func(s *model.State) []map[string]any {
		return rows(inKeyOrder(s.Features), func(f model.Feature, row map[string]any) {
			row["history_count"] = float64(len(f.History))
		})
	},
	string(model.TableDependencies): func(s *model.State) []map[string]any {
		var edges []model.Dependency
		for _, deps := range inKeyOrder(s.Dependencies) {
			edges = append(edges, deps...)
		}
		return rows(edges, nil)
	},
	string(model.TableFeatureOrders): func(s *model.State) []map[string]any {
		var out []map[string]any
		for _, pid := range sortedKeys(s.FeatureOrders) {
			row, _ := normalize(map[string]any{"project_id": pid, "order": s.FeatureOrders[pid]}).(map[string]any)
			out = append(out, row)
		}
		return out
	},
	string(model.TableNodePositions): func(s *model.State) []map[string]any {
		var out []map[string]any
		for _, id := range sortedKeys(s.NodePositions) {
			p := s.NodePositions[id]
			out = append(out, map[string]any{"node_id": id, "x": p.X, "y": p.Y})
		}
		return out
	},
}

// rows converts items to generic rows, letting extra add derived fields.
func rows[T any](items []T, extra func(T, map[string]any)) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		row, _ := normalize(item).(map[string]any)
		if extra != nil {
			extra(item, row)
		}
		out = append(out, row)
	}
	return out
}

func inKeyOrder[V any](m map[string]V) []V {
	out := make([]V, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, m[k])
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// assertFinalState selects the rows of a table matching Where. With Count,
// the number of selected rows must match. With Expect, exactly one row
// must be selected and contain the expected fields.
func assertFinalState(s *model.State, assertion Assertion, bindings map[string]string) error {
	where, err := resolveAll(assertion.Where, bindings)
	if err != nil {
		return err
	}
	expect, err := resolveAll(assertion.Expect, bindings)
	if err != nil {
		return err
	}

	var selected []map[string]any
	for _, row := range tableRows[assertion.Table](s) {
		if matchArgs(row, where) {
			selected = append(selected, row)
		}
	}

	if assertion.Count != nil && len(selected) != *assertion.Count {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%d rows in %s where %s", *assertion.Count, assertion.Table, formatWhereClause(where)),
			Actual:   fmt.Sprintf("%d rows", len(selected)),
		}
	}
	if len(expect) == 0 {
		return nil
	}

	switch len(selected) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(where)),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	row := selected[0]
	for _, key := range sortedKeys(expect) {
		actual, exists := row[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("fields: %v", sortedKeys(row)),
			}
		}
		if !valuesEqual(actual, expect[key]) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v", key, expect[key]),
				Actual:   fmt.Sprintf("field %q = %v", key, actual),
			}
		}
	}
	return nil
}

func resolveAll(m map[string]any, bindings map[string]string) (map[string]any, error) {
	h := &Harness{bindings: bindings}
	return h.resolveMap(m)
}

// formatWhereClause creates a human-readable description of conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(where))
	for _, k := range sortedKeys(where) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// assertConsistent checks that no cross-table invariant is broken.
func assertConsistent(s *model.State) error {
	violations := s.Check()
	if len(violations) == 0 {
		return nil
	}
	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.String()
	}
	return &AssertionError{
		Type:     AssertConsistent,
		Expected: "no violations",
		Actual:   strings.Join(msgs, "; "),
	}
}

// assertPersisted checks that the slot holds exactly the in-memory state.
func assertPersisted(ctx context.Context, slot *store.Adapter, e *engine.Engine) error {
	saved, ok, err := slot.Load(ctx)
	if err != nil {
		return &AssertionError{Type: AssertPersisted, Expected: "readable slot", Actual: err.Error()}
	}
	if !ok {
		saved = model.NewState()
	}
	if !valuesEqual(saved, e.Snapshot()) {
		return &AssertionError{
			Type:     AssertPersisted,
			Expected: "persisted state equal to in-memory state",
			Actual:   "states differ",
		}
	}
	return nil
}

// matchArgs checks if actual contains all expected keys with equal values
// (subset match). Extra keys in actual are ignored.
func matchArgs(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, exists := actual[key]
		if !exists || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares two values by their JSON representation, so that
// YAML ints match float64 row values and structs match maps.
func valuesEqual(actual, expected any) bool {
	return reflect.DeepEqual(normalize(actual), normalize(expected))
}

func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// AssertionContext provides state access for evaluating assertions.
type AssertionContext struct {
	Ctx      context.Context
	Engine   *engine.Engine
	Slot     *store.Adapter
	Bindings map[string]string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			var args map[string]any
			if args, err = resolveAll(assertion.Args, actx.Bindings); err == nil {
				assertion.Args = args
				err = assertTraceContains(result.Trace, assertion)
			}
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(actx.Engine.Snapshot(), assertion, actx.Bindings)
		case AssertConsistent:
			err = assertConsistent(actx.Engine.Snapshot())
		case AssertPersisted:
			if actx.Slot == nil {
				err = fmt.Errorf("assertion[%d]: persisted requires a slot", i)
			} else {
				err = assertPersisted(actx.Ctx, actx.Slot, actx.Engine)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
