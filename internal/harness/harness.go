package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/roach88/featureplan/internal/engine"
	"github.com/roach88/featureplan/internal/planfile"
	"github.com/roach88/featureplan/internal/store"
	"github.com/roach88/featureplan/internal/testutil"
)

// Harness is the scenario execution engine. It runs scenarios against a
// real store engine with deterministic ids and timestamps.
type Harness struct {
	engine   *engine.Engine
	slot     *store.Adapter
	seq      *testutil.DeterministicClock
	bindings map[string]string
	logger   *slog.Logger
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
	driver string
}

// WithLogger sets the logger for scenario execution. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDriver selects the SQLite driver backing the scenario's slot.
func WithDriver(name string) Option {
	return func(c *runConfig) { c.driver = name }
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory SQLite slot. Ids are
// "id-1", "id-2", ... in generation order and timestamps advance one
// second per use from testutil.Epoch, so results are reproducible.
//
// Execution flow:
//  1. Open a fresh in-memory database and engine
//  2. Apply the plan file, if any
//  3. Execute setup steps
//  4. Execute flow steps with expect validation
//  5. Evaluate assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		driver: store.DriverCGO,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := store.Open(":memory:", store.WithDriver(cfg.driver))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewDeterministicClock()
	slot := store.NewAdapter(st, store.DefaultSlot,
		store.WithLogger(cfg.logger),
		store.WithNow(func() time.Time { return testutil.Epoch }),
	)

	ctx := context.Background()
	h := &Harness{
		engine: engine.New(ctx, slot,
			engine.WithLogger(cfg.logger),
			engine.WithNow(clock.Now),
			engine.WithIDGenerator(testutil.NewSequentialIDs("id")),
		),
		slot:     slot,
		seq:      testutil.NewDeterministicClock(),
		bindings: map[string]string{},
		logger:   cfg.logger,
	}

	result := NewResult()
	if scenario.Plan != "" {
		if err := h.applyPlan(ctx, scenario.Plan); err != nil {
			return nil, fmt.Errorf("failed to apply plan: %w", err)
		}
	}
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Ctx:      ctx,
		Engine:   h.engine,
		Slot:     slot,
		Bindings: h.bindings,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	result.Bindings = maps.Clone(h.bindings)
	result.State = h.engine.Snapshot()
	return result, nil
}

// applyPlan loads and applies a plan file. Project keys and
// "project.feature" keys become bindings.
func (h *Harness) applyPlan(ctx context.Context, path string) error {
	plan, err := planfile.Load(path)
	if err != nil {
		return err
	}
	applied, err := planfile.Apply(ctx, h.engine, plan)
	if err != nil {
		return err
	}
	maps.Copy(h.bindings, applied.Projects)
	maps.Copy(h.bindings, applied.Features)
	h.logger.Info("plan applied",
		"projects", len(applied.Projects),
		"features", len(applied.Features),
		"dependencies", applied.Dependencies)
	return nil
}

// executeSetup runs all setup steps. Setup steps must succeed.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep, result *Result) error {
	for i, step := range setup {
		out, err := h.invoke(ctx, step.Action, step.Args, step.As, result)
		if err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Action, err)
		}
		if out.Case != CaseOK {
			return fmt.Errorf("setup step %d (%s): completed with %s: %v", i, step.Action, out.Case, out.Result["message"])
		}
	}
	return nil
}

// executeFlow runs all flow steps and validates expect clauses. A step
// without an expect clause must complete with "ok".
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		out, err := h.invoke(ctx, step.Invoke, step.Args, step.As, result)
		if err != nil {
			return fmt.Errorf("flow step %d (%s): %w", i, step.Invoke, err)
		}

		want := &ExpectClause{Case: CaseOK}
		if step.Expect != nil {
			want = step.Expect
		}
		if out.Case != want.Case {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected case %q, got %q (%v)",
				i, step.Invoke, want.Case, out.Case, out.Result["message"]))
			continue
		}
		if len(want.Result) > 0 {
			expected, err := h.resolveMap(want.Result)
			if err != nil {
				return fmt.Errorf("flow step %d (%s): expect: %w", i, step.Invoke, err)
			}
			if !matchArgs(out.Result, expected) {
				result.AddError(fmt.Sprintf("flow[%d] %s: expected result %v, got %v",
					i, step.Invoke, expected, out.Result))
			}
		}

		h.logger.Info("flow step completed",
			"step", i,
			"action", step.Invoke,
			"case", out.Case,
			"revision", h.engine.Revision(),
		)
	}
	return nil
}

// invoke resolves args, runs the action and records both trace events.
// The returned error is a scenario error (bad reference or arguments); an
// engine error becomes the completion case.
func (h *Harness) invoke(ctx context.Context, name string, raw map[string]any, as string, result *Result) (TraceEvent, error) {
	fn, ok := actions[name]
	if !ok {
		return TraceEvent{}, fmt.Errorf("unknown action %q", name)
	}
	args, err := h.resolveMap(raw)
	if err != nil {
		return TraceEvent{}, err
	}
	result.AddInvocationTrace(name, args, h.seq.Next())

	out, err := fn(ctx, h.engine, args)
	completion := TraceEvent{Case: CaseOK, Result: out}
	var engErr *engine.Error
	switch {
	case errors.As(err, &engErr):
		completion = TraceEvent{Case: string(engErr.Code), Result: map[string]any{"message": engErr.Message}}
	case err != nil:
		return TraceEvent{}, err
	}
	result.AddCompletionTrace(name, completion.Case, completion.Result, h.seq.Next())

	if as != "" && completion.Case == CaseOK {
		id, _ := out["id"].(string)
		if id == "" {
			return TraceEvent{}, fmt.Errorf("as %q: %s returns no id", as, name)
		}
		h.bindings[as] = id
	}
	return completion, nil
}

// resolveMap replaces "$name" references in m with bound ids.
func (h *Harness) resolveMap(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		r, err := h.resolve(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = r
	}
	return out, nil
}

func (h *Harness) resolve(v any) (any, error) {
	switch v := v.(type) {
	case string:
		return resolveRef(v, h.bindings)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			r, err := h.resolve(e)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]any:
		return h.resolveMap(v)
	}
	return v, nil
}

// resolveRef resolves "$name" to its binding. "$$" escapes a literal "$".
func resolveRef(s string, bindings map[string]string) (string, error) {
	if !strings.HasPrefix(s, "$") {
		return s, nil
	}
	if strings.HasPrefix(s, "$$") {
		return s[1:], nil
	}
	id, ok := bindings[s[1:]]
	if !ok {
		return "", fmt.Errorf("unbound reference %q", s)
	}
	return id, nil
}
