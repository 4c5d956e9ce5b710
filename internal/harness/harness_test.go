package harness

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/featureplan/internal/model"
	"github.com/roach88/featureplan/internal/store"
)

func TestRun_TestdataScenarios(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_PureDriver(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "example.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario, WithDriver(store.DriverPure))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BindsCreatedIDs(t *testing.T) {
	scenario := &Scenario{
		Name:        "bindings",
		Description: "Created ids are bound and resolved",
		Flow: []FlowStep{
			{Invoke: "Project.create", Args: map[string]any{"name": "P"}, As: "p"},
			{Invoke: "Feature.create", Args: map[string]any{"project": "$p", "name": "F"}, As: "f"},
		},
		Assertions: []Assertion{{Type: AssertConsistent}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, map[string]string{"p": "id-1", "f": "id-2"}, result.Bindings)

	require.Len(t, result.Trace, 4)
	assert.Equal(t, map[string]any{"project": "id-1", "name": "F"}, result.Trace[2].Args)
	assert.Equal(t, map[string]any{"id": "id-2"}, result.Trace[3].Result)
	assert.Equal(t, int64(4), result.Trace[3].Seq)

	f := result.State.Features["id-2"]
	assert.Equal(t, model.CategoryEssential, f.Category)
	assert.Equal(t, model.PriorityMedium, f.Priority)
}

func TestRun_UnexpectedCaseFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected",
		Description: "A failing step without expect fails the scenario",
		Flow: []FlowStep{
			{Invoke: "Project.delete", Args: map[string]any{"id": "ghost"}},
			{Invoke: "Project.create", Args: map[string]any{"name": "P"}, Expect: &ExpectClause{Case: "invalid"}},
		},
		Assertions: []Assertion{{Type: AssertConsistent}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], `expected case "ok", got "not_found"`)
	assert.Contains(t, result.Errors[1], `expected case "invalid", got "ok"`)
	assert.Equal(t, "not_found", result.Trace[1].Case)
	assert.Equal(t, "project does not exist", result.Trace[1].Result["message"])
}

func TestRun_ExpectResult(t *testing.T) {
	scenario := &Scenario{
		Name:        "expect_result",
		Description: "Expected results are compared as a subset",
		Flow: []FlowStep{
			{Invoke: "Project.create", Args: map[string]any{"name": "P"}, As: "p",
				Expect: &ExpectClause{Case: CaseOK, Result: map[string]any{"id": "id-1"}}},
			{Invoke: "Project.create", Args: map[string]any{"name": "Q"},
				Expect: &ExpectClause{Case: CaseOK, Result: map[string]any{"id": "$p"}}},
		},
		Assertions: []Assertion{{Type: AssertConsistent}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "flow[1] Project.create: expected result")
}

func TestRun_SetupFailureIsError(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_setup",
		Description: "Setup must succeed",
		Setup:       []ActionStep{{Action: "Feature.delete", Args: map[string]any{"id": "ghost"}}},
		Flow:        []FlowStep{{Invoke: "Store.reset"}},
		Assertions:  []Assertion{{Type: AssertConsistent}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completed with not_found")
}

func TestRun_ScenarioErrors(t *testing.T) {
	tests := []struct {
		name   string
		step   FlowStep
		errMsg string
	}{
		{"unbound reference", FlowStep{Invoke: "Project.delete", Args: map[string]any{"id": "$nope"}}, `unbound reference "$nope"`},
		{"unknown argument", FlowStep{Invoke: "Project.delete", Args: map[string]any{"identifier": "x"}}, "decode args"},
		{"unknown action", FlowStep{Invoke: "Cart.addItem"}, `unknown action "Cart.addItem"`},
		{"bind without id", FlowStep{Invoke: "Store.reset", As: "r"}, "returns no id"},
		{"non-finite position", FlowStep{Invoke: "Position.update", Args: map[string]any{"node": "n1", "x": math.NaN(), "y": 0.0}}, "is not finite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := &Scenario{
				Name:        tt.name,
				Description: tt.name,
				Flow:        []FlowStep{tt.step},
				Assertions:  []Assertion{{Type: AssertConsistent}},
			}
			_, err := Run(scenario)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRun_EscapedDollar(t *testing.T) {
	scenario := &Scenario{
		Name:        "escaped",
		Description: "$$ produces a literal dollar",
		Flow: []FlowStep{
			{Invoke: "Project.create", Args: map[string]any{"name": "$$5 plan"}, As: "p"},
		},
		Assertions: []Assertion{{
			Type:   AssertFinalState,
			Table:  "projects",
			Where:  map[string]any{"id": "$p"},
			Expect: map[string]any{"name": "$$5 plan"},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "$5 plan", result.State.Projects["id-1"].Name)
}

func TestResolveRef(t *testing.T) {
	bindings := map[string]string{"p": "id-1"}

	got, err := resolveRef("$p", bindings)
	require.NoError(t, err)
	assert.Equal(t, "id-1", got)

	got, err = resolveRef("plain", bindings)
	require.NoError(t, err)
	assert.Equal(t, "plain", got)

	got, err = resolveRef("$$p", bindings)
	require.NoError(t, err)
	assert.Equal(t, "$p", got)

	_, err = resolveRef("$q", bindings)
	assert.Error(t, err)
}
