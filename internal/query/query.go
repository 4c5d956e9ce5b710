// Package query filters features with expr expressions.
//
// A filter is a boolean expression over one feature, for example:
//
//	category == "essential" && priority == "high"
//	name contains "login" || dependencies > 2
//	history > 0 and updated_at > created_at
//
// Variables: id, project_id, name, description, category, priority, notes,
// created_at, updated_at (time values), history (number of history
// entries), dependencies (edges out), dependents (edges in). Unknown
// variables evaluate to nil.
package query

import (
	"fmt"
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/roach88/featureplan/internal/model"
)

// Filter is a compiled feature filter. Safe for concurrent use.
type Filter struct {
	expression string
	program    *exprvm.Program
}

// Compile parses and type-checks expression.
func Compile(expression string) (*Filter, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("filter expression must not be empty")
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(env(model.Feature{}, 0, 0)),
		exprlang.AllowUndefinedVariables(),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expression, err)
	}
	return &Filter{expression: expression, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.expression
}

// Match evaluates the filter against one feature with its edge counts.
func (f *Filter) Match(ft model.Feature, dependencies, dependents int) (bool, error) {
	out, err := exprlang.Run(f.program, env(ft, dependencies, dependents))
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q on feature %s: %w", f.expression, ft.ID, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("filter %q returned %T, want bool", f.expression, out)
	}
	return ok, nil
}

// Apply returns the features that match, in input order. Edge counts are
// taken from s.
func (f *Filter) Apply(features []model.Feature, s *model.State) ([]model.Feature, error) {
	dependents := make(map[string]int)
	for _, deps := range s.Dependencies {
		for _, d := range deps {
			dependents[d.DependsOnID]++
		}
	}

	out := []model.Feature{}
	for _, ft := range features {
		ok, err := f.Match(ft, len(s.Dependencies[ft.ID]), dependents[ft.ID])
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, ft)
		}
	}
	return out, nil
}

func env(f model.Feature, dependencies, dependents int) map[string]any {
	return map[string]any{
		"id":           f.ID,
		"project_id":   f.ProjectID,
		"name":         f.Name,
		"description":  f.Description,
		"category":     string(f.Category),
		"priority":     string(f.Priority),
		"notes":        f.Notes,
		"created_at":   f.CreatedAt,
		"updated_at":   f.UpdatedAt,
		"history":      len(f.History),
		"dependencies": dependencies,
		"dependents":   dependents,
	}
}
