// Package planfile loads declarative project plans written in CUE and
// applies them to the store engine.
//
// A plan declares projects, their features and the dependencies between
// them by key:
//
//	project: launch: {
//		name:    "Launch"
//		purpose: "Ship v1"
//		feature: login: {
//			category:   "essential"
//			priority:   "high"
//			depends_on: ["db"]
//		}
//		feature: db: name: "Database"
//	}
//
// Names default to the key. Features are created in declaration order and
// that order becomes the project's feature order.
package planfile

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/featureplan/internal/model"
)

//go:embed schema.cue
var schemaSource string

// Plan is a parsed plan file.
type Plan struct {
	Projects []ProjectPlan
}

// ProjectPlan is one declared project.
type ProjectPlan struct {
	Key      string
	Name     string
	Purpose  string
	Features []FeaturePlan
}

// FeaturePlan is one declared feature. DependsOn holds feature keys of the
// same project.
type FeaturePlan struct {
	Key         string         `json:"-"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    model.Category `json:"category"`
	Priority    model.Priority `json:"priority"`
	Notes       string         `json:"notes"`
	DependsOn   []string       `json:"depends_on"`
}

// PlanError is a plan validation or decoding error with source position.
type PlanError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *PlanError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads a plan from a .cue file, or from every .cue file of a
// directory (one CUE package).
func Load(path string) (*Plan, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("plan not found: %w", err)
	}

	ctx := cuecontext.New()
	var v cue.Value
	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, fmt.Errorf("no CUE instances in %s", path)
		}
		if err := instances[0].Err; err != nil {
			return nil, fmt.Errorf("loading CUE files: %w", err)
		}
		v = ctx.BuildInstance(instances[0])
	} else {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading plan: %w", err)
		}
		v = ctx.CompileBytes(src, cue.Filename(path))
	}
	return decode(ctx, v)
}

// Parse reads a plan from CUE source. filename is used in error positions.
func Parse(src []byte, filename string) (*Plan, error) {
	ctx := cuecontext.New()
	return decode(ctx, ctx.CompileBytes(src, cue.Filename(filename)))
}

func decode(ctx *cue.Context, v cue.Value) (*Plan, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("plan schema: %w", err)
	}

	v = schema.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	plan := &Plan{}
	projects, err := v.LookupPath(cue.ParsePath("project")).Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for projects.Next() {
		p, err := decodeProject(projects.Label(), projects.Value())
		if err != nil {
			return nil, err
		}
		plan.Projects = append(plan.Projects, *p)
	}
	return plan, nil
}

func decodeProject(key string, v cue.Value) (*ProjectPlan, error) {
	var fields struct {
		Name    string `json:"name"`
		Purpose string `json:"purpose"`
	}
	if err := v.Decode(&fields); err != nil {
		return nil, formatCUEError(err)
	}
	p := &ProjectPlan{Key: key, Name: fields.Name, Purpose: fields.Purpose}
	if p.Name == "" {
		p.Name = key
	}

	features, err := v.LookupPath(cue.ParsePath("feature")).Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	keys := make(map[string]bool)
	for features.Next() {
		f := FeaturePlan{}
		if err := features.Value().Decode(&f); err != nil {
			return nil, formatCUEError(err)
		}
		f.Key = features.Label()
		if f.Name == "" {
			f.Name = f.Key
		}
		keys[f.Key] = true
		p.Features = append(p.Features, f)
	}

	for _, f := range p.Features {
		for _, dep := range f.DependsOn {
			field := fmt.Sprintf("project.%s.feature.%s.depends_on", key, f.Key)
			switch {
			case dep == f.Key:
				return nil, &PlanError{Field: field, Message: "a feature cannot depend on itself", Pos: v.Pos()}
			case !keys[dep]:
				return nil, &PlanError{Field: field, Message: fmt.Sprintf("unknown feature %q", dep), Pos: v.Pos()}
			}
		}
		if dup := duplicate(f.DependsOn); dup != "" {
			return nil, &PlanError{
				Field:   fmt.Sprintf("project.%s.feature.%s.depends_on", key, f.Key),
				Message: fmt.Sprintf("%q listed twice", dup),
				Pos:     v.Pos(),
			}
		}
	}
	return p, nil
}

func duplicate(keys []string) string {
	sorted := slices.Sorted(slices.Values(keys))
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return sorted[i]
		}
	}
	return ""
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &PlanError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
