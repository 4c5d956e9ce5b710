package harness

import (
	"bytes"
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/featureplan/internal/engine"
	"github.com/roach88/featureplan/internal/model"
)

// action performs one store operation. The returned map is the completion
// result; create operations return {"id": ...}.
type action func(ctx context.Context, e *engine.Engine, args map[string]any) (map[string]any, error)

// actions maps operation names to their implementation.
var actions = map[string]action{
	"Project.create":    projectCreate,
	"Project.update":    projectUpdate,
	"Project.delete":    projectDelete,
	"Feature.create":    featureCreate,
	"Feature.update":    featureUpdate,
	"Feature.restore":   featureRestore,
	"Feature.move":      featureMove,
	"Feature.delete":    featureDelete,
	"Dependency.add":    dependencyAdd,
	"Dependency.remove": dependencyRemove,
	"Position.update":   positionUpdate,
	"Store.reset":       storeReset,
}

// decodeArgs decodes args into dst, rejecting unknown fields.
func decodeArgs(args map[string]any, dst any) error {
	data, err := yaml.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}

func created(id string) map[string]any {
	return map[string]any{"id": id}
}

func projectCreate(ctx context.Context, e *engine.Engine, args map[string]any) (map[string]any, error) {
	var a struct {
		Name    string `yaml:"name"`
		Purpose string `yaml:"purpose"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	id, err := e.CreateProject(ctx, a.Name, a.Purpose)
	if err != nil {
		return nil, err
	}
	return created(id), nil
}

func projectUpdate(ctx context.Context, e *engine.Engine, args map[string]any) (map[string]any, error) {
	var a struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Purpose     string `yaml:"purpose"`
		Description string `yaml:"description"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return nil, e.UpdateProject(ctx, model.Project{ID: a.ID, Name: a.Name, Purpose: a.Purpose, Description: a.Description})
}

func projectDelete(ctx context.Context, e *engine.Engine, args map[string]any) (map[string]any, error) {
	var a struct {
		ID string `yaml:"id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return nil, e.DeleteProject(ctx, a.ID)
}

type featureArgs struct {
	ID          string `yaml:"id"`
	Project     string `yaml:"project"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Priority    string `yaml:"priority"`
	Notes       string `yaml:"notes"`
}

func featureCreate(ctx context.Context, e *engine.Engine, args map[string]any) (map[string]any, error) {
	var a featureArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	id, err := e.CreateFeature(ctx, a.Project, engine.FeatureInput{
		Name:        a.Name,
		Description: a.Description,
		Category:    model.Category(a.Category),
		Priority:    model.Priority(a.Priority),
		Notes:       a.Notes,
	})
	if err != nil {
		return nil, err
	}
	return created(id), nil
}

// featureUpdate starts from the stored feature so that a step only needs to
// name the fields it changes.
func featureUpdate(ctx context.Context, e *engine.Engine, args map[string]any) (map[string]any, error) {
	var a featureArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	f, ok := e.Feature(a.ID)
	if !ok {
		f = model.Feature{ID: a.ID}
	}
	if a.Project != "" {
		f.ProjectID = a.Project
	}
	if _, ok := args["name"]; ok {
		f.Name = a.Name
	}
	if _, ok := args["description"]; ok {
		f.Description = a.Description
	}
	if a.Category != "" {
		f.Category = model.Category(a.Category)
	}
	if a.Priority != "" {
		f.Priority = model.Priority(a.Priority)
	}
	if _, ok := args["notes"]; ok {
		f.Notes = a.Notes
	}
	return nil, e.UpdateFeature(ctx, f)
}

func featureRestore(ctx context.Context, e *engine.Engine, args map[string]any) (map[string]any, error) {
	var a struct {
		ID      string `yaml:"id"`
		History string `yaml:"history"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return nil, e.RestoreFeature(ctx, a.ID, a.History)
}

func featureMove(ctx context.Context, e *engine.Engine, args map[string]any) (map[string]any, error) {
	var a struct {
		ID       string `yaml:"id"`
		Category string `yaml:"category"`
		Project  string `yaml:"project"`
		Index    int    `yaml:"index"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return nil, e.MoveFeature(ctx, a.ID, model.Category(a.Category), a.Project, a.Index)
}

func featureDelete(ctx context.Context, e *engine.Engine, args map[string]any) (map[string]any, error) {
	var a struct {
		ID string `yaml:"id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return nil, e.DeleteFeature(ctx, a.ID)
}

type edgeArgs struct {
	ID        string `yaml:"id"`
	Feature   string `yaml:"feature"`
	DependsOn string `yaml:"depends_on"`
}

func dependencyAdd(ctx context.Context, e *engine.Engine, args map[string]any) (map[string]any, error) {
	var a edgeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	id, err := e.AddDependency(ctx, model.Dependency{ID: a.ID, FeatureID: a.Feature, DependsOnID: a.DependsOn})
	if err != nil {
		return nil, err
	}
	return created(id), nil
}

func dependencyRemove(ctx context.Context, e *engine.Engine, args map[string]any) (map[string]any, error) {
	var a edgeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return nil, e.RemoveDependency(ctx, a.Feature, a.DependsOn)
}

func positionUpdate(ctx context.Context, e *engine.Engine, args map[string]any) (map[string]any, error) {
	var a struct {
		Node string  `yaml:"node"`
		X    float64 `yaml:"x"`
		Y    float64 `yaml:"y"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	pos := model.Position{X: a.X, Y: a.Y}
	if !pos.Finite() {
		return nil, fmt.Errorf("position (%v, %v) of %q is not finite", a.X, a.Y, a.Node)
	}
	e.UpdateNodePosition(ctx, a.Node, pos)
	return nil, nil
}

func storeReset(ctx context.Context, e *engine.Engine, args map[string]any) (map[string]any, error) {
	e.Reset(ctx)
	return nil, nil
}
