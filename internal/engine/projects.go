package engine

import (
	"context"
	"maps"
	"slices"

	"github.com/roach88/featureplan/internal/model"
)

// CreateProject adds a project with a fresh id and returns the id.
// The description starts out equal to the purpose.
func (e *Engine) CreateProject(ctx context.Context, name, purpose string) (string, error) {
	var id string
	err := e.apply(ctx, "CreateProject", func(cur *model.State) (*model.State, []model.Table, error) {
		id = e.ids.Generate()
		if _, exists := cur.Projects[id]; exists {
			return nil, nil, invalid("CreateProject", id, "generated id already in use")
		}
		next := cur.Shallow()
		next.Projects = maps.Clone(cur.Projects)
		next.Projects[id] = model.Project{
			ID:          id,
			Name:        name,
			Purpose:     purpose,
			Description: purpose,
			CreatedAt:   e.timestamp(),
		}
		return next, []model.Table{model.TableProjects}, nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// AddProject inserts a project with a caller-supplied id, e.g. when
// restoring an export. A zero createdAt is set to now; supplied timestamps
// are stored in UTC.
func (e *Engine) AddProject(ctx context.Context, p model.Project) error {
	return e.apply(ctx, "AddProject", func(cur *model.State) (*model.State, []model.Table, error) {
		if p.ID == "" {
			return nil, nil, invalid("AddProject", "", "project id is required")
		}
		if _, exists := cur.Projects[p.ID]; exists {
			return nil, nil, invalid("AddProject", p.ID, "project already exists")
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = e.timestamp()
		}
		p.CreatedAt = p.CreatedAt.UTC()
		p.UpdatedAt = p.UpdatedAt.UTC()
		next := cur.Shallow()
		next.Projects = maps.Clone(cur.Projects)
		next.Projects[p.ID] = p
		return next, []model.Table{model.TableProjects}, nil
	})
}

// UpdateProject replaces the name, purpose and description of an existing
// project. createdAt is preserved and updatedAt is set to now.
func (e *Engine) UpdateProject(ctx context.Context, p model.Project) error {
	return e.apply(ctx, "UpdateProject", func(cur *model.State) (*model.State, []model.Table, error) {
		old, ok := cur.Projects[p.ID]
		if !ok {
			return nil, nil, notFound("UpdateProject", p.ID, "project does not exist")
		}
		old.Name = p.Name
		old.Purpose = p.Purpose
		old.Description = p.Description
		old.UpdatedAt = e.timestamp()

		next := cur.Shallow()
		next.Projects = maps.Clone(cur.Projects)
		next.Projects[p.ID] = old
		return next, []model.Table{model.TableProjects}, nil
	})
}

// DeleteProject removes a project together with its features, every
// dependency touching those features, the project's feature order and the
// features' node positions, as one transition.
//
// Returns a not-found error (and changes nothing) if the project is absent.
func (e *Engine) DeleteProject(ctx context.Context, id string) error {
	return e.apply(ctx, "DeleteProject", func(cur *model.State) (*model.State, []model.Table, error) {
		if _, ok := cur.Projects[id]; !ok {
			return nil, nil, notFound("DeleteProject", id, "project does not exist")
		}

		doomed := make(map[string]bool)
		for fid, f := range cur.Features {
			if f.ProjectID == id {
				doomed[fid] = true
			}
		}

		next := cur.Shallow()
		next.Projects = maps.Clone(cur.Projects)
		delete(next.Projects, id)
		tables := []model.Table{model.TableProjects}

		if len(doomed) > 0 {
			next.Features = maps.Clone(cur.Features)
			maps.DeleteFunc(next.Features, func(fid string, _ model.Feature) bool { return doomed[fid] })
			tables = append(tables, model.TableFeatures)
		}

		if deps, changed := withoutEdges(cur.Dependencies, doomed); changed {
			next.Dependencies = deps
			tables = append(tables, model.TableDependencies)
		}

		if _, ok := cur.FeatureOrders[id]; ok {
			next.FeatureOrders = maps.Clone(cur.FeatureOrders)
			delete(next.FeatureOrders, id)
			tables = append(tables, model.TableFeatureOrders)
		}

		if positions, changed := withoutPositions(cur.NodePositions, doomed); changed {
			next.NodePositions = positions
			tables = append(tables, model.TableNodePositions)
		}

		e.logger.Debug("deleting project", "project", id, "features", len(doomed))
		return next, tables, nil
	})
}

// withoutEdges returns the adjacency table without any edge that has an
// endpoint in doomed. Lists left empty are dropped. When no edge matches,
// in is returned unchanged with changed=false.
func withoutEdges(in map[string][]model.Dependency, doomed map[string]bool) (out map[string][]model.Dependency, changed bool) {
	touches := func(d model.Dependency) bool {
		return doomed[d.FeatureID] || doomed[d.DependsOnID]
	}

	for key, deps := range in {
		if doomed[key] || slices.ContainsFunc(deps, touches) {
			changed = true
			break
		}
	}
	if !changed {
		return in, false
	}

	out = make(map[string][]model.Dependency, len(in))
	for key, deps := range in {
		if doomed[key] {
			continue
		}
		if !slices.ContainsFunc(deps, touches) {
			out[key] = deps
			continue
		}
		kept := slices.DeleteFunc(slices.Clone(deps), touches)
		if len(kept) > 0 {
			out[key] = kept
		}
	}
	return out, true
}

// withoutPositions returns the position table without the doomed nodes.
func withoutPositions(in map[string]model.Position, doomed map[string]bool) (map[string]model.Position, bool) {
	changed := false
	for id := range doomed {
		if _, ok := in[id]; ok {
			changed = true
			break
		}
	}
	if !changed {
		return in, false
	}
	out := maps.Clone(in)
	maps.DeleteFunc(out, func(id string, _ model.Position) bool { return doomed[id] })
	return out, true
}
