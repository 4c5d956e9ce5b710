package engine

import (
	"context"
	"maps"
	"slices"

	"github.com/roach88/featureplan/internal/model"
)

// AddDependency records that dep.FeatureID depends on dep.DependsOnID and
// returns the edge id. An empty dep.ID is filled in with a generated one.
//
// Returns not-found if either endpoint is absent. Returns invalid for a
// self dependency, an edge between features of different projects, an edge
// that already exists, or an id already used by another edge.
//
// Cycles through two or more features are accepted; graph.AnalyzeCycles
// reports them.
func (e *Engine) AddDependency(ctx context.Context, dep model.Dependency) (string, error) {
	err := e.apply(ctx, "AddDependency", func(cur *model.State) (*model.State, []model.Table, error) {
		from, ok := cur.Features[dep.FeatureID]
		if !ok {
			return nil, nil, notFound("AddDependency", dep.FeatureID, "feature does not exist")
		}
		to, ok := cur.Features[dep.DependsOnID]
		if !ok {
			return nil, nil, notFound("AddDependency", dep.DependsOnID, "feature does not exist")
		}
		if dep.FeatureID == dep.DependsOnID {
			return nil, nil, invalid("AddDependency", dep.FeatureID, "a feature cannot depend on itself")
		}
		if from.ProjectID != to.ProjectID {
			return nil, nil, invalid("AddDependency", dep.FeatureID,
				"features belong to different projects (%q, %q)", from.ProjectID, to.ProjectID)
		}
		if slices.ContainsFunc(cur.Dependencies[dep.FeatureID], func(d model.Dependency) bool {
			return d.DependsOnID == dep.DependsOnID
		}) {
			return nil, nil, invalid("AddDependency", dep.FeatureID, "already depends on %q", dep.DependsOnID)
		}

		if dep.ID == "" {
			dep.ID = e.ids.Generate()
		}
		for _, deps := range cur.Dependencies {
			if slices.ContainsFunc(deps, func(d model.Dependency) bool { return d.ID == dep.ID }) {
				return nil, nil, invalid("AddDependency", dep.ID, "dependency id already in use")
			}
		}

		next := cur.Shallow()
		next.Dependencies = maps.Clone(cur.Dependencies)
		next.Dependencies[dep.FeatureID] = append(slices.Clone(cur.Dependencies[dep.FeatureID]), dep)
		return next, []model.Table{model.TableDependencies}, nil
	})
	if err != nil {
		return "", err
	}
	return dep.ID, nil
}

// RemoveDependency removes every edge from featureID to dependsOnID.
// Returns not-found if there is no such edge.
func (e *Engine) RemoveDependency(ctx context.Context, featureID, dependsOnID string) error {
	return e.apply(ctx, "RemoveDependency", func(cur *model.State) (*model.State, []model.Table, error) {
		match := func(d model.Dependency) bool { return d.DependsOnID == dependsOnID }
		deps := cur.Dependencies[featureID]
		if !slices.ContainsFunc(deps, match) {
			return nil, nil, notFound("RemoveDependency", featureID, "no dependency on %q", dependsOnID)
		}

		next := cur.Shallow()
		next.Dependencies = maps.Clone(cur.Dependencies)
		kept := slices.DeleteFunc(slices.Clone(deps), match)
		if len(kept) == 0 {
			delete(next.Dependencies, featureID)
		} else {
			next.Dependencies[featureID] = kept
		}
		return next, []model.Table{model.TableDependencies}, nil
	})
}

// UpdateNodePosition stores the canvas position of a graph node. Positions
// are a layout cache: any node id is accepted and nothing cascades.
// A position with a NaN or infinite coordinate is ignored with a warning.
func (e *Engine) UpdateNodePosition(ctx context.Context, nodeID string, pos model.Position) {
	if !pos.Finite() {
		e.logger.Warn("ignoring non-finite node position", "node", nodeID, "x", pos.X, "y", pos.Y)
		return
	}
	// The transition never fails, so apply never returns an error here.
	_ = e.apply(ctx, "UpdateNodePosition", func(cur *model.State) (*model.State, []model.Table, error) {
		if old, ok := cur.NodePositions[nodeID]; ok && old == pos {
			return nil, nil, nil
		}
		next := cur.Shallow()
		next.NodePositions = maps.Clone(cur.NodePositions)
		next.NodePositions[nodeID] = pos
		return next, []model.Table{model.TableNodePositions}, nil
	})
}
