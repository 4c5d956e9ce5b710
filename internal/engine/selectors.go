package engine

import (
	"cmp"
	"maps"
	"slices"

	"github.com/roach88/featureplan/internal/model"
)

// Snapshot returns the current state without copying it.
//
// The returned state is shared with the engine and with every other reader.
// It must not be modified; use Clone to obtain a private copy.
func (e *Engine) Snapshot() *model.State {
	return e.state.Load()
}

// Projects returns a copy of the projects table.
func (e *Engine) Projects() map[string]model.Project {
	return maps.Clone(e.Snapshot().Projects)
}

// Features returns a copy of the features table.
func (e *Engine) Features() map[string]model.Feature {
	return model.CloneFeatures(e.Snapshot().Features)
}

// Dependencies returns a copy of the adjacency table.
func (e *Engine) Dependencies() map[string][]model.Dependency {
	return model.CloneDependencies(e.Snapshot().Dependencies)
}

// FeatureOrders returns a copy of the feature order table.
func (e *Engine) FeatureOrders() map[string][]string {
	return model.CloneOrders(e.Snapshot().FeatureOrders)
}

// NodePositions returns a copy of the node position table.
func (e *Engine) NodePositions() map[string]model.Position {
	return maps.Clone(e.Snapshot().NodePositions)
}

// Project returns the project with the given id.
func (e *Engine) Project(id string) (model.Project, bool) {
	p, ok := e.Snapshot().Projects[id]
	return p, ok
}

// Feature returns the feature with the given id.
func (e *Engine) Feature(id string) (model.Feature, bool) {
	f, ok := e.Snapshot().Features[id]
	f.History = slices.Clone(f.History)
	return f, ok
}

// ProjectFeatures returns the features of a project ordered by createdAt,
// then id. The result is recomputed on every call and reflects the current
// features table.
func (e *Engine) ProjectFeatures(projectID string) []model.Feature {
	return projectFeatures(e.Snapshot(), projectID)
}

func projectFeatures(s *model.State, projectID string) []model.Feature {
	out := []model.Feature{}
	for _, f := range s.Features {
		if f.ProjectID == projectID {
			f.History = slices.Clone(f.History)
			out = append(out, f)
		}
	}
	slices.SortFunc(out, byCreation)
	return out
}

func byCreation(a, b model.Feature) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// OrderedFeatures returns the features of one category of a project in
// display order: features listed in the project's feature order first, in
// that order, then the rest by createdAt.
func (e *Engine) OrderedFeatures(projectID string, category model.Category) []model.Feature {
	s := e.Snapshot()
	rank := make(map[string]int)
	for i, id := range s.FeatureOrders[projectID] {
		rank[id] = i
	}

	out := slices.DeleteFunc(projectFeatures(s, projectID), func(f model.Feature) bool {
		return f.Category != category
	})
	slices.SortStableFunc(out, func(a, b model.Feature) int {
		ra, okA := rank[a.ID]
		rb, okB := rank[b.ID]
		switch {
		case okA && okB:
			return cmp.Compare(ra, rb)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
	return out
}

// DependsOn returns the features featureID depends on, in edge order.
func (e *Engine) DependsOn(featureID string) []model.Feature {
	s := e.Snapshot()
	out := []model.Feature{}
	for _, d := range s.Dependencies[featureID] {
		if f, ok := s.Features[d.DependsOnID]; ok {
			f.History = slices.Clone(f.History)
			out = append(out, f)
		}
	}
	return out
}

// Dependents returns the features that depend on featureID, ordered by
// createdAt.
func (e *Engine) Dependents(featureID string) []model.Feature {
	s := e.Snapshot()
	out := []model.Feature{}
	for key, deps := range s.Dependencies {
		if !slices.ContainsFunc(deps, func(d model.Dependency) bool { return d.DependsOnID == featureID }) {
			continue
		}
		if f, ok := s.Features[key]; ok {
			f.History = slices.Clone(f.History)
			out = append(out, f)
		}
	}
	slices.SortFunc(out, byCreation)
	return out
}

// ProjectDependencies returns every edge whose dependent feature belongs to
// projectID, ordered by feature then edge order.
func (e *Engine) ProjectDependencies(projectID string) []model.Dependency {
	s := e.Snapshot()
	out := []model.Dependency{}
	for _, f := range projectFeatures(s, projectID) {
		out = append(out, s.Dependencies[f.ID]...)
	}
	return out
}

// BoardFeatures returns every feature of a project grouped by category in
// display order, each group ordered as by OrderedFeatures. This is the order
// used by exports and graph layouts.
func (e *Engine) BoardFeatures(projectID string) []model.Feature {
	out := []model.Feature{}
	for _, c := range model.Categories {
		out = append(out, e.OrderedFeatures(projectID, c)...)
	}
	return out
}
