package planfile

import (
	"context"
	"fmt"

	"github.com/roach88/featureplan/internal/engine"
	"github.com/roach88/featureplan/internal/model"
)

// Engine is the subset of the store engine a plan is applied through.
type Engine interface {
	CreateProject(ctx context.Context, name, purpose string) (string, error)
	CreateFeature(ctx context.Context, projectID string, in engine.FeatureInput) (string, error)
	AddDependency(ctx context.Context, dep model.Dependency) (string, error)
	MoveFeature(ctx context.Context, featureID string, category model.Category, projectID string, newIndex int) error
}

// Applied maps plan keys to the ids the engine assigned.
type Applied struct {
	// Projects maps project key → project id.
	Projects map[string]string `json:"projects"`

	// Features maps "projectKey.featureKey" → feature id.
	Features map[string]string `json:"features"`

	Dependencies int `json:"dependencies"`
}

// Apply creates every project, feature and dependency of plan.
//
// Each project's features are placed in the feature order in declaration
// order. Apply stops at the first engine error; entities created before it
// remain.
func Apply(ctx context.Context, e Engine, plan *Plan) (*Applied, error) {
	out := &Applied{Projects: map[string]string{}, Features: map[string]string{}}

	for _, p := range plan.Projects {
		pid, err := e.CreateProject(ctx, p.Name, p.Purpose)
		if err != nil {
			return out, fmt.Errorf("project %s: %w", p.Key, err)
		}
		out.Projects[p.Key] = pid

		ids := make(map[string]string, len(p.Features))
		for i, f := range p.Features {
			fid, err := e.CreateFeature(ctx, pid, engine.FeatureInput{
				Name:        f.Name,
				Description: f.Description,
				Category:    f.Category,
				Priority:    f.Priority,
				Notes:       f.Notes,
			})
			if err != nil {
				return out, fmt.Errorf("feature %s.%s: %w", p.Key, f.Key, err)
			}
			ids[f.Key] = fid
			out.Features[p.Key+"."+f.Key] = fid

			if err := e.MoveFeature(ctx, fid, f.Category, pid, i); err != nil {
				return out, fmt.Errorf("feature %s.%s: %w", p.Key, f.Key, err)
			}
		}

		for _, f := range p.Features {
			for _, dep := range f.DependsOn {
				_, err := e.AddDependency(ctx, model.Dependency{FeatureID: ids[f.Key], DependsOnID: ids[dep]})
				if err != nil {
					return out, fmt.Errorf("dependency %s.%s → %s: %w", p.Key, f.Key, dep, err)
				}
				out.Dependencies++
			}
		}
	}
	return out, nil
}
