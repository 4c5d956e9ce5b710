package planfile

import (
	"fmt"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"

	"github.com/roach88/featureplan/internal/model"
)

type encodedFeature struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Priority    string   `json:"priority"`
	Notes       string   `json:"notes,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty"`
}

type encodedProject struct {
	Name    string                    `json:"name"`
	Purpose string                    `json:"purpose,omitempty"`
	Feature map[string]encodedFeature `json:"feature"`
}

// Encode renders one project of s as a plan file that Load accepts. Keys
// are entity ids, so applying the result creates a copy of the project.
func Encode(s *model.State, projectID string) ([]byte, error) {
	p, ok := s.Projects[projectID]
	if !ok {
		return nil, fmt.Errorf("project %q does not exist", projectID)
	}

	ep := encodedProject{Name: p.Name, Purpose: p.Purpose, Feature: map[string]encodedFeature{}}
	for id, f := range s.Features {
		if f.ProjectID != projectID {
			continue
		}
		ef := encodedFeature{
			Name:        f.Name,
			Description: f.Description,
			Category:    string(f.Category),
			Priority:    string(f.Priority),
			Notes:       f.Notes,
		}
		for _, d := range s.Dependencies[id] {
			ef.DependsOn = append(ef.DependsOn, d.DependsOnID)
		}
		ep.Feature[id] = ef
	}

	v := cuecontext.New().Encode(map[string]any{
		"project": map[string]encodedProject{projectID: ep},
	})
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	out, err := format.Node(v.Syntax())
	if err != nil {
		return nil, fmt.Errorf("format plan: %w", err)
	}
	return out, nil
}
