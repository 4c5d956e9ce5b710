package graph

import (
	"strings"

	"github.com/roach88/featureplan/internal/model"
)

// Edge is one drawn dependency.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"` // dependent feature
	Target string `json:"target"` // feature depended on
}

// Node is one drawn feature.
type Node struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Category model.Category `json:"category"`
	Position model.Position `json:"position"`

	// Placed is false when Position was computed by DefaultPosition
	// because no stored position exists.
	Placed bool `json:"placed"`

	Dependencies int `json:"dependencies"`
	Dependents   int `json:"dependents"`

	// Match is false when a search term was given and neither the name nor
	// the description contains it.
	Match bool `json:"match"`
}

// Grid spacing used by DefaultPosition.
const (
	GridColumns = 4
	GridSpacing = 300.0
)

// DefaultPosition returns the layout slot for the i-th feature that has no
// stored position. Slots fill a grid row by row.
func DefaultPosition(i int) model.Position {
	return model.Position{
		X: float64(i%GridColumns) * GridSpacing,
		Y: float64(i/GridColumns) * GridSpacing,
	}
}

// Edges returns the edges among features, in feature order then edge order.
func Edges(features []model.Feature, deps map[string][]model.Dependency) []Edge {
	in := make(map[string]bool, len(features))
	for _, f := range features {
		in[f.ID] = true
	}

	out := []Edge{}
	for _, f := range features {
		for _, d := range deps[f.ID] {
			if in[d.FeatureID] && in[d.DependsOnID] {
				out = append(out, Edge{ID: d.ID, Source: d.FeatureID, Target: d.DependsOnID})
			}
		}
	}
	return out
}

// Nodes returns one node per feature with its position, its dependency
// counts among features and whether it matches search (case-insensitive).
// An empty search matches everything.
func Nodes(features []model.Feature, deps map[string][]model.Dependency, positions map[string]model.Position, search string) []Node {
	dependencies := make(map[string]int, len(features))
	dependents := make(map[string]int, len(features))
	for _, e := range Edges(features, deps) {
		dependencies[e.Source]++
		dependents[e.Target]++
	}

	needle := strings.ToLower(search)
	unplaced := 0
	out := make([]Node, 0, len(features))
	for _, f := range features {
		n := Node{
			ID:           f.ID,
			Name:         f.Name,
			Category:     f.Category,
			Dependencies: dependencies[f.ID],
			Dependents:   dependents[f.ID],
			Match: needle == "" ||
				strings.Contains(strings.ToLower(f.Name), needle) ||
				strings.Contains(strings.ToLower(f.Description), needle),
		}
		if pos, ok := positions[f.ID]; ok {
			n.Position = pos
			n.Placed = true
		} else {
			n.Position = DefaultPosition(unplaced)
			unplaced++
		}
		out = append(out, n)
	}
	return out
}
