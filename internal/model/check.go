package model

import (
	"fmt"
	"slices"
	"sort"
)

// Violation describes one broken cross-table invariant.
type Violation struct {
	Table   Table  `json:"table"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s[%s]: %s", v.Table, v.Key, v.Message)
}

// Check reports every referential-integrity violation in s.
//
// Checked invariants:
//   - every feature's project_id refers to an existing project
//   - every dependency endpoint refers to an existing feature
//   - no dependency is a self edge, and both endpoints share a project
//   - every adjacency list is keyed by its edges' feature_id
//   - feature orders are keyed by existing projects and only reference
//     features of that project, at most once
//
// The result is sorted for deterministic output. An empty result means the
// state is consistent.
func (s *State) Check() []Violation {
	var out []Violation

	for id, f := range s.Features {
		if f.ID != id {
			out = append(out, Violation{TableFeatures, id, fmt.Sprintf("keyed by %q but id is %q", id, f.ID)})
		}
		if _, ok := s.Projects[f.ProjectID]; !ok {
			out = append(out, Violation{TableFeatures, id, fmt.Sprintf("project %q does not exist", f.ProjectID)})
		}
	}

	for key, deps := range s.Dependencies {
		for _, d := range deps {
			if d.FeatureID != key {
				out = append(out, Violation{TableDependencies, key, fmt.Sprintf("edge %q has feature_id %q", d.ID, d.FeatureID)})
			}
			from, okFrom := s.Features[d.FeatureID]
			to, okTo := s.Features[d.DependsOnID]
			switch {
			case !okFrom:
				out = append(out, Violation{TableDependencies, key, fmt.Sprintf("edge %q: feature %q does not exist", d.ID, d.FeatureID)})
			case !okTo:
				out = append(out, Violation{TableDependencies, key, fmt.Sprintf("edge %q: feature %q does not exist", d.ID, d.DependsOnID)})
			case d.FeatureID == d.DependsOnID:
				out = append(out, Violation{TableDependencies, key, fmt.Sprintf("edge %q is a self dependency", d.ID)})
			case from.ProjectID != to.ProjectID:
				out = append(out, Violation{TableDependencies, key, fmt.Sprintf("edge %q crosses projects", d.ID)})
			}
		}
	}

	for projectID, order := range s.FeatureOrders {
		if _, ok := s.Projects[projectID]; !ok {
			out = append(out, Violation{TableFeatureOrders, projectID, "project does not exist"})
			continue
		}
		seen := make(map[string]bool, len(order))
		for _, fid := range order {
			if seen[fid] {
				out = append(out, Violation{TableFeatureOrders, projectID, fmt.Sprintf("feature %q listed twice", fid)})
				continue
			}
			seen[fid] = true
			f, ok := s.Features[fid]
			if !ok {
				out = append(out, Violation{TableFeatureOrders, projectID, fmt.Sprintf("feature %q does not exist", fid)})
			} else if f.ProjectID != projectID {
				out = append(out, Violation{TableFeatureOrders, projectID, fmt.Sprintf("feature %q belongs to project %q", fid, f.ProjectID)})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// Sanitize returns a copy of s with every row that breaks referential
// integrity removed, and the number of rows dropped. Features of missing
// projects go first so the dependency and order passes see the final
// feature table. Node positions are a layout cache; only positions with a
// non-finite coordinate are dropped.
func Sanitize(s *State) (*State, int) {
	out := s.Clone()
	out.Normalize()
	dropped := 0

	for id, f := range out.Features {
		if _, ok := out.Projects[f.ProjectID]; !ok || f.ID != id {
			delete(out.Features, id)
			dropped++
		}
	}

	for key, deps := range out.Dependencies {
		kept := slices.DeleteFunc(deps, func(d Dependency) bool {
			from, okFrom := out.Features[d.FeatureID]
			to, okTo := out.Features[d.DependsOnID]
			bad := d.FeatureID != key || !okFrom || !okTo ||
				d.FeatureID == d.DependsOnID || from.ProjectID != to.ProjectID
			if bad {
				dropped++
			}
			return bad
		})
		if len(kept) == 0 {
			delete(out.Dependencies, key)
			continue
		}
		out.Dependencies[key] = kept
	}

	for projectID, order := range out.FeatureOrders {
		if _, ok := out.Projects[projectID]; !ok {
			delete(out.FeatureOrders, projectID)
			dropped++
			continue
		}
		seen := make(map[string]bool, len(order))
		out.FeatureOrders[projectID] = slices.DeleteFunc(order, func(fid string) bool {
			f, ok := out.Features[fid]
			bad := !ok || f.ProjectID != projectID || seen[fid]
			seen[fid] = true
			if bad {
				dropped++
			}
			return bad
		})
	}

	for id, p := range out.NodePositions {
		if !p.Finite() {
			delete(out.NodePositions, id)
			dropped++
		}
	}

	return out, dropped
}
