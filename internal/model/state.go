package model

import (
	"maps"
	"slices"
)

// Table names a single entity table. Subscribers filter changes by table.
type Table string

const (
	TableProjects      Table = "projects"
	TableFeatures      Table = "features"
	TableDependencies  Table = "dependencies"
	TableFeatureOrders Table = "featureOrders"
	TableNodePositions Table = "nodePositions"
)

// AllTables lists every table in a stable order.
var AllTables = []Table{
	TableProjects,
	TableFeatures,
	TableDependencies,
	TableFeatureOrders,
	TableNodePositions,
}

// State is the complete table set. It is the unit of persistence and of
// change: every mutation derives a new State from the previous one.
//
// INVARIANT: a State reachable from the engine is never modified in place.
// Derive a new one with Clone or the With* helpers instead.
type State struct {
	Projects      map[string]Project      `json:"projects"`
	Features      map[string]Feature      `json:"features"`
	Dependencies  map[string][]Dependency `json:"dependencies"`
	FeatureOrders map[string][]string     `json:"featureOrders"`
	NodePositions map[string]Position     `json:"nodePositions"`
}

// NewState returns an empty table set with non-nil tables.
func NewState() *State {
	return &State{
		Projects:      map[string]Project{},
		Features:      map[string]Feature{},
		Dependencies:  map[string][]Dependency{},
		FeatureOrders: map[string][]string{},
		NodePositions: map[string]Position{},
	}
}

// Normalize replaces nil tables with empty ones. Used after decoding.
func (s *State) Normalize() {
	if s.Projects == nil {
		s.Projects = map[string]Project{}
	}
	if s.Features == nil {
		s.Features = map[string]Feature{}
	}
	if s.Dependencies == nil {
		s.Dependencies = map[string][]Dependency{}
	}
	if s.FeatureOrders == nil {
		s.FeatureOrders = map[string][]string{}
	}
	if s.NodePositions == nil {
		s.NodePositions = map[string]Position{}
	}
}

// Clone returns a deep copy of s that shares no memory with it.
func (s *State) Clone() *State {
	return &State{
		Projects:      maps.Clone(s.Projects),
		Features:      CloneFeatures(s.Features),
		Dependencies:  CloneDependencies(s.Dependencies),
		FeatureOrders: CloneOrders(s.FeatureOrders),
		NodePositions: maps.Clone(s.NodePositions),
	}
}

// Shallow returns a new State sharing every table with s. Callers replace
// the tables they change before publishing the result.
func (s *State) Shallow() *State {
	next := *s
	return &next
}

// CloneFeatures deep-copies a features table, including history slices.
func CloneFeatures(in map[string]Feature) map[string]Feature {
	out := make(map[string]Feature, len(in))
	for id, f := range in {
		f.History = slices.Clone(f.History)
		out[id] = f
	}
	return out
}

// CloneDependencies deep-copies the adjacency table.
func CloneDependencies(in map[string][]Dependency) map[string][]Dependency {
	out := make(map[string][]Dependency, len(in))
	for id, deps := range in {
		out[id] = slices.Clone(deps)
	}
	return out
}

// CloneOrders deep-copies the feature order table.
func CloneOrders(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for id, order := range in {
		out[id] = slices.Clone(order)
	}
	return out
}

// DependencyCount returns the number of edges across all adjacency lists.
func (s *State) DependencyCount() int {
	n := 0
	for _, deps := range s.Dependencies {
		n += len(deps)
	}
	return n
}
