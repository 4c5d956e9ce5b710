package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/featureplan/internal/model"
)

// CycleWarning reports features that transitively depend on each other.
//
// Cycles are warnings, not errors: the store accepts them, but no build
// order exists for the features involved.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["f1", "f2", "f1"]
	Names   []string `json:"names"`   // Feature names along Path
	Message string   `json:"message"` // Human-readable description
}

// ErrCycle is returned by BuildOrder when the features contain a cycle.
var ErrCycle = errors.New("dependency cycle")

// adjacency maps feature id → ids it depends on, restricted to features.
type adjacency map[string][]string

func buildAdjacency(features []model.Feature, deps map[string][]model.Dependency) (adjacency, []string) {
	adj := make(adjacency, len(features))
	order := make([]string, 0, len(features))
	for _, f := range features {
		adj[f.ID] = []string{}
		order = append(order, f.ID)
	}
	for _, e := range Edges(features, deps) {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	return adj, order
}

// AnalyzeCycles finds every dependency cycle among features.
//
// The algorithm:
//  1. Build the feature → depends-on graph from the drawn edges
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each component with more than one feature as a cycle
//
// Components are visited in feature order, so output is deterministic.
// An acyclic graph returns an empty list.
func AnalyzeCycles(features []model.Feature, deps map[string][]model.Dependency) []CycleWarning {
	adj, order := buildAdjacency(features, deps)
	names := make(map[string]string, len(features))
	for _, f := range features {
		names[f.ID] = f.Name
	}

	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(adj, order) {
		// Self edges are rejected by the engine, so only multi-node
		// components are cycles.
		if len(scc) < 2 {
			continue
		}
		path := reconstructCyclePath(scc, adj, order)
		labels := make([]string, len(path))
		for i, id := range path {
			labels[i] = names[id]
		}
		warnings = append(warnings, CycleWarning{
			Path:    path,
			Names:   labels,
			Message: fmt.Sprintf("dependency cycle: %s", strings.Join(labels, " → ")),
		})
	}
	return warnings
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Roots are tried in the given order.
func tarjanSCC(adj adjacency, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// reconstructCyclePath returns the shortest cycle through the SCC's
// earliest member (in feature order), found by breadth-first search inside
// the component. The path starts and ends with that member.
func reconstructCyclePath(scc []string, adj adjacency, order []string) []string {
	member := make(map[string]bool, len(scc))
	for _, id := range scc {
		member[id] = true
	}
	start := order[slices.IndexFunc(order, func(id string) bool { return member[id] })]

	parent := map[string]string{start: ""}
	queue := []string{start}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, w := range adj[u] {
			if !member[w] {
				continue
			}
			if w == start {
				var back []string
				for x := u; x != start; x = parent[x] {
					back = append(back, x)
				}
				slices.Reverse(back)
				path := append([]string{start}, back...)
				return append(path, start)
			}
			if _, seen := parent[w]; !seen {
				parent[w] = u
				queue = append(queue, w)
			}
		}
	}
	// Unreachable for a true SCC of two or more nodes.
	return []string{start}
}

// BuildOrder returns feature ids so that every feature comes after the
// features it depends on. Ties keep feature order.
//
// Returns an error wrapping ErrCycle when no such order exists.
func BuildOrder(features []model.Feature, deps map[string][]model.Dependency) ([]string, error) {
	adj, order := buildAdjacency(features, deps)

	pending := make(map[string]int, len(order)) // unbuilt dependencies
	dependents := make(map[string][]string, len(order))
	for _, id := range order {
		pending[id] = len(adj[id])
		for _, target := range adj[id] {
			dependents[target] = append(dependents[target], id)
		}
	}

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	var ready []string
	for _, id := range order {
		if pending[id] == 0 {
			ready = append(ready, id)
		}
	}

	out := make([]string, 0, len(order))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		out = append(out, id)
		for _, d := range dependents[id] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
				slices.SortFunc(ready, func(a, b string) int { return position[a] - position[b] })
			}
		}
	}

	if len(out) != len(order) {
		return nil, fmt.Errorf("%w among %d features", ErrCycle, len(order)-len(out))
	}
	return out, nil
}
