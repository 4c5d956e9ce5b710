package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/featureplan/internal/graph"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Search string
}

// GraphResult is the JSON payload of the graph command.
type GraphResult struct {
	Nodes      []graph.Node         `json:"nodes"`
	Edges      []graph.Edge         `json:"edges"`
	Cycles     []graph.CycleWarning `json:"cycles"`
	BuildOrder []string             `json:"build_order"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph <project-id>",
		Short: "Show a project's dependency graph",
		Long: `Show a project's dependency graph: nodes with their positions and edge
counts, edges, cycles, and a build order when the graph has no cycle.

Nodes without a stored position are laid out on a grid.

Examples:
  featureplan graph 0191...
  featureplan graph 0191... --search login --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			p, ok := s.eng.Project(args[0])
			if !ok {
				return s.out.Fail(ExitFailure, CodeNotFound, fmt.Sprintf("project %s does not exist", args[0]), nil)
			}

			state := s.eng.Snapshot()
			features := s.eng.BoardFeatures(p.ID)
			res := GraphResult{
				Nodes:      graph.Nodes(features, state.Dependencies, state.NodePositions, opts.Search),
				Edges:      graph.Edges(features, state.Dependencies),
				Cycles:     graph.AnalyzeCycles(features, state.Dependencies),
				BuildOrder: []string{},
			}
			order, err := graph.BuildOrder(features, state.Dependencies)
			if err != nil && !errors.Is(err, graph.ErrCycle) {
				return s.out.Fail(ExitCommandError, CodeInput, "build order failed", err)
			}
			if err == nil {
				res.BuildOrder = order
			}
			return s.out.Result(res, formatGraph(p.Name, res))
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "mark nodes whose name or description contains this text")
	return cmd
}

func formatGraph(project string, g GraphResult) string {
	names := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		names[n.ID] = n.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d node(s), %d edge(s)\n", project, len(g.Nodes), len(g.Edges))
	for _, n := range g.Nodes {
		mark := " "
		if !n.Match {
			mark = "-"
		}
		fmt.Fprintf(&b, "%s %s [%s] at (%g, %g), depends on %d, needed by %d\n",
			mark, n.Name, n.Category, n.Position.X, n.Position.Y, n.Dependencies, n.Dependents)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %s -> %s\n", names[e.Source], names[e.Target])
	}
	for _, c := range g.Cycles {
		fmt.Fprintf(&b, "warning: %s\n", c.Message)
	}
	if len(g.Cycles) == 0 && len(g.BuildOrder) > 0 {
		ordered := make([]string, len(g.BuildOrder))
		for i, id := range g.BuildOrder {
			ordered[i] = names[id]
		}
		fmt.Fprintf(&b, "build order: %s\n", strings.Join(ordered, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
