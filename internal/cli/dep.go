package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/featureplan/internal/graph"
	"github.com/roach88/featureplan/internal/model"
)

// DependencyResult is the JSON payload of dep add.
type DependencyResult struct {
	model.Dependency
	Cycles []graph.CycleWarning `json:"cycles"`
}

// DependencyList is the JSON payload of dep list.
type DependencyList struct {
	DependsOn  []model.Feature `json:"depends_on"`
	Dependents []model.Feature `json:"dependents"`
}

// NewDepCommand creates the dep command group.
func NewDepCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage dependencies between features",
	}
	cmd.AddCommand(newDepAddCommand(rootOpts))
	cmd.AddCommand(newDepRemoveCommand(rootOpts))
	cmd.AddCommand(newDepListCommand(rootOpts))
	return cmd
}

func newDepAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <feature-id> <depends-on-id>",
		Short: "Record that a feature depends on another",
		Long: `Record that a feature depends on another feature of the same project.

Cycles are accepted and reported as warnings.

Example:
  featureplan dep add <checkout-id> <cart-id>`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			dep := model.Dependency{FeatureID: args[0], DependsOnID: args[1]}
			dep.ID, err = s.eng.AddDependency(s.ctx, dep)
			if err := s.done(err); err != nil {
				return err
			}

			f, _ := s.eng.Feature(args[0])
			res := DependencyResult{
				Dependency: dep,
				Cycles:     graph.AnalyzeCycles(s.eng.BoardFeatures(f.ProjectID), s.eng.Snapshot().Dependencies),
			}
			text := fmt.Sprintf("Added dependency %s (%s depends on %s)", dep.ID, dep.FeatureID, dep.DependsOnID)
			for _, c := range res.Cycles {
				text += "\nwarning: " + c.Message
			}
			return s.out.Result(res, text)
		},
	}
}

func newDepRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <feature-id> <depends-on-id>",
		Short:         "Remove a dependency",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.done(s.eng.RemoveDependency(s.ctx, args[0], args[1])); err != nil {
				return err
			}
			data := map[string]string{"feature_id": args[0], "depends_on_id": args[1]}
			return s.out.Result(data, fmt.Sprintf("Removed dependency of %s on %s", args[0], args[1]))
		},
	}
}

func newDepListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <feature-id>",
		Short:         "Show what a feature depends on and what depends on it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			f, ok := s.eng.Feature(args[0])
			if !ok {
				return s.out.Fail(ExitFailure, CodeNotFound, fmt.Sprintf("feature %s does not exist", args[0]), nil)
			}
			res := DependencyList{DependsOn: s.eng.DependsOn(f.ID), Dependents: s.eng.Dependents(f.ID)}

			var b strings.Builder
			fmt.Fprintf(&b, "%s depends on:", f.Name)
			writeNames(&b, res.DependsOn)
			fmt.Fprintf(&b, "\n%s is needed by:", f.Name)
			writeNames(&b, res.Dependents)
			return s.out.Result(res, b.String())
		},
	}
}

func writeNames(b *strings.Builder, features []model.Feature) {
	if len(features) == 0 {
		b.WriteString(" nothing")
		return
	}
	for _, f := range features {
		fmt.Fprintf(b, "\n  %s  %s", f.ID, f.Name)
	}
}

// NewPositionCommand creates the position command.
func NewPositionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "position <node-id> <x> <y>",
		Short: "Store the canvas position of a graph node",
		Long: `Store the canvas position of a graph node. Positions are a layout cache:
any node id is accepted.

Example:
  featureplan position <feature-id> 300 0`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			x, errX := strconv.ParseFloat(args[1], 64)
			y, errY := strconv.ParseFloat(args[2], 64)
			if errX != nil || errY != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid position (%s, %s): coordinates must be numbers", args[1], args[2]))
			}
			pos := model.Position{X: x, Y: y}
			if !pos.Finite() {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid position (%s, %s): coordinates must be finite", args[1], args[2]))
			}

			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			s.eng.UpdateNodePosition(s.ctx, args[0], pos)
			if err := s.saved(); err != nil {
				return err
			}
			return s.out.Result(pos, fmt.Sprintf("Moved node %s to (%g, %g)", args[0], x, y))
		},
	}
}
