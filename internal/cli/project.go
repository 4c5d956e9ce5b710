package cli

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/featureplan/internal/model"
)

// ProjectOptions holds flags for the project subcommands.
type ProjectOptions struct {
	*RootOptions
	Name        string
	Purpose     string
	Description string
}

// ProjectSummary is one row of project list output.
type ProjectSummary struct {
	model.Project
	Features int `json:"features"`
}

// NewProjectCommand creates the project command group.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create, list, update and delete projects",
	}
	cmd.AddCommand(newProjectCreateCommand(rootOpts))
	cmd.AddCommand(newProjectListCommand(rootOpts))
	cmd.AddCommand(newProjectUpdateCommand(rootOpts))
	cmd.AddCommand(newProjectDeleteCommand(rootOpts))
	return cmd
}

func newProjectCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProjectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Long: `Create a project. The description starts out equal to the purpose.

Example:
  featureplan project create "Checkout" --purpose "Let users pay"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.eng.CreateProject(s.ctx, args[0], opts.Purpose)
			if err := s.done(err); err != nil {
				return err
			}
			p, _ := s.eng.Project(id)
			return s.out.Result(p, fmt.Sprintf("Created project %q (%s)", p.Name, p.ID))
		},
	}

	cmd.Flags().StringVar(&opts.Purpose, "purpose", "", "what the project is for")
	return cmd
}

func newProjectListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List projects",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			projects := listProjects(s)
			if len(projects) == 0 {
				return s.out.Result(projects, "No projects.")
			}
			var b strings.Builder
			for _, p := range projects {
				fmt.Fprintf(&b, "%s  %s (%d features)\n", p.ID, p.Name, p.Features)
			}
			return s.out.Result(projects, strings.TrimRight(b.String(), "\n"))
		},
	}
}

// listProjects returns every project with its feature count, ordered by
// createdAt, then id.
func listProjects(s *session) []ProjectSummary {
	out := []ProjectSummary{}
	for _, p := range s.eng.Projects() {
		out = append(out, ProjectSummary{Project: p, Features: len(s.eng.ProjectFeatures(p.ID))})
	}
	slices.SortFunc(out, func(a, b ProjectSummary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func newProjectUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProjectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a project's name, purpose or description",
		Long: `Change a project's name, purpose or description. Fields whose flag is
not given keep their value.

Example:
  featureplan project update 0191... --description "Payments, refunds and invoices"`,
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
				p.ID = args[0]
			}
			if cmd.Flags().Changed("name") {
				p.Name = opts.Name
			}
			if cmd.Flags().Changed("purpose") {
				p.Purpose = opts.Purpose
			}
			if cmd.Flags().Changed("description") {
				p.Description = opts.Description
			}
			if err := s.done(s.eng.UpdateProject(s.ctx, p)); err != nil {
				return err
			}
			p, _ = s.eng.Project(args[0])
			return s.out.Result(p, fmt.Sprintf("Updated project %q (%s)", p.Name, p.ID))
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "new name")
	cmd.Flags().StringVar(&opts.Purpose, "purpose", "", "new purpose")
	cmd.Flags().StringVar(&opts.Description, "description", "", "new description")
	return cmd
}

func newProjectDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and everything in it",
		Long: `Delete a project together with its features, every dependency touching
those features, the project's feature order and the features' positions.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			removed := len(s.eng.ProjectFeatures(args[0]))
			if err := s.done(s.eng.DeleteProject(s.ctx, args[0])); err != nil {
				return err
			}
			data := map[string]any{"id": args[0], "features": removed}
			return s.out.Result(data, fmt.Sprintf("Deleted project %s with %d feature(s)", args[0], removed))
		},
	}
}
