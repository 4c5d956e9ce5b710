package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/featureplan/internal/engine"
	"github.com/roach88/featureplan/internal/model"
	"github.com/roach88/featureplan/internal/query"
)

// FeatureOptions holds flags for the feature subcommands.
type FeatureOptions struct {
	*RootOptions
	Name        string
	Description string
	Category    string
	Priority    string
	Notes       string
	Index       int
	Filter      string
}

// MoveResult is the JSON payload of feature move.
type MoveResult struct {
	ID       string         `json:"id"`
	Category model.Category `json:"category"`
	Order    []string       `json:"order"`
}

// NewFeatureCommand creates the feature command group.
func NewFeatureCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feature",
		Short: "Create, edit, move and delete features",
	}
	cmd.AddCommand(newFeatureCreateCommand(rootOpts))
	cmd.AddCommand(newFeatureUpdateCommand(rootOpts))
	cmd.AddCommand(newFeatureMoveCommand(rootOpts))
	cmd.AddCommand(newFeatureDeleteCommand(rootOpts))
	cmd.AddCommand(newFeatureListCommand(rootOpts))
	cmd.AddCommand(newFeatureHistoryCommand(rootOpts))
	cmd.AddCommand(newFeatureRestoreCommand(rootOpts))
	return cmd
}

func newFeatureCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FeatureOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <project-id> <name>",
		Short: "Add a feature to a project",
		Long: `Add a feature to a project.

Example:
  featureplan feature create 0191... "Login" --category essential --priority high`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.eng.CreateFeature(s.ctx, args[0], engine.FeatureInput{
				Name:        args[1],
				Description: opts.Description,
				Category:    model.Category(opts.Category),
				Priority:    model.Priority(opts.Priority),
				Notes:       opts.Notes,
			})
			if err := s.done(err); err != nil {
				return err
			}
			f, _ := s.eng.Feature(id)
			return s.out.Result(f, fmt.Sprintf("Created feature %q [%s, %s] (%s)", f.Name, f.Category, f.Priority, f.ID))
		},
	}

	cmd.Flags().StringVar(&opts.Description, "description", "", "what the feature does")
	cmd.Flags().StringVar(&opts.Category, "category", "", "essential|nice-to-have|future (default essential)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "high|medium|low (default medium)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "free-form notes")
	return cmd
}

func newFeatureUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FeatureOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a feature",
		Long: `Edit a feature. Fields whose flag is not given keep their value. When
something changes, the previous values are recorded in the feature's history.

Example:
  featureplan feature update 0191... --priority low --notes "after launch"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			var patch engine.FeaturePatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &opts.Name
			}
			if flags.Changed("description") {
				patch.Description = &opts.Description
			}
			if flags.Changed("category") {
				c := model.Category(opts.Category)
				patch.Category = &c
			}
			if flags.Changed("priority") {
				p := model.Priority(opts.Priority)
				patch.Priority = &p
			}
			if flags.Changed("notes") {
				patch.Notes = &opts.Notes
			}
			f, _, err := s.eng.PatchFeature(s.ctx, args[0], patch)
			if err := s.done(err); err != nil {
				return err
			}
			return s.out.Result(f, fmt.Sprintf("Updated feature %q (%d history entries)", f.Name, len(f.History)))
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "new name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "new description")
	cmd.Flags().StringVar(&opts.Category, "category", "", "new category")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "new priority")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "new notes")
	return cmd
}

func newFeatureMoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FeatureOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "move <id> <category>",
		Short: "Move a feature to a category and position",
		Long: `Move a feature to a category and place it at --index in its project's
feature order. The index is clamped to the bounds of the order.

Example:
  featureplan feature move 0191... nice-to-have --index 0`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			// An unknown id is reported by MoveFeature.
			f, _ := s.eng.Feature(args[0])
			category := model.Category(args[1])
			if err := s.done(s.eng.MoveFeature(s.ctx, args[0], category, f.ProjectID, opts.Index)); err != nil {
				return err
			}
			res := MoveResult{ID: args[0], Category: category, Order: s.eng.FeatureOrders()[f.ProjectID]}
			return s.out.Result(res, fmt.Sprintf("Moved %q to %s\n%s", f.Name, category.Title(),
				formatFeatures(s.eng.OrderedFeatures(f.ProjectID, category))))
		},
	}

	cmd.Flags().IntVar(&opts.Index, "index", 0, "position in the project's feature order")
	return cmd
}

func newFeatureDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a feature and its dependencies",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.done(s.eng.DeleteFeature(s.ctx, args[0])); err != nil {
				return err
			}
			return s.out.Result(map[string]string{"id": args[0]}, fmt.Sprintf("Deleted feature %s", args[0]))
		},
	}
}

func newFeatureListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FeatureOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's features",
		Long: `List a project's features grouped by category in display order.

--filter takes a boolean expression over id, name, description, category,
priority, notes, history, dependencies, dependents, created_at and updated_at.

Examples:
  featureplan feature list 0191...
  featureplan feature list 0191... --category future
  featureplan feature list 0191... --filter 'priority == "high" && dependents > 0'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, ok := s.eng.Project(args[0]); !ok {
				return s.out.Fail(ExitFailure, CodeNotFound, fmt.Sprintf("project %s does not exist", args[0]), nil)
			}

			features := s.eng.BoardFeatures(args[0])
			if opts.Category != "" {
				c, err := model.ParseCategory(opts.Category)
				if err != nil {
					return s.out.Fail(ExitCommandError, CodeInput, "invalid --category", err)
				}
				features = s.eng.OrderedFeatures(args[0], c)
			}
			if opts.Filter != "" {
				filter, err := query.Compile(opts.Filter)
				if err != nil {
					return s.out.Fail(ExitCommandError, CodeInput, "invalid --filter", err)
				}
				if features, err = filter.Apply(features, s.eng.Snapshot()); err != nil {
					return s.out.Fail(ExitCommandError, CodeInput, "filter failed", err)
				}
			}
			return s.out.Result(features, formatBoard(features))
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "only list one category")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter expression")
	return cmd
}

func newFeatureHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "history <id>",
		Short:         "Show a feature's edit history",
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
			if len(f.History) == 0 {
				return s.out.Result(f.History, fmt.Sprintf("%q has no history", f.Name))
			}
			var b strings.Builder
			for _, h := range f.History {
				v := h.PreviousValues
				fmt.Fprintf(&b, "%s  %s  %q [%s, %s]\n", h.ID, h.Timestamp.Format("2006-01-02 15:04:05"), v.Name, v.Category, v.Priority)
			}
			return s.out.Result(f.History, strings.TrimRight(b.String(), "\n"))
		},
	}
}

func newFeatureRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id> <history-id>",
		Short: "Bring back the values of a history entry",
		Long: `Bring back the values recorded in one history entry. The values being
replaced are recorded as a new history entry, so a restore can be undone.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.done(s.eng.RestoreFeature(s.ctx, args[0], args[1])); err != nil {
				return err
			}
			f, _ := s.eng.Feature(args[0])
			return s.out.Result(f, fmt.Sprintf("Restored %q [%s, %s]", f.Name, f.Category, f.Priority))
		},
	}
}

// formatFeatures renders one feature per line.
func formatFeatures(features []model.Feature) string {
	var b strings.Builder
	for _, f := range features {
		fmt.Fprintf(&b, "  %s  %s [%s]\n", f.ID, f.Name, f.Priority)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatBoard renders features under their category headings, skipping
// empty categories.
func formatBoard(features []model.Feature) string {
	if len(features) == 0 {
		return "No features."
	}
	var sections []string
	for _, c := range model.Categories {
		var group []model.Feature
		for _, f := range features {
			if f.Category == c {
				group = append(group, f)
			}
		}
		if len(group) > 0 {
			sections = append(sections, c.Title()+":\n"+formatFeatures(group))
		}
	}
	return strings.Join(sections, "\n\n")
}
