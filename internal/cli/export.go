package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/featureplan/internal/export"
	"github.com/roach88/featureplan/internal/planfile"
)

// ExportOptions holds flags for the export and plan commands.
type ExportOptions struct {
	*RootOptions
	Dir    string
	Output string
	Stdout bool
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Write a project as a Markdown document",
		Long: `Write a project as a Markdown document named <project-name>-features.md.

Examples:
  featureplan export 0191...
  featureplan export 0191... --dir docs
  featureplan export 0191... --stdout`,
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
			doc := export.Markdown(p, s.eng.BoardFeatures(p.ID), s.eng.Snapshot().Dependencies)

			if opts.Stdout {
				_, err := fmt.Fprint(cmd.OutOrStdout(), doc)
				return err
			}

			path := filepath.Join(opts.Dir, export.FileName(p))
			if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
				return s.out.Fail(ExitCommandError, CodeInput, "failed to create output directory", err)
			}
			if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
				return s.out.Fail(ExitCommandError, CodeInput, "failed to write export", err)
			}
			s.out.VerboseLog("wrote %d bytes", len(doc))
			return s.out.Result(map[string]string{"path": path}, fmt.Sprintf("Exported %q to %s", p.Name, path))
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", ".", "output directory")
	cmd.Flags().BoolVar(&opts.Stdout, "stdout", false, "print the document instead of writing a file")
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <plan.cue|dir>",
		Short: "Create projects from a CUE plan file",
		Long: `Create the projects, features and dependencies declared in a CUE plan
file, or in every .cue file of a directory. Each import creates new entities;
importing the same plan twice creates two copies.

Example:
  featureplan import ./plans/launch.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(cmd, rootOpts)
			plan, err := planfile.Load(args[0])
			if err != nil {
				return out.Fail(ExitCommandError, CodeInput, "failed to load plan", err)
			}

			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			applied, err := planfile.Apply(s.ctx, s.eng, plan)
			if err != nil {
				// Entities created before the failure are kept and saved.
				if saveErr := s.saved(); saveErr != nil {
					return saveErr
				}
				return s.out.Fail(ExitFailure, CodeInvalid, "failed to apply plan", err)
			}
			if err := s.saved(); err != nil {
				return err
			}
			return s.out.Result(applied, fmt.Sprintf("Imported %d project(s), %d feature(s), %d dependencies",
				len(applied.Projects), len(applied.Features), applied.Dependencies))
		},
	}
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <project-id>",
		Short: "Write a project as a CUE plan file",
		Long: `Write a project as a CUE plan file that import accepts.

Examples:
  featureplan plan 0191...
  featureplan plan 0191... -o checkout.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			data, err := planfile.Encode(s.eng.Snapshot(), args[0])
			if err != nil {
				return s.out.Fail(ExitFailure, CodeNotFound, "failed to encode plan", err)
			}
			if opts.Output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
				return s.out.Fail(ExitCommandError, CodeInput, "failed to write plan", err)
			}
			return s.out.Result(map[string]string{"path": opts.Output}, fmt.Sprintf("Wrote plan to %s", opts.Output))
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
