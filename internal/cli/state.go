package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/featureplan/internal/model"
)

// SnapshotEnvelope is the persisted shape of the table set.
type SnapshotEnvelope struct {
	Version int          `json:"version"`
	State   *model.State `json:"state"`
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the stored tables as JSON",
		Long: `Print every table of the configured slot as a {version, state} JSON
document, the same shape the store persists.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			env := SnapshotEnvelope{Version: model.SchemaVersion, State: s.eng.Snapshot()}
			if rootOpts.Format == "json" {
				return s.out.Success(env)
			}
			data, err := json.MarshalIndent(env, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify referential integrity of the stored tables",
		Long: `Verify referential integrity of the stored tables.

Rows that break integrity are dropped with a logged warning when the slot
is loaded; check then verifies the loaded tables.

Exit codes:
  0 - Tables are consistent
  1 - Violations found`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			violations := s.eng.Snapshot().Check()
			if len(violations) > 0 {
				lines := make([]string, len(violations))
				for i, v := range violations {
					lines[i] = v.String()
				}
				if rootOpts.Format != "json" {
					fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
				}
				return s.out.Fail(ExitFailure, CodeCheck, fmt.Sprintf("%d violation(s)", len(violations)), nil)
			}
			st := s.eng.Snapshot()
			return s.out.Result(map[string]int{
				"projects":     len(st.Projects),
				"features":     len(st.Features),
				"dependencies": st.DependencyCount(),
			}, fmt.Sprintf("OK: %d project(s), %d feature(s), %d dependencies", len(st.Projects), len(st.Features), st.DependencyCount()))
		},
	}
}

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Yes bool
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "reset",
		Short:         "Delete every project and clear the stored slot",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Yes {
				return NewExitError(ExitCommandError, "reset deletes everything; pass --yes to confirm")
			}
			s, err := openSession(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			s.eng.Reset(s.ctx)
			if err := s.saved(); err != nil {
				return err
			}
			return s.out.Result(map[string]bool{"reset": true}, "All tables cleared")
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm deleting everything")
	return cmd
}
