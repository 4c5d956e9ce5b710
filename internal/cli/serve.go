package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/roach88/featureplan/internal/engine"
	"github.com/roach88/featureplan/internal/mcptools"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start an MCP server on stdin/stdout exposing the feature plan as tools.

Every tool call is applied to the configured store and saved immediately.
Logs go to stderr so they never interfere with the protocol on stdout.

Example MCP client configuration:
  {"command": "featureplan", "args": ["serve", "--db", "/path/to/plan.db"]}`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			unsubscribe := s.eng.Subscribe(func(c engine.Change) {
				s.logger.Debug("state changed", "revision", c.Revision, "tables", c.Tables)
			})
			defer unsubscribe()

			s.logger.Info("serving MCP on stdio", "version", Version)
			if err := server.ServeStdio(mcptools.NewServer(s.eng, Version)); err != nil {
				return WrapExitError(ExitFailure, "server error", err)
			}
			return nil
		},
	}
}
