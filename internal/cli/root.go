package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/featureplan/internal/config"
	"github.com/roach88/featureplan/internal/engine"
)

// Version is set at build time via ldflags.
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigPath string
	Backend    string // overrides config backend
	Database   string // overrides config database
	Driver     string // overrides config driver
	DataDir    string // overrides config dir
	Slot       string // overrides config slot

	// IDGenerator and Now override the engine's id source and wall clock
	// (for testing). Nil keeps the engine defaults.
	IDGenerator engine.IDGenerator
	Now         func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the featureplan CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "featureplan",
		Short:   "featureplan - plan features, their order and their dependencies",
		Long:    "Keep a feature plan: projects, features sorted into essential, nice-to-have and future columns, and the dependencies between them.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			// The config file supplies the format unless the flag was given.
			if !cmd.Flags().Changed("format") {
				opts.Format = cfg.Format
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: ./"+config.DefaultFile+" if present)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend (sqlite|file|memory)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "SQLite driver (sqlite3|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "slot directory for the file backend")
	cmd.PersistentFlags().StringVar(&opts.Slot, "slot", "", "storage slot name")

	// Add subcommands
	cmd.AddCommand(NewProjectCommand(opts))
	cmd.AddCommand(NewFeatureCommand(opts))
	cmd.AddCommand(NewDepCommand(opts))
	cmd.AddCommand(NewPositionCommand(opts))
	cmd.AddCommand(NewGraphCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// config loads the config file and applies flag overrides.
func (o *RootOptions) config() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.Driver != "" {
		cfg.Driver = o.Driver
	}
	if o.DataDir != "" {
		cfg.Dir = o.DataDir
	}
	if o.Slot != "" {
		cfg.Slot = o.Slot
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
