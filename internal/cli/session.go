package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/featureplan/internal/config"
	"github.com/roach88/featureplan/internal/engine"
	"github.com/roach88/featureplan/internal/store"
)

// session is one command's view of the configured store: an engine loaded
// from the configured slot and the formatter for the command's output.
type session struct {
	ctx    context.Context
	eng    *engine.Engine
	out    *OutputFormatter
	logger *slog.Logger
	closer func() error
}

// openSession loads the config, opens the storage backend and builds an
// engine over it. The caller must Close the session.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	out := newFormatter(cmd, opts)

	cfg, err := opts.config()
	if err != nil {
		return nil, out.Fail(ExitCommandError, CodeInput, "failed to load config", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg, opts.Verbose)

	var kv store.KV
	closer := func() error { return nil }
	switch cfg.Backend {
	case config.BackendSQLite:
		logger.Debug("opening database", "path", cfg.Database, "driver", cfg.Driver)
		st, err := store.Open(cfg.Database, store.WithDriver(cfg.Driver))
		if err != nil {
			return nil, out.Fail(ExitCommandError, CodeStorage, "failed to open database", err)
		}
		kv, closer = st, st.Close
	case config.BackendFile:
		logger.Debug("using file slots", "dir", cfg.Dir)
		kv = store.NewFileKV(cfg.Dir)
	default:
		kv = store.NewMemoryKV()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	adapter := store.NewAdapter(kv, cfg.Slot, store.WithLogger(logger))
	eng := engine.New(ctx, adapter,
		engine.WithLogger(logger),
		engine.WithIDGenerator(opts.IDGenerator),
		engine.WithNow(opts.Now),
	)
	return &session{ctx: ctx, eng: eng, out: out, logger: logger, closer: closer}, nil
}

// Close releases the storage backend.
func (s *session) Close() {
	if err := s.closer(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// saved reports a failed save of the last mutation as a command error.
func (s *session) saved() error {
	if err := s.eng.PersistErr(); err != nil {
		return s.out.Fail(ExitCommandError, CodeStorage, "failed to save state", err)
	}
	return nil
}

// rejected reports an engine error. Unknown ids and invalid operations
// exit with ExitFailure.
func (s *session) rejected(err error) error {
	var engErr *engine.Error
	if !errors.As(err, &engErr) {
		return s.out.Fail(ExitCommandError, CodeStorage, "operation failed", err)
	}
	code := CodeInvalid
	if engine.IsNotFound(err) {
		code = CodeNotFound
	}
	if s.out.Format == "json" {
		details := map[string]string{"op": engErr.Op, "id": engErr.ID}
		if encErr := s.out.Error(code, engErr.Message, details); encErr != nil {
			return encErr
		}
	}
	return WrapExitError(ExitFailure, "rejected", err)
}

// done finishes a mutating command: a rejection is reported as such,
// otherwise the save result decides.
func (s *session) done(err error) error {
	if err != nil {
		return s.rejected(err)
	}
	return s.saved()
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// newLogger builds the slog text logger used by engine and store. Verbose
// output lowers the level to debug.
func newLogger(w io.Writer, cfg config.Config, verbose bool) *slog.Logger {
	level := cfg.Level()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
