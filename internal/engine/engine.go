package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/featureplan/internal/model"
)

// Persister stores the complete table set in one slot.
// Implemented by store.Adapter.
type Persister interface {
	Load(ctx context.Context) (*model.State, bool, error)
	Save(ctx context.Context, s *model.State) error
	Clear(ctx context.Context) error
}

// Engine is the store engine. Create one with New; the zero value is not
// usable.
//
// Thread-safety model:
//   - mutations: safe from any goroutine, serialised by mu
//   - selectors: safe from any goroutine, lock-free
//   - Subscribe/unsubscribe: safe from any goroutine
//
// INVARIANTS:
//   - the published state satisfies model.State.Check() after every
//     successful mutation
//   - a published state is never modified in place
type Engine struct {
	mu    sync.Mutex // serialises mutations
	state atomic.Pointer[model.State]
	clock *Clock

	persist    Persister
	persistErr error // guarded by mu

	ids    IDGenerator
	now    func() time.Time
	logger *slog.Logger

	subs subscribers
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithNow overrides the wall clock used for createdAt/updatedAt and history
// timestamps. Times are stored in UTC.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator sets the id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// WithState seeds the engine with s instead of loading from the persister.
// The state is sanitised the same way a loaded state is.
func WithState(s *model.State) Option {
	return func(e *Engine) {
		if s != nil {
			e.state.Store(s)
		}
	}
}

// New creates an engine backed by p and loads the persisted state.
//
// p may be nil for a purely in-memory engine. A missing, unreadable or
// failing slot is not an error: the engine starts with empty tables and the
// problem is logged. Rows that violate referential integrity are dropped on
// load with a warning.
func New(ctx context.Context, p Persister, opts ...Option) *Engine {
	e := &Engine{
		clock:   NewClock(),
		persist: p,
		ids:     UUIDv7Generator{},
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	initial := e.state.Load()
	if initial == nil {
		initial = e.load(ctx)
	}
	initial.Normalize()

	clean, dropped := model.Sanitize(initial)
	if dropped > 0 {
		e.logger.Warn("dropped inconsistent rows from initial state", "rows", dropped)
	}
	e.state.Store(clean)

	e.logger.Debug("engine ready",
		"projects", len(clean.Projects),
		"features", len(clean.Features),
		"dependencies", clean.DependencyCount())
	return e
}

func (e *Engine) load(ctx context.Context) *model.State {
	if e.persist == nil {
		return model.NewState()
	}
	s, ok, err := e.persist.Load(ctx)
	if err != nil {
		e.logger.Warn("could not load persisted state, starting empty", "error", err)
		return model.NewState()
	}
	if !ok {
		return model.NewState()
	}
	return s
}

// Revision returns the revision of the current state. It starts at 0 and
// advances by one for every published state.
func (e *Engine) Revision() int64 {
	return e.clock.Current()
}

// PersistErr returns the error of the most recent save, or nil if it
// succeeded (or nothing has been saved yet).
func (e *Engine) PersistErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.persistErr
}

// Reset empties every table and clears the persisted slot.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	e.state.Store(model.NewState())
	rev := e.clock.Next()
	if e.persist != nil {
		e.persistErr = e.persist.Clear(ctx)
		if e.persistErr != nil {
			e.logger.Error("clearing persisted state failed", "revision", rev, "error", e.persistErr)
		}
	}
	e.mu.Unlock()

	e.subs.notify(Change{Revision: rev, Tables: model.AllTables})
}

// transition computes a next state from the current one.
//
// It returns the next state and the tables it changed. A nil state with a
// nil error means the operation was a no-op.
type transition func(cur *model.State) (*model.State, []model.Table, error)

// apply runs fn under the writer lock, publishes its result, persists it and
// notifies subscribers once the lock is released.
func (e *Engine) apply(ctx context.Context, op string, fn transition) error {
	e.mu.Lock()
	next, tables, err := fn(e.state.Load())
	if err != nil || next == nil {
		e.mu.Unlock()
		if err != nil {
			e.logger.Debug("operation rejected", "op", op, "error", err)
		}
		return err
	}

	e.state.Store(next)
	rev := e.clock.Next()
	e.save(ctx, op, rev, next)
	e.mu.Unlock()

	e.subs.notify(Change{Revision: rev, Tables: tables})
	return nil
}

// save hands next to the persister. Failures are recorded, never returned.
// Caller must hold mu.
func (e *Engine) save(ctx context.Context, op string, rev int64, next *model.State) {
	if e.persist == nil {
		return
	}
	e.persistErr = e.persist.Save(ctx, next)
	if e.persistErr != nil {
		e.logger.Error("persisting state failed", "op", op, "revision", rev, "error", e.persistErr)
	}
}

func (e *Engine) timestamp() time.Time {
	return e.now().UTC()
}
