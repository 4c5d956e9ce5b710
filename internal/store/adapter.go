package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/featureplan/internal/model"
)

// DefaultSlot is the slot key used when none is configured.
const DefaultSlot = "feature-store"

// Adapter persists whole snapshots into one KV slot.
//
// Thread-safety: Adapter holds no mutable state of its own; concurrency
// safety is that of the underlying KV.
type Adapter struct {
	kv     KV
	key    string
	logger *slog.Logger
	now    func() time.Time
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithLogger sets the logger used for load warnings.
func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithNow overrides the wall clock used to stamp saved records.
func WithNow(now func() time.Time) AdapterOption {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAdapter creates an adapter for slot key in kv.
// An empty key selects DefaultSlot.
func NewAdapter(kv KV, key string, opts ...AdapterOption) *Adapter {
	if key == "" {
		key = DefaultSlot
	}
	a := &Adapter{
		kv:     kv,
		key:    key,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Key returns the slot key.
func (a *Adapter) Key() string {
	return a.key
}

// Load reads the snapshot from the slot.
//
// Returns ok=false when the slot is absent or its content cannot be used
// (malformed, checksum mismatch, unsupported version); the latter cases
// are logged as warnings. A non-nil error means the backend itself failed.
func (a *Adapter) Load(ctx context.Context) (*model.State, bool, error) {
	rec, ok, err := a.kv.Get(ctx, a.key)
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	if rec.Checksum != "" && rec.Checksum != checksum(rec.Value) {
		a.logger.Warn("discarding snapshot: checksum mismatch", "slot", a.key)
		return nil, false, nil
	}

	state, err := decodeSnapshot(rec.Value)
	if err != nil {
		reason := "corrupt"
		if errors.Is(err, ErrUnsupportedVersion) {
			reason = "version"
		}
		a.logger.Warn("discarding snapshot", "slot", a.key, "reason", reason, "error", err)
		return nil, false, nil
	}

	return state, true, nil
}

// Save writes the entire state to the slot, replacing what was there.
func (a *Adapter) Save(ctx context.Context, s *model.State) error {
	data, err := encodeSnapshot(s)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := a.kv.Put(ctx, Record{
		Key:       a.key,
		Value:     data,
		Checksum:  checksum(data),
		UpdatedAt: a.now().UTC(),
	}); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Clear removes the slot.
func (a *Adapter) Clear(ctx context.Context) error {
	if err := a.kv.Delete(ctx, a.key); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
