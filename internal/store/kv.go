package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// Record is one stored slot.
type Record struct {
	Key       string
	Value     []byte
	Checksum  string
	UpdatedAt time.Time
}

// KV is a durable key-value slot backend.
//
// Get returns ok=false (and no error) when the key is absent.
// Delete of an absent key is not an error.
type KV interface {
	Get(ctx context.Context, key string) (rec Record, ok bool, err error)
	Put(ctx context.Context, rec Record) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV is an in-process KV. Safe for concurrent use.
type MemoryKV struct {
	mu    sync.Mutex
	slots map[string]Record

	// FailPut, when set, is returned from every Put. Used to simulate an
	// unavailable backend.
	FailPut error
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{slots: make(map[string]Record)}
}

// Get implements KV.
func (m *MemoryKV) Get(_ context.Context, key string) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.slots[key]
	if !ok {
		return Record{}, false, nil
	}
	rec.Value = slices.Clone(rec.Value)
	return rec, true, nil
}

// Put implements KV.
func (m *MemoryKV) Put(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPut != nil {
		return m.FailPut
	}
	rec.Value = slices.Clone(rec.Value)
	m.slots[rec.Key] = rec
	return nil
}

// Delete implements KV.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}

// Raw stores value under key without a checksum, bypassing the adapter.
// Tests use it to plant corrupt slots.
func (m *MemoryKV) Raw(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = Record{Key: key, Value: slices.Clone(value)}
}

// FileKV stores each slot as a JSON file in a directory.
type FileKV struct {
	dir string
}

// fileRecord is the on-disk shape of a FileKV slot.
type fileRecord struct {
	Key       string          `json:"key"`
	Checksum  string          `json:"checksum"`
	UpdatedAt time.Time       `json:"updated_at"`
	Value     json.RawMessage `json:"value"`
}

// NewFileKV creates a filesystem-backed KV rooted at dir.
// The directory is created on first write.
func NewFileKV(dir string) *FileKV {
	return &FileKV{dir: dir}
}

// SlotPath returns the file path used for key.
func (f *FileKV) SlotPath(key string) string {
	return filepath.Join(f.dir, sanitizeKey(key)+".json")
}

// Get implements KV.
func (f *FileKV) Get(_ context.Context, key string) (Record, bool, error) {
	data, err := os.ReadFile(f.SlotPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("reading slot %q: %w", key, err)
	}

	var fr fileRecord
	if err := json.Unmarshal(data, &fr); err != nil {
		// The wrapper itself is unreadable; hand the raw bytes up so the
		// adapter reports it as a corrupt snapshot.
		return Record{Key: key, Value: data}, true, nil
	}
	// The record is written indented; compact the value back to the bytes
	// that were checksummed.
	var value bytes.Buffer
	if err := json.Compact(&value, fr.Value); err != nil {
		return Record{Key: key, Value: data}, true, nil
	}
	return Record{Key: key, Value: value.Bytes(), Checksum: fr.Checksum, UpdatedAt: fr.UpdatedAt}, true, nil
}

// Put implements KV. The file is written to a temp name and renamed so a
// crash never leaves a half-written slot.
func (f *FileKV) Put(_ context.Context, rec Record) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("creating slot directory: %w", err)
	}
	if !json.Valid(rec.Value) {
		return fmt.Errorf("slot %q: value is not valid JSON", rec.Key)
	}

	data, err := json.MarshalIndent(fileRecord{
		Key:       rec.Key,
		Checksum:  rec.Checksum,
		UpdatedAt: rec.UpdatedAt.UTC(),
		Value:     json.RawMessage(rec.Value),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling slot %q: %w", rec.Key, err)
	}

	path := f.SlotPath(rec.Key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing slot %q: %w", rec.Key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing slot %q: %w", rec.Key, err)
	}
	return nil
}

// Delete implements KV.
func (f *FileKV) Delete(_ context.Context, key string) error {
	if err := os.Remove(f.SlotPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting slot %q: %w", key, err)
	}
	return nil
}

// sanitizeKey maps a slot key to a safe file name.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, key)
}
