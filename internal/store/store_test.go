package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		"slots",
	).Scan(&name)
	if err != nil {
		t.Errorf("table slots not found after idempotent opens: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "test.db"), WithDriver("postgres"))
	if err == nil {
		t.Error("expected error for unsupported driver, got nil")
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	s.Close()

	if _, err := Open(path); err == nil {
		t.Error("expected error for newer schema version, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragma_JournalMode(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_Synchronous(t *testing.T) {
	s := createTestStore(t)
	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestPragma_UserVersion(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	for _, driver := range []string{DriverCGO, DriverPure} {
		t.Run(driver, func(t *testing.T) {
			s, err := Open(filepath.Join(t.TempDir(), "test.db"), WithDriver(driver))
			if err != nil {
				t.Fatalf("Open() failed: %v", err)
			}
			defer s.Close()
			if s.Driver() != driver {
				t.Errorf("Driver() = %q, want %q", s.Driver(), driver)
			}

			ctx := context.Background()
			if _, ok, err := s.Get(ctx, "slot"); err != nil || ok {
				t.Fatalf("Get() on empty store = ok %v, err %v", ok, err)
			}

			at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			if err := s.Put(ctx, Record{Key: "slot", Value: []byte(`{"a":1}`), Checksum: "c1", UpdatedAt: at}); err != nil {
				t.Fatalf("Put() failed: %v", err)
			}
			if err := s.Put(ctx, Record{Key: "slot", Value: []byte(`{"a":2}`), Checksum: "c2", UpdatedAt: at}); err != nil {
				t.Fatalf("second Put() failed: %v", err)
			}

			rec, ok, err := s.Get(ctx, "slot")
			if err != nil || !ok {
				t.Fatalf("Get() = ok %v, err %v", ok, err)
			}
			if string(rec.Value) != `{"a":2}` || rec.Checksum != "c2" {
				t.Errorf("Get() = %q/%q, want upserted value", rec.Value, rec.Checksum)
			}
			if !rec.UpdatedAt.Equal(at) {
				t.Errorf("UpdatedAt = %v, want %v", rec.UpdatedAt, at)
			}

			keys, err := s.Keys(ctx)
			if err != nil {
				t.Fatalf("Keys() failed: %v", err)
			}
			if len(keys) != 1 || keys[0] != "slot" {
				t.Errorf("Keys() = %v, want [slot]", keys)
			}

			if err := s.Delete(ctx, "slot"); err != nil {
				t.Fatalf("Delete() failed: %v", err)
			}
			if err := s.Delete(ctx, "slot"); err != nil {
				t.Fatalf("Delete() of absent key failed: %v", err)
			}
			if _, ok, _ := s.Get(ctx, "slot"); ok {
				t.Error("slot still present after Delete()")
			}
		})
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s1.Put(ctx, Record{Key: "k", Value: []byte(`{}`), Checksum: "x", UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	if _, ok, err := s2.Get(ctx, "k"); err != nil || !ok {
		t.Errorf("slot lost across reopen: ok %v, err %v", ok, err)
	}
}
