// Package config loads the featureplan configuration file.
//
// The file is YAML; unknown keys are rejected so that typos surface instead
// of silently falling back to defaults:
//
//	backend: sqlite          # sqlite | file | memory
//	database: featureplan.db # sqlite backend
//	driver: sqlite3          # sqlite3 (cgo) | sqlite (pure Go)
//	dir: .featureplan        # file backend
//	slot: feature-store
//	log_level: info          # debug | info | warn | error
//	format: text             # text | json
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/featureplan/internal/store"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = "featureplan.yaml"

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

var (
	validBackends  = []string{BackendSQLite, BackendFile, BackendMemory}
	validDrivers   = []string{store.DriverCGO, store.DriverPure}
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"text", "json"}
)

// Config holds the settings shared by every command.
type Config struct {
	Backend  string `yaml:"backend"`
	Database string `yaml:"database"`
	Driver   string `yaml:"driver"`
	Dir      string `yaml:"dir"`
	Slot     string `yaml:"slot"`
	LogLevel string `yaml:"log_level"`
	Format   string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend:  BackendSQLite,
		Database: "featureplan.db",
		Driver:   store.DriverCGO,
		Dir:      ".featureplan",
		Slot:     store.DefaultSlot,
		LogLevel: "info",
		Format:   "text",
	}
}

// Load reads the config file at path. Keys absent from the file keep their
// defaults. If path is empty, DefaultFile is tried and a missing file yields
// the defaults; an explicitly named file must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML config data over the defaults and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks that every field holds an allowed value.
func (c Config) Validate() error {
	if !slices.Contains(validBackends, c.Backend) {
		return fmt.Errorf("backend %q: must be one of %v", c.Backend, validBackends)
	}
	if !slices.Contains(validDrivers, c.Driver) {
		return fmt.Errorf("driver %q: must be one of %v", c.Driver, validDrivers)
	}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("log_level %q: must be one of %v", c.LogLevel, validLogLevels)
	}
	if !slices.Contains(validFormats, c.Format) {
		return fmt.Errorf("format %q: must be one of %v", c.Format, validFormats)
	}
	if c.Slot == "" {
		return fmt.Errorf("slot is required")
	}
	switch c.Backend {
	case BackendSQLite:
		if c.Database == "" {
			return fmt.Errorf("database is required for the sqlite backend")
		}
	case BackendFile:
		if c.Dir == "" {
			return fmt.Errorf("dir is required for the file backend")
		}
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
