package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/featureplan/internal/model"
)

// DomainSnapshot prefixes snapshot checksums.
// Version suffix enables future algorithm migration.
const DomainSnapshot = "featureplan/snapshot/v1"

// Decode failures. Both are tolerated on load.
var (
	ErrCorrupt            = errors.New("snapshot is corrupt")
	ErrUnsupportedVersion = errors.New("snapshot version is not supported")
)

// envelope is the persisted record shape.
type envelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

// encodeSnapshot serializes the full table set into a versioned envelope.
// Go's json.Marshal sorts map keys, so equal states encode to equal bytes.
func encodeSnapshot(s *model.State) ([]byte, error) {
	state, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}

	data, err := json.Marshal(envelope{
		Version: model.SchemaVersion,
		State:   state,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// decodeSnapshot parses an envelope produced by encodeSnapshot.
func decodeSnapshot(data []byte) (*model.State, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Version != model.SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, env.Version, model.SchemaVersion)
	}
	if len(env.State) == 0 || string(env.State) == "null" {
		return nil, fmt.Errorf("%w: missing state", ErrCorrupt)
	}

	var s model.State
	if err := json.Unmarshal(env.State, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	s.Normalize()
	return &s, nil
}

// checksum computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func checksum(data []byte) string {
	h := sha256.New()
	h.Write([]byte(DomainSnapshot))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
