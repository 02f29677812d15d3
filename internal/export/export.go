// Package export persists the finished-interview payload so the results view
// works after the owning process exits.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmarbury/viva/internal/session"
)

// Store reads and writes the most recent result payload as JSON on disk.
type Store struct {
	path string
}

// NewStore roots the store at an explicit path. An empty path resolves to the
// default state location.
func NewStore(path string) (*Store, error) {
	if path == "" {
		resolved, err := defaultResultPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	return &Store{path: path}, nil
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Save atomically replaces the stored payload.
func (s *Store) Save(payload session.ResultPayload) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result payload: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create result dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write result payload: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace result payload: %w", err)
	}
	return nil
}

// Load returns the most recent payload. A missing file is reported as-is so
// callers can distinguish "never finished an interview" from a broken file.
func (s *Store) Load() (session.ResultPayload, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return session.ResultPayload{}, err
	}

	var payload session.ResultPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return session.ResultPayload{}, fmt.Errorf("decode result payload: %w", err)
	}
	return payload, nil
}

// defaultResultPath selects XDG_STATE_HOME when available, otherwise ~/.local/state.
func defaultResultPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "viva", "results.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "viva", "results.json"), nil
}
