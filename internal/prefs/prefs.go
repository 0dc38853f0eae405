// Package prefs is the client's local key/value preference store: a small
// JSON document next to the config file that survives restarts.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cyberforge/cyberforge/internal/jsonutil"
)

const (
	KeyAppMode       = "cyberforge_app_mode"
	KeySetupComplete = "cyberforge_setup_complete"

	fileName = "prefs.json"
)

// Store holds preferences in memory and writes every change through to disk.
type Store struct {
	mu     sync.RWMutex
	path   string
	values map[string]jsonutil.Value
}

// Open loads the store from dir/prefs.json. A missing or corrupt file yields
// an empty store; corrupt content is replaced on the next write.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create prefs dir: %w", err)
	}

	s := &Store{
		path:   filepath.Join(dir, fileName),
		values: make(map[string]jsonutil.Value),
	}

	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read prefs: %w", err)
	}

	var values map[string]jsonutil.Value
	if err := jsonutil.Unmarshal(data, &values); err == nil && values != nil {
		s.values = values
	}
	return s, nil
}

// Memory returns a store that never touches disk.
func Memory() *Store {
	return &Store{values: make(map[string]jsonutil.Value)}
}

// GetString returns the string stored under key, or def.
func (s *Store) GetString(key, def string) string {
	var v string
	if !s.get(key, &v) {
		return def
	}
	return v
}

// SetString stores a string value.
func (s *Store) SetString(key, value string) error {
	return s.set(key, value)
}

// GetBool returns the bool stored under key, or def.
func (s *Store) GetBool(key string, def bool) bool {
	var v bool
	if !s.get(key, &v) {
		return def
	}
	return v
}

// SetBool stores a bool value.
func (s *Store) SetBool(key string, value bool) error {
	return s.set(key, value)
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flushLocked()
}

func (s *Store) get(key string, out any) bool {
	s.mu.RLock()
	raw, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return jsonutil.Unmarshal(raw, out) == nil
}

func (s *Store) set(key string, value any) error {
	raw, err := jsonutil.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode pref %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = raw
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}

	data, err := jsonutil.MarshalIndent(s.values, "  ")
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), fileName+".*")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write prefs: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}
