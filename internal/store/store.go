// Package store is the persistent key/value state the shell opens as its
// first startup stage: boot counters, the clean-shutdown marker, and
// whatever small settings other subsystems park here.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"shellboot/pkg/logging"
)

const (
	schemaVersionKey = "schema-version"
	schemaVersion    = "1"

	bootCountKey     = "boot-count"
	cleanShutdownKey = "clean-shutdown"
)

// Store is the narrow surface the rest of the shell sees. Persistence
// details stay behind it.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
	// Close marks a clean shutdown and releases the store.
	Close() error
}

// FileStore is a YAML-file-backed Store. Every mutation is persisted with a
// write-to-temp-then-rename so a crash mid-write never corrupts the file.
type FileStore struct {
	path string

	mu   sync.Mutex
	data map[string]string
}

// Open loads (or creates) the store at path. A file written by a newer
// schema is refused rather than silently rewritten.
func Open(path string) (*FileStore, error) {
	s := &FileStore{path: path, data: make(map[string]string)}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.data[schemaVersionKey] = schemaVersion
		if err := s.persistLocked(); err != nil {
			return nil, fmt.Errorf("failed to create state store: %w", err)
		}
		logging.Info("Store", "Created state store at %s", path)
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read state store: %w", err)
	}

	if err := yaml.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("state store %s is not valid YAML: %w", path, err)
	}
	if s.data == nil {
		s.data = make(map[string]string)
	}
	if v, ok := s.data[schemaVersionKey]; ok && v != schemaVersion {
		return nil, fmt.Errorf("state store %s has unsupported schema version %q", path, v)
	}
	s.data[schemaVersionKey] = schemaVersion

	logging.Debug("Store", "Opened state store at %s (%d keys)", path, len(s.data))
	return s, nil
}

// Get returns the value for key.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Set writes key=value and persists.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.persistLocked()
}

// Delete removes key and persists. Deleting a missing key is a no-op.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.persistLocked()
}

// Close marks the shutdown as clean.
func (s *FileStore) Close() error {
	return s.Set(cleanShutdownKey, "true")
}

// RecordBoot increments the boot counter, clears the clean-shutdown marker
// for the new session, and returns whether the previous session ended
// cleanly. Called by the state-store startup stage.
func (s *FileStore) RecordBoot() (bootCount int, lastShutdownClean bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bootCount, _ = strconv.Atoi(s.data[bootCountKey])
	bootCount++
	lastShutdownClean = s.data[cleanShutdownKey] == "true"

	s.data[bootCountKey] = strconv.Itoa(bootCount)
	s.data[cleanShutdownKey] = "false"
	if err := s.persistLocked(); err != nil {
		return 0, false, err
	}
	return bootCount, lastShutdownClean, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) persistLocked() error {
	out, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
