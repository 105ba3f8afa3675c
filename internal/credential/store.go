// Package credential persists the single opaque access credential required
// to open a remote session.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned by Load when no credential is stored.
var ErrNotFound = errors.New("no credential stored")

// Store reads, writes and deletes the single stored credential.
// At most one value is stored at a time; Save replaces any previous value.
type Store interface {
	Load() (string, error)
	Save(value string) error
	Delete() error
}

// FileStore persists the credential as a single file under the user
// config directory, mode 0600.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at
// <user config dir>/<appName>/credential.
func NewFileStore(appName string) (*FileStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, appName, "credential")}, nil
}

// NewFileStoreAt creates a file-backed store at an explicit path.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored credential. Returns ErrNotFound when absent or empty.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

// Save writes the credential, replacing any previous value.
func (s *FileStore) Save(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("credential must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(value+"\n"), 0o600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

// Delete removes the stored credential. Deleting an absent credential is a no-op.
func (s *FileStore) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu    sync.Mutex
	value string
}

func NewMemoryStore(value string) *MemoryStore {
	return &MemoryStore{value: value}
}

func (s *MemoryStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value == "" {
		return "", ErrNotFound
	}
	return s.value, nil
}

func (s *MemoryStore) Save(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	return nil
}

func (s *MemoryStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = ""
	return nil
}
