package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// Manager stores downloaded photos on the local filesystem under keys such
// as products/42/cover.jpg
type Manager struct {
	rootDir string
	stored  map[string]bool
	mu      sync.RWMutex
}

// NewManager creates a new storage manager rooted at rootDir
func NewManager(rootDir string) (*Manager, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}

	return &Manager{
		rootDir: rootDir,
		stored:  make(map[string]bool),
	}, nil
}

// resolve maps a storage key to a path inside the root directory
func (m *Manager) resolve(key string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))
	if clean == "/" {
		return "", fmt.Errorf("empty storage key %q", key)
	}
	return filepath.Join(m.rootDir, filepath.FromSlash(clean)), nil
}

// Exists checks if an object with the given key is stored
func (m *Manager) Exists(key string) bool {
	m.mu.RLock()
	cached := m.stored[key]
	m.mu.RUnlock()
	if cached {
		return true
	}

	filename, err := m.resolve(key)
	if err != nil {
		return false
	}
	if info, err := os.Stat(filename); err == nil && !info.IsDir() {
		m.mu.Lock()
		m.stored[key] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// Save writes the object atomically through a temporary file
func (m *Manager) Save(key string, r io.Reader) error {
	filename, err := m.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to save photo data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.stored[key] = true
	m.mu.Unlock()
	return nil
}

// Clear removes every stored object
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.rootDir)
	if err != nil {
		return fmt.Errorf("failed to read photo directory: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(m.rootDir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
	}
	m.stored = make(map[string]bool)
	return nil
}

// RootDir returns the root directory path
func (m *Manager) RootDir() string {
	return m.rootDir
}

// StoredCount returns the number of objects saved or seen by this manager
func (m *Manager) StoredCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stored)
}
