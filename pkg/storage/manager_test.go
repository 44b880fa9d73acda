package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestManagerSaveAndExists(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if manager.Exists("products/1/cover.jpg") {
		t.Error("Expected Exists to return false before saving")
	}

	testData := []byte("test photo data")
	if err := manager.Save("products/1/cover.jpg", bytes.NewReader(testData)); err != nil {
		t.Fatalf("Failed to save photo: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "products", "1", "cover.jpg")
	content, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, testData) {
		t.Error("File content does not match expected data")
	}

	if !manager.Exists("products/1/cover.jpg") {
		t.Error("Expected Exists to return true after saving")
	}
	if manager.StoredCount() != 1 {
		t.Errorf("Expected 1 stored object, got %d", manager.StoredCount())
	}

	if _, err := os.Stat(expectedPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should have been renamed")
	}
}

func TestManagerDetectsExistingFiles(t *testing.T) {
	tempDir := t.TempDir()
	existing := filepath.Join(tempDir, "products", "2", "gallery", "0.jpg")
	if err := os.MkdirAll(filepath.Dir(existing), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(existing, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if !manager.Exists("products/2/gallery/0.jpg") {
		t.Error("Expected file from a previous run to be detected")
	}
	if manager.Exists("products/2/gallery") {
		t.Error("Directories are not objects")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestManagerSaveFailureLeavesNothing(t *testing.T) {
	tempDir := t.TempDir()
	manager, _ := NewManager(tempDir)

	if err := manager.Save("products/3/cover.jpg", failingReader{}); err == nil {
		t.Fatal("Expected error from failing reader")
	}
	if manager.Exists("products/3/cover.jpg") {
		t.Error("Failed save must not be visible")
	}
	if _, err := os.Stat(filepath.Join(tempDir, "products", "3", "cover.jpg.tmp")); !os.IsNotExist(err) {
		t.Error("Temporary file should be cleaned up")
	}
}

func TestManagerKeysStayInsideRoot(t *testing.T) {
	tempDir := t.TempDir()
	manager, _ := NewManager(filepath.Join(tempDir, "root"))

	if err := manager.Save("../../escape.jpg", bytes.NewReader([]byte("x"))); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "root", "escape.jpg")); err != nil {
		t.Error("Expected traversal key to be confined to the root")
	}

	if err := manager.Save("  ", bytes.NewReader(nil)); err == nil {
		t.Error("Expected error for empty key")
	}
}

func TestManagerClear(t *testing.T) {
	tempDir := t.TempDir()
	manager, _ := NewManager(tempDir)

	for _, key := range []string{"products/1/cover.jpg", "products/2/gallery/0.jpg"} {
		if err := manager.Save(key, bytes.NewReader([]byte("data"))); err != nil {
			t.Fatal(err)
		}
	}

	if err := manager.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if manager.Exists("products/1/cover.jpg") || manager.StoredCount() != 0 {
		t.Error("Expected all objects to be removed")
	}
	if _, err := os.Stat(tempDir); err != nil {
		t.Error("Root directory itself must survive Clear")
	}
}
