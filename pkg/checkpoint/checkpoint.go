package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"catalogsync/pkg/logger"
	"catalogsync/pkg/models"
)

const (
	currentVersion = 1
	appName        = "catalogsync"
)

// InterruptedMessage replaces the error of a job whose process exited while
// it was still syncing
const InterruptedMessage = "sync interrupted before completion"

// Checkpoint is the persisted state of the last sync job of one owner
type Checkpoint struct {
	OwnerID  int64               `json:"owner_id"`
	Progress models.SyncProgress `json:"progress"`
	SavedAt  time.Time           `json:"saved_at"`
	Version  int                 `json:"version"`
}

// Manager handles checkpoint operations
type Manager struct {
	checkpointPath string
	ownerID        int64
	logger         logger.Logger
	mu             sync.Mutex
}

// NewManager creates a checkpoint manager for the given owner. An empty
// stateDir selects the platform data directory
func NewManager(stateDir string, ownerID int64) (*Manager, error) {
	if stateDir == "" {
		dir, err := dataDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		stateDir = filepath.Join(dir, "state")
	}

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &Manager{
		checkpointPath: filepath.Join(stateDir, fmt.Sprintf("owner_%d.checkpoint.json", ownerID)),
		ownerID:        ownerID,
		logger:         logger.GetLogger().WithField("component", "checkpoint"),
	}, nil
}

// Path returns the checkpoint file path
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Load loads the last saved checkpoint. It returns nil when none exists
func (m *Manager) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(m.checkpointPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.Version > currentVersion {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported version %d",
			checkpoint.Version, currentVersion)
	}

	if checkpoint.Progress.Status == models.StatusSyncing {
		msg := InterruptedMessage
		checkpoint.Progress.Status = models.StatusError
		checkpoint.Progress.Error = &msg
	}

	m.logger.DebugWithFields("Checkpoint loaded", map[string]interface{}{
		"job_id":   checkpoint.Progress.JobID,
		"status":   checkpoint.Progress.Status,
		"saved_at": checkpoint.SavedAt,
	})

	return &checkpoint, nil
}

// Save writes a snapshot of progress to disk atomically
func (m *Manager) Save(progress models.SyncProgress) error {
	data, err := json.MarshalIndent(Checkpoint{
		OwnerID:  m.ownerID,
		Progress: progress.Clone(),
		SavedAt:  time.Now(),
		Version:  currentVersion,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := writeFileAtomic(m.checkpointPath, data); err != nil {
		return err
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"job_id": progress.JobID,
		"status": progress.Status,
	})
	return nil
}

// writeFileAtomic replaces path with data through a synced temp file in the
// same directory
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Debug("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// dataDir is $XDG_DATA_HOME/catalogsync (or ~/.local/share/catalogsync) on
// Linux and the user config directory elsewhere
func dataDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", appName), nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}
