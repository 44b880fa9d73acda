package catalogsync

import (
	"sync"
	"time"

	"catalogsync/pkg/models"
)

// ProgressTracker owns the progress record of one orchestrator. It has a
// single writer, the running job, and any number of readers; readers only
// ever receive copies
type ProgressTracker struct {
	mu       sync.RWMutex
	progress models.SyncProgress
}

// NewProgressTracker creates a tracker in the idle state
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{progress: models.SyncProgress{Status: models.StatusIdle}}
}

// Snapshot returns a copy of the current progress
func (t *ProgressTracker) Snapshot() models.SyncProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress.Clone()
}

// Restore replaces the record with a previously saved one, unless a job is
// running
func (t *ProgressTracker) Restore(p models.SyncProgress) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.progress.Status == models.StatusSyncing || p.Status == models.StatusSyncing {
		return false
	}
	t.progress = p.Clone()
	return true
}

// begin moves a terminal record to Syncing with zeroed counters. It fails
// when a job is already syncing
func (t *ProgressTracker) begin(jobID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.progress.Status.IsTerminal() {
		return false
	}
	started := now
	message := "starting"
	t.progress = models.SyncProgress{
		JobID:     jobID,
		Status:    models.StatusSyncing,
		Message:   &message,
		StartedAt: &started,
	}
	return true
}

// update applies fn to the live record under the write lock
func (t *ProgressTracker) update(fn func(p *models.SyncProgress)) models.SyncProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.progress)
	return t.progress.Clone()
}

// reset returns the record to idle
func (t *ProgressTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress = models.SyncProgress{Status: models.StatusIdle}
}
