package catalogsync

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"catalogsync/pkg/models"
)

func TestProgressTrackerStartsIdle(t *testing.T) {
	tracker := NewProgressTracker()
	assert.Equal(t, models.StatusIdle, tracker.Snapshot().Status)
}

func TestProgressTrackerBeginIsExclusive(t *testing.T) {
	tracker := NewProgressTracker()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	assert.True(t, tracker.begin("a", now))
	assert.False(t, tracker.begin("b", now))
	assert.Equal(t, "a", tracker.Snapshot().JobID)

	tracker.update(func(p *models.SyncProgress) {
		p.ProductsDone = 9
		p.Status = models.StatusError
	})
	assert.True(t, tracker.begin("c", now.Add(time.Hour)), "a terminal job can be replaced")

	p := tracker.Snapshot()
	assert.Equal(t, "c", p.JobID)
	assert.Zero(t, p.ProductsDone)
	assert.Equal(t, now.Add(time.Hour), *p.StartedAt)
}

func TestProgressTrackerSnapshotIsACopy(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.begin("a", time.Now())

	snap := tracker.Snapshot()
	*snap.Message = "mutated"
	*snap.StartedAt = time.Time{}

	again := tracker.Snapshot()
	assert.Equal(t, "starting", *again.Message)
	assert.False(t, again.StartedAt.IsZero())
}

func TestProgressTrackerRestore(t *testing.T) {
	tracker := NewProgressTracker()
	msg := "synced 2 collections"

	assert.True(t, tracker.Restore(models.SyncProgress{Status: models.StatusCompleted, Message: &msg, ProductsDone: 5}))
	assert.Equal(t, 5, tracker.Snapshot().ProductsDone)

	assert.False(t, tracker.Restore(models.SyncProgress{Status: models.StatusSyncing}))

	tracker.begin("a", time.Now())
	assert.False(t, tracker.Restore(models.SyncProgress{Status: models.StatusCompleted}), "never replaces a running job")
}

func TestProgressTrackerConcurrentReaders(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.begin("a", time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0
			for j := 0; j < 200; j++ {
				p := tracker.Snapshot()
				assert.GreaterOrEqual(t, p.ProductsDone, last, "counters are monotonic")
				last = p.ProductsDone
			}
		}()
	}
	for j := 0; j < 200; j++ {
		tracker.update(func(p *models.SyncProgress) { p.ProductsDone++ })
	}
	wg.Wait()

	assert.Equal(t, 200, tracker.Snapshot().ProductsDone)
}
