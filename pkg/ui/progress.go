package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"catalogsync/pkg/models"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 16
)

// Bar draws done/total as a fixed-width bar. A zero total renders empty
func Bar(done, total, width int) string {
	filled := 0
	if total > 0 {
		filled = min(width, done*width/total)
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
}

// ProgressRenderer turns sync snapshots into a single status line
type ProgressRenderer struct {
	console *Console
	now     func() time.Time
	last    string
}

func NewProgressRenderer(console *Console) *ProgressRenderer {
	return &ProgressRenderer{console: console, now: time.Now}
}

// Line formats one snapshot
func (r *ProgressRenderer) Line(p models.SyncProgress) string {
	label := r.statusLabel(p.Status)

	var b strings.Builder
	fmt.Fprintf(&b, "%s collections %d/%d  products %d/%d  photos %s %d/%d",
		label,
		p.CollectionsDone, p.CollectionsTotal,
		p.ProductsDone, p.ProductsTotal,
		Bar(p.PhotosDone, p.PhotosTotal, barWidth), p.PhotosDone, p.PhotosTotal)

	if p.StartedAt != nil {
		end := r.now()
		if p.CompletedAt != nil {
			end = *p.CompletedAt
		}
		fmt.Fprintf(&b, "  %s", end.Sub(*p.StartedAt).Truncate(time.Second))
	}
	if p.Message != nil && *p.Message != "" {
		fmt.Fprintf(&b, "  %s", r.console.style(Dim)(*p.Message))
	}
	return b.String()
}

func (r *ProgressRenderer) statusLabel(status models.SyncStatus) string {
	tag := fmt.Sprintf("[%s]", strings.ToUpper(string(status)))
	switch status {
	case models.StatusSyncing:
		return r.console.style(Magenta)(tag)
	case models.StatusCompleted:
		return r.console.style(Green)(tag)
	case models.StatusError:
		return r.console.style(Red)(tag)
	default:
		return r.console.style(Cyan)(tag)
	}
}

// Render rewrites the current line on a TTY and prints changed lines
// otherwise
func (r *ProgressRenderer) Render(p models.SyncProgress) {
	line := r.Line(p)
	if line == r.last {
		return
	}
	r.last = line

	if r.console.Colored() {
		fmt.Fprintf(r.console.Writer(), "\r\033[K%s", line)
		return
	}
	fmt.Fprintln(r.console.Writer(), line)
}

// Watch polls snapshot every interval until the status is terminal or ctx
// ends, and returns the last snapshot seen
func (r *ProgressRenderer) Watch(ctx context.Context, snapshot func() models.SyncProgress, interval time.Duration) models.SyncProgress {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p := snapshot()
		r.Render(p)
		if p.Status.IsTerminal() && p.Status != models.StatusIdle {
			r.finish()
			return p
		}

		select {
		case <-ctx.Done():
			r.finish()
			return snapshot()
		case <-ticker.C:
		}
	}
}

func (r *ProgressRenderer) finish() {
	if r.console.Colored() {
		fmt.Fprintln(r.console.Writer())
	}
}
