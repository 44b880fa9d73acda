// Package checkpoint persists the progress record of the last sync job.
//
// The orchestrator saves a snapshot whenever a job changes stage and when it
// reaches a terminal state, so `catalogsync status` can report on a job run
// by another process. A snapshot found in the Syncing state on load belongs
// to a process that died mid-job; Load reports it as interrupted.
//
// Checkpoints are stored in the configured state directory, or in the
// platform data directory when none is set:
//   - Linux: ~/.local/share/catalogsync/state/
//   - macOS: ~/Library/Application Support/catalogsync/state/
//   - Windows: %APPDATA%/catalogsync/state/
package checkpoint
