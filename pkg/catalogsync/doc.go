// Package catalogsync runs catalog synchronization jobs.
//
// An Orchestrator mirrors the collections, products and photos of one
// catalog owner into a Store and a PhotoStorage. A job moves through
//
//	Idle -> Syncing -> Completed | Error
//
// and only one job runs at a time: Start and Run fail with
// ErrAlreadyRunning while another job is Syncing. Progress is readable at
// any time through Progress, which returns a copy.
//
// Within a job, collections are listed and saved first; any failure there
// fails the job. Products are then listed collection by collection, and a
// failing collection is recorded in the progress message and skipped.
// Finally the photos of every distinct product are downloaded in batches;
// photo failures only lower the downloaded count.
//
// Cancellation, through the context passed to Run or through Cancel, takes
// effect between pages and between download batches.
package catalogsync
