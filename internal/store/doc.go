// Package store keeps the resumable upload state in a SQLite database.
//
// The database holds one run: its configuration, the pending records in
// upload order, the id to handle map, failed records and the stash items
// that still have to be applied.
//
// Progress is written after every record attempt (RecordCreated,
// RecordFailed) and every applied stash item (StashApplied), and a full
// snapshot at the end of every invocation
// (SaveState). A run that is killed between the two still resumes from the
// last record written.
//
// # Database Configuration
//
//   - WAL mode
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
