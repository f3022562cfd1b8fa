// Package upload creates the records of a resolved batch on a remote
// service and re-attaches stashed links afterwards.
//
// Records are processed one at a time in upload order:
//
//	PENDING -> CREATED | FAILED
//
// Once no record is pending, stashed links are replayed:
//
//	STASH_PENDING -> STASH_APPLIED | STASH_FAILED
//
// A rejected record or update is recorded and the run continues. A lost
// connection, a timeout or an interrupt aborts the run: the whole State is
// snapshotted, and when a record was in flight its id is kept as Uncertain
// so that a resume has to decide whether to skip or retry it.
//
// All state lives in State, a plain serializable value. The Uploader holds
// no run state of its own.
package upload
