// Package workflow drives entries through the pipeline on a schedule.
//
// An Advancer runs one stage: it loads a bounded batch of entries waiting at
// that stage, hands each one to a Processor as an immutable stage.Job on a
// bounded worker pool, and commits every result to the store as it arrives.
// One item's failure never affects the others in the batch.
//
// The Manager groups stages into three scheduled tasks:
//   - download: fetch every source, then download pending audio per source
//   - process: import stable local files, transcribe, summarize, reconcile
//     artifact directories
//   - push: send the digest, then apply retention
//
// The Scheduler runs one task at a time, each when its next-due time has
// passed, and takes an injectable Clock so tests can drive it.
package workflow
