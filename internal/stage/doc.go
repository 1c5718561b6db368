// Package stage defines the values exchanged between the workflow advancer
// and the per-stage processors: an immutable Job snapshot handed to a worker
// and the Result it returns.
//
// Jobs are plain values. A processor never mutates the entry it was given;
// it returns an updated copy inside Success (or Failure when the attempt left
// state worth persisting, such as a download error message). Only the
// coordinating goroutine turns results back into store writes.
package stage
