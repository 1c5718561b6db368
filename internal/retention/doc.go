// Package retention reclaims storage.
//
// Prune deletes stale pending entries and applies a per-source Policy to
// fully processed ones. Audio is removed first; the row and the output
// directory only go once the audio is gone, so a failed delete never leaves
// an entry pointing at half-removed artifacts.
//
// Reconcile removes artifact files and directories whose video_id no longer
// has a row.
package retention
