// Package stablefile promotes audio files dropped into the audio directory
// into pipeline entries once they have stopped changing.
//
// A file is imported only after two consecutive sweeps observe the same size
// and modification time. Observations are kept in a small JSON file so an
// interrupted detection resumes after a restart. This is a two-sample
// debounce rather than a content hash; a writer that pauses for a full sweep
// interval can still be imported early.
package stablefile
