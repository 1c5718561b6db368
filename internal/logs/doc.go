// Package logs reads the pipeline's current log file for "briefcast logs".
//
// Last returns the final N lines with the offset they end at, ReadFrom picks
// up from an offset, and Follow polls for appended lines until its context is
// cancelled. A file that shrinks or is replaced by a newer run is read again
// from the start.
package logs
